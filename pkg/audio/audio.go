// Package audio owns the speaker and microphone hardware. Capture and
// playback are mutually exclusive; the I2S unit is half-duplex here, so an
// attempt to start one mode while the other is active is rejected. All
// time-based transitions happen inside Update, driven by the poll loop.
package audio

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/storage"
)

var (
	ErrUninitialized      = errors.New("audio subsystem not initialized")
	ErrCapabilityConflict = errors.New("audio hardware is half-duplex")
	ErrUnitClaimed        = errors.New("i2s unit already claimed")
)

// Mode is the manager's exclusive operating mode.
type Mode int

const (
	Idle Mode = iota
	Capturing
	Playing
)

func (m Mode) String() string {
	switch m {
	case Capturing:
		return "capturing"
	case Playing:
		return "playing"
	default:
		return "idle"
	}
}

// SystemSound names one entry of the built-in sound catalogue.
type SystemSound int

const (
	SoundPowerOn SystemSound = iota
	SoundPowerOff
	SoundAlert
	SoundSiren
)

type soundSpec struct {
	frequency int // Hz
	duration  int // ms
	pause     int // ms trailing silence
}

var systemSounds = [...]soundSpec{
	SoundPowerOn:  {frequency: 800, duration: 200, pause: 100},
	SoundPowerOff: {frequency: 600, duration: 300, pause: 0},
	SoundAlert:    {frequency: 1000, duration: 100, pause: 50},
	SoundSiren:    {frequency: 800, duration: 500, pause: 200},
}

// Quality presets for the capture format.
type Quality int

const (
	QualityLow    Quality = iota // 8kHz, 8-bit
	QualityMedium                // 16kHz, 16-bit
	QualityHigh                  // 44.1kHz, 16-bit
)

const clipBufferSize = 1 << 18 // staging for ~8s of 16kHz/16-bit capture

// One physical I2S unit maps to at most one live manager.
var (
	unitMu     sync.Mutex
	unitClaims = make(map[int]*Manager)
)

type Manager struct {
	unit    int
	input   driver.AudioInput
	speaker driver.Speaker
	store   *storage.Manager // nil when persistence is disabled
	clock   driver.Clock

	speakerPin int
	micPin     int

	speakerInitialized bool
	micInitialized     bool

	format driver.AudioFormat

	mode          Mode
	playStartedAt time.Time
	playDuration  time.Duration

	systemSoundsEnabled bool
	masterVolume        int

	clip *ringbuffer.RingBuffer
}

// New claims the given I2S unit and builds its manager. A second live
// manager for the same unit is refused; End releases the claim.
func New(unit int, input driver.AudioInput, speaker driver.Speaker, store *storage.Manager, clock driver.Clock) (*Manager, error) {
	unitMu.Lock()
	defer unitMu.Unlock()

	if _, taken := unitClaims[unit]; taken {
		return nil, fmt.Errorf("%w: unit %d", ErrUnitClaimed, unit)
	}

	if clock == nil {
		clock = time.Now
	}
	m := &Manager{
		unit:    unit,
		input:   input,
		speaker: speaker,
		store:   store,
		clock:   clock,
		format: driver.AudioFormat{
			SampleRate: 16000,
			BitDepth:   16,
			BufferSize: 1024,
		},
		systemSoundsEnabled: true,
		masterVolume:        50,
		clip:                ringbuffer.New(clipBufferSize),
	}
	unitClaims[unit] = m
	return m, nil
}

// Begin configures the speaker and validates the microphone configuration.
// The I2S driver is probed but left uninstalled: keeping it installed would
// conflict with speaker output on shared-unit topologies, so the install is
// deferred to StartCapture. Each side degrades independently; a missing
// microphone does not block playback.
func (m *Manager) Begin(speakerPin, micPin int) bool {
	m.speakerPin = speakerPin
	m.micPin = micPin

	if err := m.speaker.Begin(speakerPin); err != nil {
		log.Printf("Speaker init failed on pin %d: %v", speakerPin, err)
		m.speakerInitialized = false
	} else {
		m.speakerInitialized = true
		m.speaker.SetVolume(m.masterVolume)
		log.Printf("Speaker initialized on pin %d", speakerPin)
	}

	m.micInitialized = m.probeMicrophone()
	if m.micInitialized {
		log.Printf("Microphone initialized on pin %d", micPin)
	}

	return m.speakerInitialized || m.micInitialized
}

// probeMicrophone validates the I2S configuration with an install that is
// immediately rolled back.
func (m *Manager) probeMicrophone() bool {
	if err := m.input.Install(m.format, m.micPin); err != nil {
		log.Printf("I2S driver install failed: %v", err)
		return false
	}
	if err := m.input.Uninstall(); err != nil {
		log.Printf("I2S driver uninstall failed: %v", err)
		return false
	}
	return true
}

// End stops any activity, releases the I2S driver and the unit claim.
// Safe to call multiple times.
func (m *Manager) End() {
	if m.mode == Capturing {
		m.StopCapture()
	}
	if m.mode == Playing {
		m.Stop()
	}

	m.micInitialized = false
	m.speakerInitialized = false

	unitMu.Lock()
	if unitClaims[m.unit] == m {
		delete(unitClaims, m.unit)
	}
	unitMu.Unlock()

	log.Println("Audio manager deinitialized")
}

// StartCapture installs the I2S driver and enters Capturing. Idempotent
// when already capturing. A driver error leaves the mode untouched.
func (m *Manager) StartCapture() error {
	if m.mode == Playing {
		return fmt.Errorf("%w: cannot capture while playing", ErrCapabilityConflict)
	}
	if !m.micInitialized {
		return fmt.Errorf("%w: microphone", ErrUninitialized)
	}
	if m.mode == Capturing {
		log.Println("Already capturing audio")
		return nil
	}

	if err := m.input.Install(m.format, m.micPin); err != nil {
		return fmt.Errorf("i2s driver install failed: %w", err)
	}

	m.mode = Capturing
	m.clip.Reset()
	log.Println("Audio capture started")
	return nil
}

// StopCapture releases the I2S driver. No-op when not capturing.
func (m *Manager) StopCapture() {
	if m.mode != Capturing {
		return
	}

	if err := m.input.Uninstall(); err != nil {
		log.Printf("I2S driver uninstall failed: %v", err)
	}
	m.mode = Idle
	log.Println("Audio capture stopped")
}

// CaptureAudio moves up to len(buf) captured bytes into buf and stages them
// for clip assembly. Returns 0 immediately when not capturing. The
// underlying read may block up to the driver timeout; call only from the
// poll context.
func (m *Manager) CaptureAudio(buf []byte) int {
	if m.mode != Capturing {
		return 0
	}

	n, err := m.input.Read(buf)
	if err != nil {
		log.Printf("I2S read failed: %v", err)
		return 0
	}

	if n > 0 {
		// Staging is best-effort; a full ring drops the oldest data's slot,
		// never the capture itself.
		if free := m.clip.Free(); free < n {
			discard := make([]byte, n-free)
			m.clip.Read(discard)
		}
		m.clip.Write(buf[:n])
	}
	return n
}

// SaveClip drains the staged capture bytes into a WAV artifact through the
// storage manager. The filename is generated when name is empty.
func (m *Manager) SaveClip(name string) error {
	if m.store == nil {
		return storage.ErrMediaUnavailable
	}
	staged := m.clip.Length()
	if staged == 0 {
		return errors.New("no captured audio staged")
	}

	pcm := make([]byte, staged)
	m.clip.Read(pcm)

	data, err := encodeWAV(pcm, m.format)
	if err != nil {
		return fmt.Errorf("failed to encode clip: %w", err)
	}

	if name == "" {
		name = m.store.GenerateFilename("rec", "wav")
	}
	if err := m.store.WriteFile(name, data); err != nil {
		return err
	}
	if _, err := m.store.RecordArtifact("audio", name, int64(len(data))); err != nil {
		log.Printf("Failed to index audio clip %s: %v", name, err)
	}
	log.Printf("Audio clip saved: %s (%d bytes)", name, len(data))
	return nil
}

// PlayTone starts tone playback and enters Playing. The tone itself runs in
// the speaker driver; this never blocks. Exit back to Idle happens in
// Update once the duration elapses.
func (m *Manager) PlayTone(frequencyHz, durationMs int) error {
	if !m.speakerInitialized {
		return fmt.Errorf("%w: speaker", ErrUninitialized)
	}
	if m.mode == Capturing {
		return fmt.Errorf("%w: cannot play while capturing", ErrCapabilityConflict)
	}

	if err := m.speaker.PlayTone(frequencyHz, durationMs); err != nil {
		return fmt.Errorf("speaker tone failed: %w", err)
	}

	m.mode = Playing
	m.playStartedAt = m.clock()
	m.playDuration = time.Duration(durationMs) * time.Millisecond
	return nil
}

// PlaySystemSound plays a catalogue sound. No-op when system sounds are
// disabled; rejected when the speaker is unavailable.
func (m *Manager) PlaySystemSound(sound SystemSound) error {
	if !m.systemSoundsEnabled {
		return nil
	}
	if !m.speakerInitialized {
		return fmt.Errorf("%w: speaker", ErrUninitialized)
	}
	if m.mode == Capturing {
		return fmt.Errorf("%w: cannot play while capturing", ErrCapabilityConflict)
	}
	if int(sound) < 0 || int(sound) >= len(systemSounds) {
		return fmt.Errorf("unknown system sound %d", sound)
	}

	spec := systemSounds[sound]
	if err := m.speaker.PlayTone(spec.frequency, spec.duration); err != nil {
		return fmt.Errorf("speaker tone failed: %w", err)
	}

	m.mode = Playing
	m.playStartedAt = m.clock()
	m.playDuration = time.Duration(spec.duration+spec.pause) * time.Millisecond
	return nil
}

// Stop ends playback. It does not touch an active capture; stopping that is
// StopCapture's job. Idempotent.
func (m *Manager) Stop() {
	if m.speakerInitialized {
		m.speaker.Stop()
	}
	if m.mode == Playing {
		m.mode = Idle
	}
	m.playStartedAt = time.Time{}
	m.playDuration = 0
}

// SetVolume clamps to 0..100 and applies immediately when the speaker is
// up; otherwise the value is kept for the next Begin.
func (m *Manager) SetVolume(volume int) {
	m.masterVolume = clamp(volume, 0, 100)
	if m.speakerInitialized {
		m.speaker.SetVolume(m.masterVolume)
	}
	log.Printf("Master volume set to: %d", m.masterVolume)
}

// SetSampleRate stores the rate for the next I2S install.
func (m *Manager) SetSampleRate(rate int) {
	m.format.SampleRate = clamp(rate, 8000, 48000)
	log.Printf("Sample rate set to: %d", m.format.SampleRate)
}

// SetBitDepth stores the depth for the next I2S install. Only 8 and 16 bit
// capture is supported.
func (m *Manager) SetBitDepth(bits int) {
	if bits <= 8 {
		m.format.BitDepth = 8
	} else {
		m.format.BitDepth = 16
	}
	log.Printf("Bit depth set to: %d", m.format.BitDepth)
}

// SetQuality applies one of the capture presets.
func (m *Manager) SetQuality(q Quality) {
	switch q {
	case QualityLow:
		m.format.SampleRate, m.format.BitDepth = 8000, 8
	case QualityHigh:
		m.format.SampleRate, m.format.BitDepth = 44100, 16
	default:
		m.format.SampleRate, m.format.BitDepth = 16000, 16
	}
}

func (m *Manager) EnableSystemSounds(enable bool) {
	m.systemSoundsEnabled = enable
	log.Printf("System sounds %s", enabledStr(enable))
}

func (m *Manager) GetSampleRate() int          { return m.format.SampleRate }
func (m *Manager) GetBitDepth() int            { return m.format.BitDepth }
func (m *Manager) GetVolume() int              { return m.masterVolume }
func (m *Manager) IsSystemSoundsEnabled() bool { return m.systemSoundsEnabled }
func (m *Manager) IsCapturing() bool           { return m.mode == Capturing }
func (m *Manager) IsPlaying() bool             { return m.mode == Playing }
func (m *Manager) IsSpeakerReady() bool        { return m.speakerInitialized }
func (m *Manager) IsMicrophoneReady() bool     { return m.micInitialized }
func (m *Manager) CurrentMode() Mode           { return m.mode }

// Update is the only place playback completion is detected: once per poll
// tick the elapsed time is compared against the planned duration, replacing
// any timer interrupt.
func (m *Manager) Update() {
	if m.speakerInitialized {
		m.speaker.Update()
	}

	if m.mode == Playing && !m.playStartedAt.IsZero() {
		if m.clock().Sub(m.playStartedAt) >= m.playDuration {
			m.mode = Idle
			m.playStartedAt = time.Time{}
			m.playDuration = 0
		}
	}
}

// TestAudio schedules a short test tone and, when a capture is running,
// performs one bounded read.
func (m *Manager) TestAudio() bool {
	if !m.speakerInitialized {
		log.Println("Speaker not initialized")
		return false
	}

	if err := m.PlayTone(1000, 500); err != nil {
		log.Printf("Audio test tone failed: %v", err)
		return false
	}

	if m.mode == Capturing {
		buf := make([]byte, 256)
		if n := m.CaptureAudio(buf); n > 0 {
			log.Printf("Microphone test successful - captured %d bytes", n)
		} else {
			log.Println("Microphone test failed")
			return false
		}
	}

	log.Println("Audio test completed")
	return true
}

// Status returns a human-readable summary for the status surface.
func (m *Manager) Status() string {
	return fmt.Sprintf("Audio: %s, %s (Vol: %d%%)",
		okErr("Speaker", m.speakerInitialized),
		okErr("Mic", m.micInitialized),
		m.masterVolume)
}

func okErr(name string, ok bool) string {
	if ok {
		return name + " OK"
	}
	return name + " Error"
}

func enabledStr(enable bool) string {
	if enable {
		return "enabled"
	}
	return "disabled"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
