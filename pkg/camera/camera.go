// Package camera owns the image sensor. Streaming is a logical flag read by
// the transport layer; frames themselves are pulled one at a time. The
// auto-capture timer is evaluated once per poll tick, never from interrupts.
package camera

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/storage"
)

var ErrUninitialized = errors.New("camera not initialized")

type Manager struct {
	sensor driver.CameraSensor
	store  *storage.Manager // nil when persistence is disabled
	clock  driver.Clock

	initialized bool
	streaming   bool

	cfg driver.CameraConfig

	autoCapture     bool
	captureInterval time.Duration
	lastCaptureAt   time.Time

	saveToStorage bool
}

func New(sensor driver.CameraSensor, store *storage.Manager, clock driver.Clock) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		sensor: sensor,
		store:  store,
		clock:  clock,
		cfg: driver.CameraConfig{
			FrameSize:        driver.FrameSizeVGA,
			Quality:          12,
			AutoExposure:     true,
			AutoGain:         true,
			AutoWhiteBalance: true,
		},
		captureInterval: 5 * time.Second,
		saveToStorage:   true,
	}
}

// Begin applies the full sensor configuration in one pass. On failure the
// manager stays uninitialized and every subsequent operation is a failing
// no-op.
func (m *Manager) Begin() bool {
	log.Println("Initializing camera...")

	if err := m.sensor.Init(m.cfg); err != nil {
		log.Printf("Camera init failed: %v", err)
		return false
	}

	m.initialized = true
	log.Println("Camera initialized successfully")
	return true
}

// End releases the sensor. Safe to call multiple times.
func (m *Manager) End() {
	if !m.initialized {
		return
	}
	if err := m.sensor.Deinit(); err != nil {
		log.Printf("Camera deinit failed: %v", err)
	}
	m.initialized = false
	m.streaming = false
	log.Println("Camera deinitialized")
}

// StartStream raises the logical streaming flag. Frame delivery stays with
// the transport layer; the flag also gates auto-capture.
func (m *Manager) StartStream() error {
	if !m.initialized {
		return ErrUninitialized
	}
	m.streaming = true
	log.Println("Camera streaming started")
	return nil
}

// StopStream lowers the streaming flag. Idempotent, callable in any state.
func (m *Manager) StopStream() {
	m.streaming = false
	log.Println("Camera streaming stopped")
}

func (m *Manager) IsStreaming() bool   { return m.streaming }
func (m *Manager) IsInitialized() bool { return m.initialized }

// CaptureImage acquires one frame and persists it through the storage
// manager. The frame buffer comes from the sensor's finite pool, so it is
// released on every exit path. An empty filename gets the generated
// img_<millis>.jpg name.
//
// Persistence intentionally skipped (storage disabled) is success;
// persistence attempted and failed is an error.
func (m *Manager) CaptureImage(filename string) error {
	if !m.initialized {
		log.Println("Camera not initialized")
		return ErrUninitialized
	}

	frame, err := m.sensor.AcquireFrame()
	if err != nil {
		return fmt.Errorf("camera capture failed: %w", err)
	}
	defer m.sensor.ReleaseFrame(frame)

	if !m.saveToStorage || m.store == nil {
		log.Println("Image captured (persistence skipped)")
		return nil
	}

	if filename == "" {
		filename = m.store.GenerateFilename("img", "jpg")
	}
	if err := m.store.WriteFile(filename, frame.Data); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	if _, err := m.store.RecordArtifact("image", filename, int64(len(frame.Data))); err != nil {
		log.Printf("Failed to index image %s: %v", filename, err)
	}

	log.Printf("Image captured: %s", filename)
	return nil
}

// SetAutoCapture arms or disarms the timer. The reference timestamp resets
// on arming so the first capture lands a full interval later, not
// immediately.
func (m *Manager) SetAutoCapture(enable bool, interval time.Duration) {
	m.autoCapture = enable
	if interval > 0 {
		m.captureInterval = interval
	}
	m.lastCaptureAt = m.clock()

	if enable {
		log.Printf("Auto capture enabled (interval: %v)", m.captureInterval)
	} else {
		log.Println("Auto capture disabled")
	}
}

func (m *Manager) IsAutoCaptureEnabled() bool { return m.autoCapture }

// SetSaveToStorage toggles persistence of captured frames.
func (m *Manager) SetSaveToStorage(enable bool) {
	m.saveToStorage = enable
}

// SetFrameSize clamps to the sensor's supported range and applies
// immediately when initialized, otherwise at the next Begin.
func (m *Manager) SetFrameSize(size driver.FrameSize) {
	if size < driver.FrameSize96x96 {
		size = driver.FrameSize96x96
	}
	if size > driver.FrameSizeUXGA {
		size = driver.FrameSizeUXGA
	}
	m.cfg.FrameSize = size
	m.apply("Frame size", int(size))
}

// SetJpegQuality clamps to 0..63 (lower is better quality).
func (m *Manager) SetJpegQuality(quality int) {
	m.cfg.Quality = clamp(quality, 0, 63)
	m.apply("JPEG quality", m.cfg.Quality)
}

func (m *Manager) SetBrightness(v int) {
	m.cfg.Brightness = clamp(v, -2, 2)
	m.apply("Brightness", m.cfg.Brightness)
}

func (m *Manager) SetContrast(v int) {
	m.cfg.Contrast = clamp(v, -2, 2)
	m.apply("Contrast", m.cfg.Contrast)
}

func (m *Manager) SetSaturation(v int) {
	m.cfg.Saturation = clamp(v, -2, 2)
	m.apply("Saturation", m.cfg.Saturation)
}

func (m *Manager) apply(name string, value int) {
	if !m.initialized {
		return
	}
	if err := m.sensor.Apply(m.cfg); err != nil {
		log.Printf("%s apply failed: %v", name, err)
		return
	}
	log.Printf("%s set to: %d", name, value)
}

func (m *Manager) GetFrameSize() driver.FrameSize { return m.cfg.FrameSize }
func (m *Manager) GetJpegQuality() int            { return m.cfg.Quality }
func (m *Manager) GetBrightness() int             { return m.cfg.Brightness }
func (m *Manager) GetContrast() int               { return m.cfg.Contrast }
func (m *Manager) GetSaturation() int             { return m.cfg.Saturation }

// Update evaluates the auto-capture timer once per poll tick. At most one
// capture fires per tick no matter how far behind schedule the loop has
// fallen; there is no burst catch-up.
func (m *Manager) Update() {
	if !m.initialized {
		return
	}
	if !m.autoCapture || !m.streaming {
		return
	}

	now := m.clock()
	if now.Sub(m.lastCaptureAt) < m.captureInterval {
		return
	}

	if err := m.CaptureImage(""); err != nil {
		log.Printf("Auto capture failed: %v", err)
	}
	m.lastCaptureAt = now
}

// TestCamera acquires and releases one frame as a self-test.
func (m *Manager) TestCamera() bool {
	if !m.initialized {
		log.Println("Camera not initialized")
		return false
	}

	frame, err := m.sensor.AcquireFrame()
	if err != nil {
		log.Printf("Camera test failed - no frame buffer: %v", err)
		return false
	}
	defer m.sensor.ReleaseFrame(frame)

	log.Printf("Camera test successful - Frame size: %dx%d, Length: %d bytes",
		frame.Width, frame.Height, len(frame.Data))
	return true
}

// Status returns a human-readable summary for the status surface.
func (m *Manager) Status() string {
	state := "Not initialized"
	if m.initialized {
		state = "Initialized"
	}
	streaming := "No"
	if m.streaming {
		streaming = "Yes"
	}
	return fmt.Sprintf("Camera: %s (Streaming: %s, Quality: %d)", state, streaming, m.cfg.Quality)
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
