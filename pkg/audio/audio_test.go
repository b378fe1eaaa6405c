package audio

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver/drivertest"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/storage"
)

type fixture struct {
	m     *Manager
	input *drivertest.AudioInput
	spk   *drivertest.Speaker
	store *storage.Manager
	sd    *drivertest.Medium
	clock *drivertest.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := drivertest.NewClock()
	input := &drivertest.AudioInput{ReadData: []byte{0x01, 0x02, 0x03, 0x04}}
	spk := &drivertest.Speaker{}
	sd := drivertest.NewMedium("SD", clock.Now)
	store := storage.New(clock.Now, sd)
	store.Begin()

	m, err := New(0, input, spk, store, clock.Now)
	require.NoError(t, err)
	t.Cleanup(m.End)
	return &fixture{m: m, input: input, spk: spk, store: store, sd: sd, clock: clock}
}

func TestOperationsBeforeBeginFail(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.m.StartCapture(), ErrUninitialized)
	assert.ErrorIs(t, f.m.PlayTone(440, 100), ErrUninitialized)
	assert.ErrorIs(t, f.m.PlaySystemSound(SoundAlert), ErrUninitialized)
	assert.Equal(t, Idle, f.m.CurrentMode(), "failed operations must not mutate state")
	assert.Zero(t, f.m.CaptureAudio(make([]byte, 16)))
}

func TestBeginDegradesPerSubsystem(t *testing.T) {
	f := newFixture(t)
	f.input.InstallErr = assert.AnError

	assert.True(t, f.m.Begin(25, 26), "speaker alone keeps the manager usable")
	assert.True(t, f.m.IsSpeakerReady())
	assert.False(t, f.m.IsMicrophoneReady())

	// Playback capability survives the dead microphone.
	require.NoError(t, f.m.PlayTone(1000, 500))
	assert.True(t, f.m.IsPlaying())

	err := f.m.StartCapture()
	assert.ErrorIs(t, err, ErrCapabilityConflict, "playing blocks capture before the mic check")

	f.m.Stop()
	assert.ErrorIs(t, f.m.StartCapture(), ErrUninitialized)
}

func TestBeginProbeLeavesDriverUninstalled(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.m.Begin(25, 26))
	assert.False(t, f.input.Installed, "install is deferred to StartCapture")
	assert.Equal(t, 1, f.input.InstallCalls, "begin probes with a rolled-back install")
}

func TestHalfDuplexConflicts(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))

	require.NoError(t, f.m.StartCapture())
	err := f.m.PlayTone(440, 100)
	assert.ErrorIs(t, err, ErrCapabilityConflict)
	assert.Equal(t, Capturing, f.m.CurrentMode(), "mode unchanged after rejected playback")

	f.m.StopCapture()
	require.NoError(t, f.m.PlayTone(440, 100))
	err = f.m.StartCapture()
	assert.ErrorIs(t, err, ErrCapabilityConflict)
	assert.Equal(t, Playing, f.m.CurrentMode(), "mode unchanged after rejected capture")
}

func TestStartCaptureIdempotent(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))

	require.NoError(t, f.m.StartCapture())
	installs := f.input.InstallCalls
	require.NoError(t, f.m.StartCapture(), "second start reports success, not error")
	assert.Equal(t, installs, f.input.InstallCalls, "no second install")
}

func TestStopCaptureIdempotent(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))
	require.NoError(t, f.m.StartCapture())

	f.m.StopCapture()
	state := f.m.CurrentMode()
	f.m.StopCapture()
	assert.Equal(t, state, f.m.CurrentMode(), "double stop leaves identical state")
	assert.False(t, f.input.Installed)
}

func TestStartCaptureDriverErrorLeavesModeUntouched(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))

	f.input.InstallErr = assert.AnError
	assert.Error(t, f.m.StartCapture())
	assert.Equal(t, Idle, f.m.CurrentMode())
}

func TestCaptureAudioReadsAndStages(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))
	require.NoError(t, f.m.StartCapture())

	buf := make([]byte, 16)
	n := f.m.CaptureAudio(buf)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf[:n])
}

func TestPlaybackFinishesViaUpdate(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))

	require.NoError(t, f.m.PlayTone(1000, 500))

	f.clock.Advance(100 * time.Millisecond)
	f.m.Update()
	assert.True(t, f.m.IsPlaying(), "still playing at t=100ms")

	f.clock.Advance(200 * time.Millisecond)
	f.m.Update()
	assert.True(t, f.m.IsPlaying(), "still playing at t=300ms")

	f.clock.Advance(300 * time.Millisecond)
	f.m.Update()
	assert.False(t, f.m.IsPlaying(), "finished at t=600ms")
	assert.Equal(t, Idle, f.m.CurrentMode())
}

func TestStopIsIdempotentAndLeavesCaptureAlone(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))

	f.m.Stop() // never started: no-op
	assert.Equal(t, Idle, f.m.CurrentMode())

	require.NoError(t, f.m.StartCapture())
	f.m.Stop()
	assert.Equal(t, Capturing, f.m.CurrentMode(), "Stop targets playback only")
}

func TestVolumeClamped(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))

	f.m.SetVolume(150)
	assert.Equal(t, 100, f.m.GetVolume())
	assert.Equal(t, 100, f.spk.Volume)

	f.m.SetVolume(-5)
	assert.Equal(t, 0, f.m.GetVolume())
}

func TestVolumeBufferedUntilBegin(t *testing.T) {
	f := newFixture(t)

	f.m.SetVolume(80)
	assert.Zero(t, f.spk.Volume, "not applied before begin")

	require.True(t, f.m.Begin(25, 26))
	assert.Equal(t, 80, f.spk.Volume, "applied at begin")
}

func TestSystemSounds(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))

	require.NoError(t, f.m.PlaySystemSound(SoundAlert))
	require.Len(t, f.spk.Tones, 1)
	assert.Equal(t, drivertest.Tone{Frequency: 1000, Duration: 100}, f.spk.Tones[0])
	assert.True(t, f.m.IsPlaying())

	// Playing window covers the trailing pause.
	f.clock.Advance(120 * time.Millisecond)
	f.m.Update()
	assert.True(t, f.m.IsPlaying(), "pause still counts as playing")
	f.clock.Advance(40 * time.Millisecond)
	f.m.Update()
	assert.False(t, f.m.IsPlaying())
}

func TestSystemSoundsDisabledIsNoOp(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))

	f.m.EnableSystemSounds(false)
	assert.NoError(t, f.m.PlaySystemSound(SoundSiren))
	assert.Empty(t, f.spk.Tones)
	assert.False(t, f.m.IsPlaying())
}

func TestQualityPresets(t *testing.T) {
	f := newFixture(t)

	f.m.SetQuality(QualityLow)
	assert.Equal(t, 8000, f.m.GetSampleRate())
	assert.Equal(t, 8, f.m.GetBitDepth())

	f.m.SetQuality(QualityHigh)
	assert.Equal(t, 44100, f.m.GetSampleRate())
	assert.Equal(t, 16, f.m.GetBitDepth())
}

func TestFormatAppliedAtNextInstall(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))

	f.m.SetSampleRate(44100)
	f.m.SetBitDepth(16)
	require.NoError(t, f.m.StartCapture())
	assert.Equal(t, 44100, f.input.LastConfig.SampleRate)
	assert.Equal(t, 26, f.input.LastDataPin)
}

func TestSaveClipWritesWAVArtifact(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))
	require.NoError(t, f.m.StartCapture())

	buf := make([]byte, 16)
	require.NotZero(t, f.m.CaptureAudio(buf))

	require.NoError(t, f.m.SaveClip("clip.wav"))
	data, err := f.sd.ReadFile("audio/clip.wav")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("RIFF")), "WAV container header")

	artifacts := f.store.Artifacts()
	require.Len(t, artifacts, 1)
	assert.Equal(t, "audio", artifacts[0].Kind)
}

func TestSaveClipWithoutStagedAudioFails(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))
	assert.Error(t, f.m.SaveClip("empty.wav"))
}

func TestUnitClaim(t *testing.T) {
	f := newFixture(t)

	_, err := New(0, &drivertest.AudioInput{}, &drivertest.Speaker{}, nil, f.clock.Now)
	assert.ErrorIs(t, err, ErrUnitClaimed)

	f.m.End()
	second, err := New(0, &drivertest.AudioInput{}, &drivertest.Speaker{}, nil, f.clock.Now)
	require.NoError(t, err, "End releases the unit claim")
	second.End()
}

func TestEndSafeToCallTwice(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin(25, 26))
	require.NoError(t, f.m.StartCapture())

	f.m.End()
	f.m.End()
	assert.False(t, f.input.Installed)
	assert.Equal(t, Idle, f.m.CurrentMode())
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.input.InstallErr = assert.AnError
	f.m.Begin(25, 26)

	assert.Equal(t, "Audio: Speaker OK, Mic Error (Vol: 50%)", f.m.Status())
}
