package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver/drivertest"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/storage"
)

type fixture struct {
	m      *Manager
	sensor *drivertest.Sensor
	store  *storage.Manager
	sd     *drivertest.Medium
	clock  *drivertest.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := drivertest.NewClock()
	sensor := &drivertest.Sensor{FrameW: 640, FrameH: 480}
	sd := drivertest.NewMedium("SD", clock.Now)
	store := storage.New(clock.Now, sd)
	store.Begin()
	return &fixture{
		m:      New(sensor, store, clock.Now),
		sensor: sensor,
		store:  store,
		sd:     sd,
		clock:  clock,
	}
}

func TestOperationsBeforeBeginAreFailingNoOps(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.m.StartStream(), ErrUninitialized)
	assert.ErrorIs(t, f.m.CaptureImage(""), ErrUninitialized)
	assert.False(t, f.m.TestCamera())
	assert.Zero(t, f.sensor.Acquired, "no driver calls before begin")

	f.m.Update() // must not capture either
	assert.Zero(t, f.sensor.Acquired)
}

func TestBeginAppliesFullConfigOnce(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.m.Begin())
	require.Len(t, f.sensor.Applied, 1)
	cfg := f.sensor.Applied[0]
	assert.Equal(t, driver.FrameSizeVGA, cfg.FrameSize)
	assert.Equal(t, 12, cfg.Quality)
	assert.True(t, cfg.AutoExposure)
	assert.True(t, cfg.AutoGain)
	assert.True(t, cfg.AutoWhiteBalance)
}

func TestBeginFailureLeavesManagerInert(t *testing.T) {
	f := newFixture(t)
	f.sensor.InitErr = assert.AnError

	assert.False(t, f.m.Begin())
	assert.False(t, f.m.IsInitialized())
	assert.ErrorIs(t, f.m.CaptureImage(""), ErrUninitialized)
}

func TestCaptureImagePersistsAndReleasesFrame(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())

	require.NoError(t, f.m.CaptureImage("shot.jpg"))
	assert.True(t, f.sd.Exists("images/shot.jpg"))
	assert.Zero(t, f.sensor.Leaked(), "frame returned to the pool")

	artifacts := f.store.Artifacts()
	require.Len(t, artifacts, 1)
	assert.Equal(t, "image", artifacts[0].Kind)
}

func TestCaptureImageReleasesFrameOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())

	f.sd.Unplugged = true
	assert.Error(t, f.m.CaptureImage("lost.jpg"), "persistence attempted and failed")
	assert.Zero(t, f.sensor.Leaked(), "frame released on the failure path too")
}

func TestCaptureImageSkippedPersistenceIsSuccess(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())

	f.m.SetSaveToStorage(false)
	f.sd.Unplugged = true // would fail if attempted
	assert.NoError(t, f.m.CaptureImage(""), "intentionally skipped persistence is not an error")
	assert.Zero(t, f.sensor.Leaked())
}

func TestGeneratedFilename(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())

	require.NoError(t, f.m.CaptureImage(""))
	files, err := f.sd.List("images")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Regexp(t, `^img_\d+\.jpg$`, files[0].Name)
}

func TestStreamingFlag(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())

	require.NoError(t, f.m.StartStream())
	assert.True(t, f.m.IsStreaming())

	f.m.StopStream()
	assert.False(t, f.m.IsStreaming())
	f.m.StopStream() // idempotent
	assert.False(t, f.m.IsStreaming())
}

func TestAutoCaptureSchedule(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())
	require.NoError(t, f.m.StartStream())

	f.m.SetAutoCapture(true, time.Second)
	f.m.Update()
	assert.Zero(t, f.sensor.Acquired, "first capture waits a full interval after arming")

	// Updates spaced 1000ms apart across 3500ms: exactly 3 captures.
	for _, step := range []time.Duration{1000, 1000, 1000, 500} {
		f.clock.Advance(step * time.Millisecond)
		f.m.Update()
	}
	assert.Equal(t, 3, f.sensor.Acquired)
	assert.Zero(t, f.sensor.Leaked())
}

func TestAutoCaptureNoBurstCatchUp(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())
	require.NoError(t, f.m.StartStream())
	f.m.SetAutoCapture(true, time.Second)

	// Loop stalls for five intervals; a single tick still captures once.
	f.clock.Advance(5 * time.Second)
	f.m.Update()
	assert.Equal(t, 1, f.sensor.Acquired)
}

func TestAutoCaptureRequiresStreaming(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())
	f.m.SetAutoCapture(true, time.Second)

	f.clock.Advance(3 * time.Second)
	f.m.Update()
	assert.Zero(t, f.sensor.Acquired, "auto-capture only fires while streaming")
}

func TestSettersClampAndApply(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())

	f.m.SetJpegQuality(99)
	assert.Equal(t, 63, f.m.GetJpegQuality())
	f.m.SetJpegQuality(-1)
	assert.Equal(t, 0, f.m.GetJpegQuality())

	f.m.SetBrightness(5)
	assert.Equal(t, 2, f.m.GetBrightness())
	f.m.SetContrast(-7)
	assert.Equal(t, -2, f.m.GetContrast())
	f.m.SetSaturation(1)
	assert.Equal(t, 1, f.m.GetSaturation())

	f.m.SetFrameSize(driver.FrameSize(99))
	assert.Equal(t, driver.FrameSizeUXGA, f.m.GetFrameSize())

	// Begin + six applied setter passes.
	assert.Len(t, f.sensor.Applied, 7)
	last := f.sensor.Applied[len(f.sensor.Applied)-1]
	assert.Equal(t, 0, last.Quality)
	assert.Equal(t, 2, last.Brightness)
}

func TestSettersBufferedUntilBegin(t *testing.T) {
	f := newFixture(t)

	f.m.SetJpegQuality(30)
	f.m.SetBrightness(1)
	assert.Empty(t, f.sensor.Applied, "nothing applied before begin")

	require.True(t, f.m.Begin())
	require.Len(t, f.sensor.Applied, 1)
	assert.Equal(t, 30, f.sensor.Applied[0].Quality)
	assert.Equal(t, 1, f.sensor.Applied[0].Brightness)
}

func TestEndIdempotent(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.m.Begin())
	require.NoError(t, f.m.StartStream())

	f.m.End()
	assert.False(t, f.m.IsInitialized())
	assert.False(t, f.m.IsStreaming())
	f.m.End() // second call is a no-op
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "Camera: Not initialized (Streaming: No, Quality: 12)", f.m.Status())

	require.True(t, f.m.Begin())
	require.NoError(t, f.m.StartStream())
	assert.Equal(t, "Camera: Initialized (Streaming: Yes, Quality: 12)", f.m.Status())
}
