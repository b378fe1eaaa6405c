// Package driver defines the hardware contracts the peripheral managers are
// written against. Concrete implementations live next to the hardware they
// wrap; tests use the fakes in drivertest. Any error returned by a driver is
// a recoverable failure of that call, never a fatal condition.
package driver

import "time"

// Clock supplies the monotonic reference all poll-driven timers compare
// against. Production code passes time.Now; tests pass a manual clock.
type Clock func() time.Time

// AudioFormat is the named I2S configuration value object, built once per
// Begin or setting change and validated before install.
type AudioFormat struct {
	SampleRate int
	BitDepth   int
	BufferSize int
}

// AudioInput models the capture side of the I2S unit. Install claims the
// unit with the given configuration and data-in pin; Uninstall releases it.
// Read blocks at most the driver's own timeout and returns the bytes moved.
type AudioInput interface {
	Install(cfg AudioFormat, dataPin int) error
	Uninstall() error
	Read(buf []byte) (int, error)
}

// Speaker is the tone output contract. PlayTone must not block; tone
// generation is advanced by/inside the driver, Update gives it a chance to
// do so once per poll tick.
type Speaker interface {
	Begin(pin int) error
	PlayTone(frequencyHz, durationMs int) error
	SetVolume(v int)
	Stop()
	Update()
}

// FrameSize enumerates the sensor's supported resolutions.
type FrameSize int

const (
	FrameSize96x96 FrameSize = iota // 96x96
	FrameSizeQQVGA                  // 160x120
	FrameSizeQCIF                   // 176x144
	FrameSizeHQVGA                  // 240x176
	FrameSize240                    // 240x240
	FrameSizeQVGA                   // 320x240
	FrameSizeCIF                    // 400x296
	FrameSizeHVGA                   // 480x320
	FrameSizeVGA                    // 640x480
	FrameSizeSVGA                   // 800x600
	FrameSizeXGA                    // 1024x768
	FrameSizeHD                     // 1280x720
	FrameSizeSXGA                   // 1280x1024
	FrameSizeUXGA                   // 1600x1200
)

// Dimensions returns the pixel width and height of the frame size.
func (fs FrameSize) Dimensions() (w, h int) {
	dims := [...][2]int{
		{96, 96}, {160, 120}, {176, 144}, {240, 176}, {240, 240},
		{320, 240}, {400, 296}, {480, 320}, {640, 480}, {800, 600},
		{1024, 768}, {1280, 720}, {1280, 1024}, {1600, 1200},
	}
	if fs < 0 || int(fs) >= len(dims) {
		fs = FrameSizeVGA
	}
	return dims[fs][0], dims[fs][1]
}

// CameraConfig is the full sensor tuning value object applied in one pass.
type CameraConfig struct {
	FrameSize  FrameSize
	Quality    int // 0-63, lower is better
	Brightness int // -2..2
	Contrast   int // -2..2
	Saturation int // -2..2

	AutoExposure     bool
	AutoGain         bool
	AutoWhiteBalance bool
}

// Frame is one encoded image from the sensor's finite buffer pool. It must
// be handed back via ReleaseFrame on every path.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// CameraSensor is the image sensor contract. AcquireFrame may block up to
// the driver's own timeout.
type CameraSensor interface {
	Init(cfg CameraConfig) error
	Deinit() error
	Apply(cfg CameraConfig) error
	AcquireFrame() (*Frame, error)
	ReleaseFrame(f *Frame)
}

// UsageInfo reports a medium's capacity figures in bytes.
type UsageInfo struct {
	Total uint64
	Used  uint64
}

// FileInfo describes one stored file, as returned by Medium.List.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Medium is one physical store (SD card, onboard flash). Available is a
// fresh probe, called per routing decision so hot-removal is detected.
// Paths are relative to the medium root.
type Medium interface {
	Name() string
	Available() bool
	MkdirAll(dir string) error
	WriteFile(path string, data []byte) error
	AppendFile(path string, data []byte) error
	ReadFile(path string) ([]byte, error)
	Remove(path string) error
	Exists(path string) bool
	Size(path string) (int64, error)
	List(dir string) ([]FileInfo, error)
	Usage() (UsageInfo, error)
}
