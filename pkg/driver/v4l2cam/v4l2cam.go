// Package v4l2cam implements the camera sensor contract over a V4L2 device,
// grabbing single JPEG frames through ffmpeg and pushing tuning controls
// through v4l2-ctl.
package v4l2cam

import (
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
)

type Sensor struct {
	device      string
	cfg         driver.CameraConfig
	initialized bool
}

// New builds a sensor for the given V4L2 device, e.g. "/dev/video0".
func New(device string) *Sensor {
	if device == "" {
		device = "/dev/video0"
	}
	return &Sensor{device: device}
}

func (s *Sensor) Init(cfg driver.CameraConfig) error {
	if _, err := os.Stat(s.device); err != nil {
		return fmt.Errorf("camera device %s not found: %w", s.device, err)
	}
	s.cfg = cfg
	s.initialized = true
	s.pushControls()
	return nil
}

func (s *Sensor) Deinit() error {
	s.initialized = false
	return nil
}

func (s *Sensor) Apply(cfg driver.CameraConfig) error {
	if !s.initialized {
		return fmt.Errorf("sensor not initialized")
	}
	s.cfg = cfg
	s.pushControls()
	return nil
}

// pushControls forwards tuning values to the device. Best effort: cameras
// differ in which controls they expose.
func (s *Sensor) pushControls() {
	controls := map[string]int{
		// V4L2 controls are 0..255-ish; center the -2..2 range on 128.
		"brightness": 128 + s.cfg.Brightness*32,
		"contrast":   128 + s.cfg.Contrast*32,
		"saturation": 128 + s.cfg.Saturation*32,
	}
	for name, value := range controls {
		cmd := exec.Command("v4l2-ctl", "-d", s.device,
			fmt.Sprintf("--set-ctrl=%s=%d", name, value))
		if err := cmd.Run(); err != nil {
			log.Printf("Failed to set %s on %s: %v", name, s.device, err)
		}
	}
}

// AcquireFrame grabs one JPEG frame. The pool contract is satisfied
// trivially here (ffmpeg hands us an owned buffer), but callers still pair
// it with ReleaseFrame so sensor backends with real pools drop in cleanly.
func (s *Sensor) AcquireFrame() (*driver.Frame, error) {
	if !s.initialized {
		return nil, fmt.Errorf("sensor not initialized")
	}

	w, h := s.cfg.FrameSize.Dimensions()
	cmd := exec.Command("ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-i", s.device,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", fmt.Sprintf("%d", 2+s.cfg.Quality/8), // map 0..63 onto ffmpeg 2..9
		"pipe:1",
	)

	data, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("frame grab failed: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("frame grab produced no data")
	}

	return &driver.Frame{Data: data, Width: w, Height: h}, nil
}

func (s *Sensor) ReleaseFrame(f *driver.Frame) {}
