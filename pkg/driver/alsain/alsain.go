// Package alsain implements the audio input contract on top of an arecord
// pipe. Install starts the capture process; Read pulls PCM off its stdout,
// bounded by the process producing data at the configured rate.
package alsain

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
)

type Input struct {
	device string
	cmd    *exec.Cmd
	out    io.ReadCloser
}

// New builds an input for the given ALSA device, e.g. "plughw:0,0".
func New(device string) *Input {
	if device == "" {
		device = "default"
	}
	return &Input{device: device}
}

// Install starts the capture process with the given format. The data pin is
// meaningless on ALSA hardware and ignored.
func (a *Input) Install(cfg driver.AudioFormat, _ int) error {
	if a.cmd != nil {
		return fmt.Errorf("capture already installed")
	}

	format := "S16_LE"
	if cfg.BitDepth == 8 {
		format = "U8"
	}

	cmd := exec.Command("arecord",
		"-D", a.device,
		"-f", format,
		"-r", strconv.Itoa(cfg.SampleRate),
		"-c", "1",
		"-t", "raw",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	a.cmd = cmd
	a.out = stdout
	return nil
}

func (a *Input) Uninstall() error {
	if a.cmd == nil {
		return nil
	}

	a.out.Close()
	if a.cmd.Process != nil {
		a.cmd.Process.Kill()
		a.cmd.Wait()
	}
	a.cmd = nil
	a.out = nil
	return nil
}

func (a *Input) Read(buf []byte) (int, error) {
	if a.out == nil {
		return 0, fmt.Errorf("capture not installed")
	}
	return a.out.Read(buf)
}
