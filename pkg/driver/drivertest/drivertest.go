// Package drivertest provides in-memory driver fakes with scriptable failure
// modes, plus a manual clock, for manager tests.
package drivertest

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
)

// Clock is a manually advanced clock for exercising poll-driven timers.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AudioInput is a fake I2S capture unit.
type AudioInput struct {
	InstallErr error
	ReadErr    error
	ReadData   []byte // returned by every Read

	Installed     bool
	InstallCalls  int
	UninstallOnly bool // reject Read even when installed
	LastConfig    driver.AudioFormat
	LastDataPin   int
}

func (a *AudioInput) Install(cfg driver.AudioFormat, dataPin int) error {
	a.InstallCalls++
	if a.InstallErr != nil {
		return a.InstallErr
	}
	a.Installed = true
	a.LastConfig = cfg
	a.LastDataPin = dataPin
	return nil
}

func (a *AudioInput) Uninstall() error {
	a.Installed = false
	return nil
}

func (a *AudioInput) Read(buf []byte) (int, error) {
	if !a.Installed || a.UninstallOnly {
		return 0, errors.New("i2s not installed")
	}
	if a.ReadErr != nil {
		return 0, a.ReadErr
	}
	return copy(buf, a.ReadData), nil
}

// Tone records one PlayTone call.
type Tone struct {
	Frequency int
	Duration  int
}

// Speaker is a fake tone output.
type Speaker struct {
	BeginErr error
	ToneErr  error

	Begun       bool
	Pin         int
	Volume      int
	Stopped     int
	UpdateCalls int
	Tones       []Tone
}

func (s *Speaker) Begin(pin int) error {
	if s.BeginErr != nil {
		return s.BeginErr
	}
	s.Begun = true
	s.Pin = pin
	return nil
}

func (s *Speaker) PlayTone(frequencyHz, durationMs int) error {
	if s.ToneErr != nil {
		return s.ToneErr
	}
	s.Tones = append(s.Tones, Tone{Frequency: frequencyHz, Duration: durationMs})
	return nil
}

func (s *Speaker) SetVolume(v int) { s.Volume = v }
func (s *Speaker) Stop()           { s.Stopped++ }
func (s *Speaker) Update()         { s.UpdateCalls++ }

// Sensor is a fake camera sensor tracking the frame-buffer pool balance.
type Sensor struct {
	InitErr    error
	AcquireErr error
	FrameData  []byte
	FrameW     int
	FrameH     int

	Initialized bool
	Acquired    int // frames handed out
	Released    int // frames handed back
	Applied     []driver.CameraConfig
}

func (s *Sensor) Init(cfg driver.CameraConfig) error {
	if s.InitErr != nil {
		return s.InitErr
	}
	s.Initialized = true
	s.Applied = append(s.Applied, cfg)
	return nil
}

func (s *Sensor) Deinit() error {
	s.Initialized = false
	return nil
}

func (s *Sensor) Apply(cfg driver.CameraConfig) error {
	s.Applied = append(s.Applied, cfg)
	return nil
}

func (s *Sensor) AcquireFrame() (*driver.Frame, error) {
	if !s.Initialized {
		return nil, errors.New("sensor not initialized")
	}
	if s.AcquireErr != nil {
		return nil, s.AcquireErr
	}
	s.Acquired++
	data := s.FrameData
	if data == nil {
		data = []byte{0xff, 0xd8, 0xff, 0xd9} // minimal JPEG marker pair
	}
	return &driver.Frame{Data: data, Width: s.FrameW, Height: s.FrameH}, nil
}

func (s *Sensor) ReleaseFrame(f *driver.Frame) {
	if f != nil {
		s.Released++
	}
}

// Leaked reports frames acquired but never released.
func (s *Sensor) Leaked() int { return s.Acquired - s.Released }

// Medium is an in-memory store whose availability can be toggled mid-test.
type Medium struct {
	MediumName string
	Unplugged  bool // simulates hot removal
	WriteErr   error
	Total      uint64

	mu       sync.Mutex
	files    map[string][]byte
	modTimes map[string]time.Time
	clock    driver.Clock
}

func NewMedium(name string, clock driver.Clock) *Medium {
	if clock == nil {
		clock = time.Now
	}
	return &Medium{
		MediumName: name,
		Total:      1 << 30,
		files:      make(map[string][]byte),
		modTimes:   make(map[string]time.Time),
		clock:      clock,
	}
}

func (m *Medium) Name() string    { return m.MediumName }
func (m *Medium) Available() bool { return !m.Unplugged }

func (m *Medium) MkdirAll(dir string) error {
	if m.Unplugged {
		return errors.New("medium unavailable")
	}
	return nil
}

func (m *Medium) WriteFile(p string, data []byte) error {
	if m.Unplugged {
		return errors.New("medium unavailable")
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = append([]byte(nil), data...)
	m.modTimes[p] = m.clock()
	return nil
}

func (m *Medium) AppendFile(p string, data []byte) error {
	if m.Unplugged {
		return errors.New("medium unavailable")
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = append(m.files[p], data...)
	m.modTimes[p] = m.clock()
	return nil
}

func (m *Medium) ReadFile(p string) ([]byte, error) {
	if m.Unplugged {
		return nil, errors.New("medium unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	if !ok {
		return nil, errors.New("file not found")
	}
	return append([]byte(nil), data...), nil
}

func (m *Medium) Remove(p string) error {
	if m.Unplugged {
		return errors.New("medium unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; !ok {
		return errors.New("file not found")
	}
	delete(m.files, p)
	delete(m.modTimes, p)
	return nil
}

func (m *Medium) Exists(p string) bool {
	if m.Unplugged {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[p]
	return ok
}

func (m *Medium) Size(p string) (int64, error) {
	if m.Unplugged {
		return 0, errors.New("medium unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	if !ok {
		return 0, errors.New("file not found")
	}
	return int64(len(data)), nil
}

func (m *Medium) List(dir string) ([]driver.FileInfo, error) {
	if m.Unplugged {
		return nil, errors.New("medium unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var infos []driver.FileInfo
	prefix := strings.TrimSuffix(dir, "/") + "/"
	for p, data := range m.files {
		if strings.HasPrefix(p, prefix) {
			infos = append(infos, driver.FileInfo{
				Name:    path.Base(p),
				Size:    int64(len(data)),
				ModTime: m.modTimes[p],
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (m *Medium) Usage() (driver.UsageInfo, error) {
	if m.Unplugged {
		return driver.UsageInfo{}, errors.New("medium unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var used uint64
	for _, data := range m.files {
		used += uint64(len(data))
	}
	return driver.UsageInfo{Total: m.Total, Used: used}, nil
}
