// Package gpiospeaker drives a piezo speaker on a GPIO pin through periph.io.
// Tones are square waves with the high time scaled by the volume setting.
package gpiospeaker

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type Speaker struct {
	mu     sync.Mutex
	pin    gpio.PinIO
	volume int
	stop   chan struct{}
}

func New() *Speaker {
	return &Speaker{volume: 50}
}

func (s *Speaker) Begin(pinNum int) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize GPIO host: %w", err)
	}

	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", pinNum))
	if pin == nil {
		return fmt.Errorf("no GPIO pin %d", pinNum)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to configure pin %d: %w", pinNum, err)
	}

	s.mu.Lock()
	s.pin = pin
	s.mu.Unlock()
	return nil
}

// PlayTone starts generating the tone and returns immediately. A tone already
// in progress is cut off. The wave runs on the driver's own goroutine; it
// only toggles the pin and never touches manager state.
func (s *Speaker) PlayTone(frequencyHz, durationMs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pin == nil {
		return fmt.Errorf("speaker pin not configured")
	}
	if frequencyHz <= 0 || durationMs <= 0 {
		return fmt.Errorf("invalid tone %dHz/%dms", frequencyHz, durationMs)
	}

	if s.stop != nil {
		close(s.stop)
	}
	stop := make(chan struct{})
	s.stop = stop

	period := time.Second / time.Duration(frequencyHz)
	highTime := period / 2 * time.Duration(s.volume) / 100
	lowTime := period - highTime
	deadline := time.Now().Add(time.Duration(durationMs) * time.Millisecond)

	go s.wave(s.pin, stop, deadline, highTime, lowTime)
	return nil
}

func (s *Speaker) wave(pin gpio.PinIO, stop chan struct{}, deadline time.Time, highTime, lowTime time.Duration) {
	defer pin.Out(gpio.Low)
	for time.Now().Before(deadline) {
		select {
		case <-stop:
			return
		default:
		}
		if highTime > 0 {
			pin.Out(gpio.High)
			time.Sleep(highTime)
		}
		pin.Out(gpio.Low)
		time.Sleep(lowTime)
	}
}

func (s *Speaker) SetVolume(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	if s.pin != nil {
		s.pin.Out(gpio.Low)
	}
}

// Update is a no-op; the wave goroutine paces itself against the deadline.
func (s *Speaker) Update() {}
