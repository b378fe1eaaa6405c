// Package poll drives the peripheral managers from one cooperative,
// single-threaded loop. Each iteration fans out Update once per manager in
// a fixed order; there is no preemption and no background scheduling.
package poll

import (
	"context"
	"time"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
)

// Updater is one poll participant. Update must not block beyond its
// driver-bounded calls.
type Updater interface {
	Update()
}

// Ender is implemented by managers needing teardown when the loop exits.
type Ender interface {
	End()
}

type Loop struct {
	updaters []Updater
	interval time.Duration
}

func NewLoop(interval time.Duration, updaters ...Updater) *Loop {
	return &Loop{
		updaters: updaters,
		interval: interval,
	}
}

// Add appends an updater; order of registration is the update order.
func (l *Loop) Add(u Updater) {
	l.updaters = append(l.updaters, u)
}

// Tick runs one fan-out in registration order.
func (l *Loop) Tick() {
	for _, u := range l.updaters {
		u.Update()
	}
}

// Run ticks until the context is cancelled, then tears down any Enders in
// reverse registration order.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

func (l *Loop) shutdown() {
	for i := len(l.updaters) - 1; i >= 0; i-- {
		if e, ok := l.updaters[i].(Ender); ok {
			e.End()
		}
	}
}

// Interval is an explicit (referenceTimestamp, interval) pair, the
// cooperative substitute for a timer interrupt. Due reports at most one
// firing per call and never bursts to catch up on missed periods.
type Interval struct {
	clock driver.Clock
	every time.Duration
	last  time.Time
}

func NewInterval(every time.Duration, clock driver.Clock) *Interval {
	if clock == nil {
		clock = time.Now
	}
	return &Interval{
		clock: clock,
		every: every,
		last:  clock(),
	}
}

// Due reports whether the interval has elapsed, advancing the reference to
// now when it has.
func (iv *Interval) Due() bool {
	now := iv.clock()
	if now.Sub(iv.last) < iv.every {
		return false
	}
	iv.last = now
	return true
}

// Reset moves the reference to now, so the next firing is a full interval
// away.
func (iv *Interval) Reset() {
	iv.last = iv.clock()
}
