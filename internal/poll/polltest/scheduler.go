// Package polltest provides a manual clock and scheduler for driving poll
// timers from tests.
package polltest

import (
	"sync"
	"time"

	"pollroom/internal/poll"
)

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Scheduler records armed timers and fires them only when told to.
type Scheduler struct {
	mu     sync.Mutex
	timers []*Timer
}

// Timer is a timer armed through Scheduler.
type Timer struct {
	After   time.Duration
	f       func()
	stopped bool
	fired   bool
	mu      sync.Mutex
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) poll.Timer {
	t := &Timer{After: d, f: f}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

// Armed returns every timer created so far, in creation order.
func (s *Scheduler) Armed() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Timer(nil), s.timers...)
}

// Last returns the most recently armed timer, or nil.
func (s *Scheduler) Last() *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// Stopped reports whether Stop was called.
func (t *Timer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Fire runs the callback as if the deadline had passed. Like time.AfterFunc,
// a timer that was stopped does not run; FireAnyway ignores that to simulate
// a callback already in flight when Stop was called.
func (t *Timer) Fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.f()
}

func (t *Timer) FireAnyway() {
	t.mu.Lock()
	t.fired = true
	t.mu.Unlock()
	t.f()
}
