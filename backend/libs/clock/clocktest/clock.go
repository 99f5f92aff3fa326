// Package clocktest provides a manually advanced clock.
package clocktest

import (
	"sync"
	"time"

	"vendkiosk/backend/libs/clock"
)

// Clock fires scheduled callbacks only when Advance moves time past their deadline.
// Callbacks run on the goroutine calling Advance, outside the clock lock.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*timer
}

type timer struct {
	c       *Clock
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// New returns a clock starting at start.
func New(start time.Time) *Clock {
	return &Clock{now: start}
}

var _ clock.Clock = (*Clock)(nil)

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (c *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{c: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due callbacks in deadline order.
// Timers scheduled by a callback fire in the same call if they fall due.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.popDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

// Pending reports how many timers are scheduled and not stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *Clock) popDueLocked(target time.Time) *timer {
	idx := -1
	for i, t := range c.timers {
		if t.stopped || t.fired || t.at.After(target) {
			continue
		}
		if idx == -1 || t.at.Before(c.timers[idx].at) || (t.at.Equal(c.timers[idx].at) && t.seq < c.timers[idx].seq) {
			idx = i
		}
	}
	if idx == -1 {
		c.compactLocked()
		return nil
	}
	t := c.timers[idx]
	t.fired = true
	c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
	return t
}

func (c *Clock) compactLocked() {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live
}

func (t *timer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}
