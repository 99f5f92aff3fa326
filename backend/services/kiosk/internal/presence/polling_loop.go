package presence

import (
	"sync"
	"time"

	"vendkiosk/backend/libs/clock"
)

// Mode selects which presence direction the loop is watching.
type Mode int

const (
	ModeOff Mode = iota
	ModeDetecting
	ModeMonitoring
)

func (m Mode) String() string {
	switch m {
	case ModeDetecting:
		return "detecting"
	case ModeMonitoring:
		return "monitoring"
	default:
		return "off"
	}
}

// Intervals holds the fixed cadence of each mode.
type Intervals struct {
	Detect  time.Duration
	Monitor time.Duration
}

func (i Intervals) forMode(mode Mode) time.Duration {
	if mode == ModeMonitoring {
		if i.Monitor <= 0 {
			return 5 * time.Second
		}
		return i.Monitor
	}
	if i.Detect <= 0 {
		return 3 * time.Second
	}
	return i.Detect
}

// TickFunc receives each tick with the mode and generation it was armed under.
type TickFunc func(mode Mode, generation uint64)

// PollingLoop owns the only presence timer of the process. Arming a mode
// disarms the previous one first, and ticks from a disarmed generation are
// dropped, so two timers can never be live at once.
type PollingLoop struct {
	mu         sync.Mutex
	clock      clock.Clock
	intervals  Intervals
	onTick     TickFunc
	mode       Mode
	generation uint64
	timer      clock.Timer
}

// NewPollingLoop returns a disarmed loop.
func NewPollingLoop(clk clock.Clock, intervals Intervals, onTick TickFunc) *PollingLoop {
	return &PollingLoop{
		clock:     clk,
		intervals: intervals,
		onTick:    onTick,
	}
}

// Arm starts ticking in mode, replacing whatever was armed.
func (l *PollingLoop) Arm(mode Mode) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.disarmLocked()
	if mode == ModeOff {
		return l.generation
	}
	l.mode = mode
	l.scheduleLocked(l.generation)
	return l.generation
}

// Disarm stops the timer.
func (l *PollingLoop) Disarm() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disarmLocked()
}

// Mode returns the armed mode, ModeOff when disarmed.
func (l *PollingLoop) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// IsCurrent reports whether generation is still the armed one.
func (l *PollingLoop) IsCurrent(mode Mode, generation uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode != ModeOff && l.mode == mode && l.generation == generation
}

func (l *PollingLoop) disarmLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.mode = ModeOff
	l.generation++
}

func (l *PollingLoop) scheduleLocked(generation uint64) {
	l.timer = l.clock.AfterFunc(l.intervals.forMode(l.mode), func() {
		l.fire(generation)
	})
}

func (l *PollingLoop) fire(generation uint64) {
	l.mu.Lock()
	if generation != l.generation || l.mode == ModeOff {
		l.mu.Unlock()
		return
	}
	mode := l.mode
	l.scheduleLocked(generation)
	l.mu.Unlock()

	if l.onTick != nil {
		l.onTick(mode, generation)
	}
}
