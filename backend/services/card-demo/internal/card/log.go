package card

import (
	"fmt"
	"sync"
	"time"
)

const logTimeLayout = "2006-01-02 15:04:05"

// Log keeps the latest human readable card events.
type Log struct {
	mu    sync.Mutex
	lines []string
	size  int
	now   func() time.Time
}

// NewLog returns a log holding at most size lines.
func NewLog(size int) *Log {
	if size <= 0 {
		size = 100
	}
	return &Log{size: size, now: time.Now}
}

// Add appends a timestamped line.
func (l *Log) Add(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", l.now().Format(logTimeLayout), fmt.Sprintf(format, args...))
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
	if len(l.lines) > l.size {
		l.lines = l.lines[len(l.lines)-l.size:]
	}
}

// Tail returns the last n lines, oldest first.
func (l *Log) Tail(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.lines) {
		n = len(l.lines)
	}
	out := make([]string, n)
	copy(out, l.lines[len(l.lines)-n:])
	return out
}
