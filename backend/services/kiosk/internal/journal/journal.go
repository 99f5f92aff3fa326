package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies journal entries.
type Kind string

const (
	KindCardDetected      Kind = "card_detected"
	KindCardRemoved       Kind = "card_removed"
	KindPINAccepted       Kind = "pin_accepted"
	KindPINRejected       Kind = "pin_rejected"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindPurchaseStarted   Kind = "purchase_started"
	KindPurchaseSettled   Kind = "purchase_settled"
	KindPurchaseRejected  Kind = "purchase_rejected"
	KindCancelled         Kind = "cancelled"
)

// Entry is one line of kiosk activity.
type Entry struct {
	ID        string    `json:"id"`
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id,omitempty"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
}

// Journal keeps recent kiosk activity. Record never blocks the caller.
type Journal interface {
	Record(Entry)
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

func stamp(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e
}

// Memory is an in-process ring of the latest entries.
type Memory struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
}

// NewMemory returns a journal holding at most capacity entries.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 20
	}
	return &Memory{capacity: capacity}
}

// Record implements Journal.
func (m *Memory) Record(e Entry) {
	e = stamp(e)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if len(m.entries) > m.capacity {
		m.entries = m.entries[len(m.entries)-m.capacity:]
	}
}

// Recent returns newest entries first.
func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
