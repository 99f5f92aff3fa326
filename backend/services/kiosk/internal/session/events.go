package session

import (
	"github.com/google/uuid"

	"vendkiosk/backend/services/kiosk/internal/clients"
	"vendkiosk/backend/services/kiosk/internal/presence"
	"vendkiosk/backend/services/kiosk/internal/transaction"
)

// Event is anything the machine reacts to. Only user actions are exported;
// everything else is produced by the machine's own timers and calls.
type Event interface {
	event()
}

// PINSubmitted carries the four digits typed by the user.
type PINSubmitted struct {
	PIN string
}

// ItemSelected is a tap on a catalog item.
type ItemSelected struct {
	ItemID int
}

// CancelRequested abandons the session from any phase.
type CancelRequested struct{}

type presenceObserved struct {
	obs presence.Observation
}

type pinVerified struct {
	sessionID uuid.UUID
	resp      *clients.VerifyPINResponse
	err       error
}

type confirmElapsed struct {
	sessionID uuid.UUID
}

type purchaseResolved struct {
	sessionID uuid.UUID
	outcome   transaction.Outcome
}

type settleElapsed struct {
	sessionID uuid.UUID
}

type noticeElapsed struct {
	sessionID uuid.UUID
}

type errorNoticeElapsed struct {
	sessionID uuid.UUID
}

func (PINSubmitted) event()       {}
func (ItemSelected) event()       {}
func (CancelRequested) event()    {}
func (presenceObserved) event()   {}
func (pinVerified) event()        {}
func (confirmElapsed) event()     {}
func (purchaseResolved) event()   {}
func (settleElapsed) event()      {}
func (noticeElapsed) event()      {}
func (errorNoticeElapsed) event() {}
