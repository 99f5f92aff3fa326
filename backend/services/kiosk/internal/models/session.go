package models

import "github.com/google/uuid"

// Session is the single kiosk interaction aggregate.
type Session struct {
	ID                  uuid.UUID `json:"id"`
	Phase               Phase     `json:"phase"`
	CardPresent         bool      `json:"card_present"`
	ConsecutiveMismatch int       `json:"consecutive_mismatch"`
	PIN                 string    `json:"-"`
	BalanceMinorUnits   int       `json:"balance_minor_units"`
	BalanceDisplay      string    `json:"balance_display,omitempty"`
	SelectedItem        *ItemRef  `json:"selected_item,omitempty"`
	IsTransacting       bool      `json:"is_transacting"`
	DisconnectDeferred  bool      `json:"disconnect_deferred"`
}

// NewSession returns an idle session with a fresh identity.
func NewSession() Session {
	return Session{
		ID:    uuid.New(),
		Phase: PhaseWaitingForCard,
	}
}

// Clone returns a copy that shares no pointers with s.
func (s Session) Clone() Session {
	if s.SelectedItem != nil {
		item := *s.SelectedItem
		s.SelectedItem = &item
	}
	return s
}
