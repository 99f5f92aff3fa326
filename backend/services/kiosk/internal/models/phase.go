package models

import "fmt"

// Phase is the closed set of session phases.
type Phase int

const (
	PhaseWaitingForCard Phase = iota
	PhaseAuthenticating
	PhaseBrowsing
	PhaseConfirming
	PhasePurchasing
	PhaseSettled
)

var phaseNames = map[Phase]string{
	PhaseWaitingForCard: "waiting_for_card",
	PhaseAuthenticating: "authenticating",
	PhaseBrowsing:       "browsing",
	PhaseConfirming:     "confirming",
	PhasePurchasing:     "purchasing",
	PhaseSettled:        "settled",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText renders the phase name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
