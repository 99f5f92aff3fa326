package transaction

// OutcomeKind tags how a purchase call ended.
type OutcomeKind int

const (
	// Settled means the backend debited the card.
	Settled OutcomeKind = iota
	// Rejected means the backend refused or could not be reached.
	Rejected
	// RejectedAndDisconnected means the backend refused because the card is gone.
	RejectedAndDisconnected
)

func (k OutcomeKind) String() string {
	switch k {
	case Settled:
		return "settled"
	case Rejected:
		return "rejected"
	case RejectedAndDisconnected:
		return "rejected_disconnected"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of a purchase call.
type Outcome struct {
	Kind              OutcomeKind
	ItemName          string
	BalanceMinorUnits int
	BalanceDisplay    string
	Reason            string
	// Transport is set when the card service gave no usable answer.
	Transport bool
}

// Resolution is what the session must do once a purchase resolves.
type Resolution int

const (
	// ResolutionSettle shows the receipt and later resets.
	ResolutionSettle Resolution = iota
	// ResolutionRevert returns to item selection with an error.
	ResolutionRevert
	// ResolutionReset abandons the session.
	ResolutionReset
)

func (r Resolution) String() string {
	switch r {
	case ResolutionSettle:
		return "settle"
	case ResolutionRevert:
		return "revert"
	case ResolutionReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Resolve decides the session fate from the purchase outcome and whether a
// disconnect was captured while the call was in flight. A settled purchase is
// always honored since the charge already happened server-side.
func Resolve(o Outcome, disconnectDeferred bool) Resolution {
	switch o.Kind {
	case Settled:
		return ResolutionSettle
	case RejectedAndDisconnected:
		return ResolutionReset
	default:
		if disconnectDeferred {
			return ResolutionReset
		}
		return ResolutionRevert
	}
}
