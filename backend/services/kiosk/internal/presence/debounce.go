package presence

// Transition is a stable presence change produced by the Debouncer.
type Transition int

const (
	NoTransition Transition = iota
	Connected
	Disconnected
)

func (t Transition) String() string {
	switch t {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "none"
	}
}

// DefaultThreshold is the number of consecutive mismatches that confirms a removal.
const DefaultThreshold = 3

// Debouncer turns raw signals into stable transitions. Removal needs
// threshold consecutive Absent/TransportError samples (or one hard
// disconnect); insertion needs a single Present.
type Debouncer struct {
	threshold int
	present   bool
	mismatch  int
}

// NewDebouncer returns a filter in the stable-absent state.
func NewDebouncer(threshold int) *Debouncer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Debouncer{threshold: threshold}
}

// Observe feeds one signal and reports the resulting transition, if any.
func (d *Debouncer) Observe(sig Signal) Transition {
	if !d.present {
		if sig.Outcome == Present && !sig.HardDisconnect {
			d.present = true
			d.mismatch = 0
			return Connected
		}
		return NoTransition
	}

	if sig.Outcome == Present && !sig.HardDisconnect {
		d.mismatch = 0
		return NoTransition
	}

	d.mismatch++
	if sig.HardDisconnect || d.mismatch >= d.threshold {
		d.present = false
		d.mismatch = 0
		return Disconnected
	}
	return NoTransition
}

// Present reports the stable state.
func (d *Debouncer) Present() bool {
	return d.present
}

// Mismatches returns the current consecutive mismatch count.
func (d *Debouncer) Mismatches() int {
	return d.mismatch
}

// Reset returns the filter to stable-absent.
func (d *Debouncer) Reset() {
	d.present = false
	d.mismatch = 0
}
