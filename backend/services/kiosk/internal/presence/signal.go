package presence

// Outcome is the raw result of one presence check.
type Outcome int

const (
	Present Outcome = iota
	Absent
	TransportError
)

func (o Outcome) String() string {
	switch o {
	case Present:
		return "present"
	case Absent:
		return "absent"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Signal is one sampled presence result. HardDisconnect marks an explicit
// removal report from the backend, as opposed to silence or a failed read.
type Signal struct {
	Outcome        Outcome
	HardDisconnect bool
}
