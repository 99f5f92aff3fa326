package presence

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	present   = Signal{Outcome: Present}
	absent    = Signal{Outcome: Absent}
	transport = Signal{Outcome: TransportError}
	hard      = Signal{Outcome: Absent, HardDisconnect: true}
)

func connectedDebouncer(t *testing.T) *Debouncer {
	t.Helper()
	d := NewDebouncer(DefaultThreshold)
	require.Equal(t, Connected, d.Observe(present))
	return d
}

func TestDebouncerSinglePresentConnects(t *testing.T) {
	d := NewDebouncer(DefaultThreshold)
	assert.Equal(t, NoTransition, d.Observe(absent))
	assert.Equal(t, NoTransition, d.Observe(transport))
	assert.Equal(t, NoTransition, d.Observe(hard))
	assert.Equal(t, Connected, d.Observe(present))
	assert.True(t, d.Present())
	assert.Equal(t, 0, d.Mismatches())
}

func TestDebouncerWaitingIgnoresAbsenceAndEndsAtZero(t *testing.T) {
	d := NewDebouncer(DefaultThreshold)
	var transitions []Transition
	for _, sig := range []Signal{absent, absent, present} {
		if tr := d.Observe(sig); tr != NoTransition {
			transitions = append(transitions, tr)
		}
	}
	assert.Equal(t, []Transition{Connected}, transitions)
	assert.Equal(t, 0, d.Mismatches())
}

func TestDebouncerThreeMismatchesDisconnect(t *testing.T) {
	d := connectedDebouncer(t)
	assert.Equal(t, NoTransition, d.Observe(absent))
	assert.Equal(t, NoTransition, d.Observe(transport))
	assert.Equal(t, 2, d.Mismatches())
	assert.Equal(t, Disconnected, d.Observe(absent))
	assert.False(t, d.Present())
	assert.Equal(t, 0, d.Mismatches())
}

func TestDebouncerPresentResetsCounter(t *testing.T) {
	d := connectedDebouncer(t)
	d.Observe(absent)
	d.Observe(absent)
	assert.Equal(t, NoTransition, d.Observe(present))
	assert.Equal(t, 0, d.Mismatches())
	assert.Equal(t, NoTransition, d.Observe(absent))
	assert.Equal(t, NoTransition, d.Observe(absent))
	assert.True(t, d.Present())
}

func TestDebouncerHardDisconnectBypassesCounter(t *testing.T) {
	d := connectedDebouncer(t)
	assert.Equal(t, Disconnected, d.Observe(hard))
	assert.False(t, d.Present())
}

// A Disconnected is emitted iff threshold consecutive mismatches happened
// since the last Present, or a hard disconnect arrived while present.
func TestDebouncerMatchesReferenceModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	signals := []Signal{present, absent, transport, hard}

	for trial := 0; trial < 200; trial++ {
		d := NewDebouncer(DefaultThreshold)
		modelPresent := false
		run := 0
		for step := 0; step < 50; step++ {
			sig := signals[rng.Intn(len(signals))]
			got := d.Observe(sig)

			want := NoTransition
			switch {
			case !modelPresent && sig.Outcome == Present && !sig.HardDisconnect:
				modelPresent = true
				run = 0
				want = Connected
			case !modelPresent:
			case sig.Outcome == Present:
				run = 0
			default:
				run++
				if sig.HardDisconnect || run == DefaultThreshold {
					modelPresent = false
					run = 0
					want = Disconnected
				}
			}
			require.Equal(t, want, got, "trial %d step %d signal %+v", trial, step, sig)
			require.Equal(t, run, d.Mismatches())
		}
	}
}

func TestDebouncerReset(t *testing.T) {
	d := connectedDebouncer(t)
	d.Observe(absent)
	d.Reset()
	assert.False(t, d.Present())
	assert.Equal(t, 0, d.Mismatches())
}
