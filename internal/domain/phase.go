package domain

import "time"

// Phase is the lifecycle state of a quiz, derived from the clock and the
// deadline, never stored.
type Phase string

const (
	PhaseOpen   Phase = "open"
	PhaseClosed Phase = "closed"
)

// PhaseAt maps (now, deadline) to a phase. Open iff now is strictly before
// the deadline; the boundary instant itself is closed.
func PhaseAt(now, deadline time.Time) Phase {
	if now.Before(deadline) {
		return PhaseOpen
	}
	return PhaseClosed
}

// PhaseAt evaluates the quiz's phase at the given instant.
func (q Quiz) PhaseAt(now time.Time) Phase {
	return PhaseAt(now, q.Deadline)
}
