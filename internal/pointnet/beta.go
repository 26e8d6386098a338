package pointnet

import "fmt"

// BetaState is the phase of a BetaSchedule.
type BetaState int

const (
	// BetaDecaying multiplies beta by the decay factor on every step.
	BetaDecaying BetaState = iota
	// BetaFloored holds beta at the floor and keeps the entropy term off.
	BetaFloored
)

// String implements fmt.Stringer.
func (s BetaState) String() string {
	switch s {
	case BetaDecaying:
		return "decaying"
	case BetaFloored:
		return "floored"
	default:
		return fmt.Sprintf("BetaState(%d)", int(s))
	}
}

// Default beta schedule constants.
const (
	DefaultBetaInitial = 1.0
	DefaultBetaDecay   = 0.99
	DefaultBetaFloor   = 0.001
)

// BetaSchedule is the convex-loss weight carried across forward calls.
//
// Each Step in the Decaying state sets value = max(value*decay, floor)
// and moves to Floored once value <= floor. Floored is terminal: the value
// no longer changes and the entropy sub-term is disabled for every
// subsequent step. The step that reaches the floor still allows entropy.
//
// A BetaSchedule is not safe for concurrent use.
type BetaSchedule struct {
	value float64
	decay float64
	floor float64
	state BetaState
}

// NewBetaSchedule returns a schedule starting at initial.
// Panics unless 0 < decay <= 1 and floor >= 0.
func NewBetaSchedule(initial, decay, floor float64) *BetaSchedule {
	if decay <= 0 || decay > 1 || floor < 0 {
		panic(fmt.Sprintf("beta schedule: invalid decay %v or floor %v", decay, floor))
	}
	s := &BetaSchedule{value: initial, decay: decay, floor: floor}
	if initial <= floor {
		s.value = floor
		s.state = BetaFloored
	}
	return s
}

// DefaultBetaSchedule returns the schedule 1 → ×0.99 → floor 0.001.
func DefaultBetaSchedule() *BetaSchedule {
	return NewBetaSchedule(DefaultBetaInitial, DefaultBetaDecay, DefaultBetaFloor)
}

// Step advances the schedule by one convex-path call and returns the beta
// to use and whether the entropy sub-term may be included.
func (s *BetaSchedule) Step() (beta float64, entropyAllowed bool) {
	if s.state == BetaFloored {
		return s.value, false
	}
	s.value = max(s.value*s.decay, s.floor)
	if s.value <= s.floor {
		s.state = BetaFloored
	}
	return s.value, true
}

// Value returns the current beta.
func (s *BetaSchedule) Value() float64 {
	return s.value
}

// State returns the current phase.
func (s *BetaSchedule) State() BetaState {
	return s.state
}
