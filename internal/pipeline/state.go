package pipeline

import (
	"errors"
	"fmt"
)

// State is a run's position in the medallion refinement.
type State string

const (
	StateIdle        State = "Idle"
	StateIngesting   State = "Ingesting"
	StateNormalizing State = "Normalizing"
	StateEnriching   State = "Enriching"
	StateDone        State = "Done"
	StateFailed      State = "Failed"
)

// ErrIllegalTransition is returned when a run attempts to skip or revisit a stage.
var ErrIllegalTransition = errors.New("illegal state transition")

var transitions = map[State][]State{
	StateIdle:        {StateIngesting, StateFailed},
	StateIngesting:   {StateNormalizing, StateFailed},
	StateNormalizing: {StateEnriching, StateFailed},
	StateEnriching:   {StateDone, StateFailed},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether to directly follows s.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// stateMachine tracks a single run. It is not safe for concurrent use.
type stateMachine struct {
	current State
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateIdle}
}

func (m *stateMachine) advance(to State) error {
	if !m.current.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.current, to)
	}
	m.current = to
	return nil
}
