package spores

import (
	"fmt"
)

// State is the phase of a SPORES run.
type State int

const (
	StateInitialSolve State = iota
	StateSlackConstrainedSolve
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitialSolve:
		return "InitialSolve"
	case StateSlackConstrainedSolve:
		return "SlackConstrainedSolve"
	case StateTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether no further solve may happen.
func (s State) IsTerminal() bool {
	return s == StateTerminated
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StateInitialSolve:
		return to == StateSlackConstrainedSolve || to == StateTerminated
	case StateSlackConstrainedSolve:
		return to == StateSlackConstrainedSolve || to == StateTerminated
	default:
		return false
	}
}

// machine tracks the state and iteration of one run.
type machine struct {
	state     State
	iteration int
}

func newMachine(state State, iteration int) *machine {
	return &machine{state: state, iteration: iteration}
}

// advance moves to the next slack-constrained iteration.
func (m *machine) advance() error {
	if err := m.transition(StateSlackConstrainedSolve); err != nil {
		return err
	}
	m.iteration++
	return nil
}

func (m *machine) terminate() error {
	return m.transition(StateTerminated)
}

func (m *machine) transition(to State) error {
	if !isAllowedTransition(m.state, to) {
		return fmt.Errorf("disallowed transition in iteration %d: %s -> %s", m.iteration, m.state, to)
	}
	m.state = to
	return nil
}
