package stage

import (
	"github.com/wharfbuild/wharf/internal/errors"
)

// State identifies a point in the pipeline's linear progression.
type State string

const (
	StateInit                  State = "INIT"
	StateDependenciesInstalled State = "DEPENDENCIES_INSTALLED"
	StateBundled               State = "BUNDLED"
	StateAssembled             State = "ASSEMBLED"
	StatePackaged              State = "PACKAGED"
	StateFailed                State = "FAILED"
)

// order is the only legal progression. No branching, no cycles.
var order = []State{
	StateInit,
	StateDependenciesInstalled,
	StateBundled,
	StateAssembled,
	StatePackaged,
}

// Next returns the state following s, or false if s is terminal.
func (s State) Next() (State, bool) {
	for i, st := range order {
		if st == s && i+1 < len(order) {
			return order[i+1], true
		}
	}
	return "", false
}

// Terminal reports whether the pipeline can make no further progress from s.
func (s State) Terminal() bool {
	return s == StatePackaged || s == StateFailed
}

// Machine tracks the pipeline's progression through its states.
// It is not safe for concurrent use; the pipeline is single-threaded.
type Machine struct {
	current State
}

// NewMachine creates a machine in the INIT state.
func NewMachine() *Machine {
	return &Machine{current: StateInit}
}

// Current returns the current state.
func (m *Machine) Current() State {
	return m.current
}

// Advance moves the machine to the given state. Only the immediate
// successor of the current state is legal; anything else is a
// programming error in the orchestrator.
func (m *Machine) Advance(to State) error {
	next, ok := m.current.Next()
	if !ok || next != to {
		return errors.Newf(errors.CategoryCLI,
			"illegal state transition %s -> %s", m.current, to)
	}
	m.current = to
	return nil
}

// Fail moves the machine to the terminal FAILED state. Legal from any
// non-terminal state; a failed run restarts from INIT.
func (m *Machine) Fail() {
	if !m.current.Terminal() {
		m.current = StateFailed
	}
}
