package block

import (
	"fmt"

	"github.com/c360/sigflow/errors"
)

// State is the coarse lifecycle state of a block
type State int32

const (
	// StateInitialized is the state after construction
	StateInitialized State = iota
	// StateRunning is entered by Start and is the only state in which the block is invoked
	StateRunning
	// StateStopped is terminal: stop requested, quota met, input exhausted or DONE returned
	StateStopped
	// StateError is terminal: an invocation failed
	StateError
)

// String returns a string representation of the state
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateStopped || s == StateError
}

// transitions lists the legal edges of the lifecycle state machine.
var transitions = map[State][]State{
	StateInitialized: {StateRunning},
	StateRunning:     {StateStopped, StateError},
}

// CanTransition reports whether from -> to is a legal lifecycle edge
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Status is the outcome of one processing invocation
type Status int

const (
	// OK means more work is expected
	OK Status = iota
	// Done means the block will never produce further output
	Done
)

// String returns a string representation of the status
func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Starter is implemented by blocks that need setup when the run starts.
// An error keeps the block from entering the running state.
type Starter interface {
	OnStart() error
}

// Stopper is implemented by blocks that want to observe their terminal transition
type Stopper interface {
	OnStop(final State)
}

// Start moves a block from initialized to running, calling OnStart if implemented.
func Start(b Block) error {
	base := b.base()

	base.invokeMu.Lock()
	defer base.invokeMu.Unlock()

	if cur := base.State(); cur != StateInitialized {
		if cur == StateRunning {
			return errors.WrapInvalid(errors.ErrAlreadyStarted, "Block", "Start", base.name)
		}
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, cur, StateRunning),
			"Block", "Start", base.name)
	}

	if base.strategy == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no processing strategy", errors.ErrConfigInvalid),
			"Block", "Start", base.name)
	}
	base.self = b

	if s, ok := b.(Starter); ok {
		if err := s.OnStart(); err != nil {
			failure := &FailureError{Block: base.name, Err: err}
			base.setState(StateRunning)
			base.fail(failure)
			return failure
		}
	}

	base.markStarted()
	base.setState(StateRunning)
	base.logger.Debug("block started", "capability", base.Capability())
	return nil
}

// Halt moves a running block to stopped without invoking its processing step.
// It is a no-op for blocks that are not running.
func Halt(b Block) {
	base := b.base()

	base.invokeMu.Lock()
	defer base.invokeMu.Unlock()

	if base.State() == StateRunning {
		base.finish(StateStopped)
	}
}
