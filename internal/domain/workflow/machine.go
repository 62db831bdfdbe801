package workflow

import "context"

// StateMachine tracks the current lifecycle state and validates transitions.
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger
}

// NewTaskMachine builds the task lifecycle machine positioned at the given
// state:
//
//	draft -> in_progress -> completed -> finalized
//
// with reject/reopen loops back to in_progress. Assignment is also permitted
// from in_progress so an admin can re-partition a running task; the
// assignment manager replaces all prior assignments when that happens.
func NewTaskMachine(current State) StateMachine {
	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(TriggerAssign, StateInProgress)

	b.Configure(StateInProgress).
		Permit(TriggerAssign, StateInProgress).
		Permit(TriggerComplete, StateCompleted)

	b.Configure(StateCompleted).
		Permit(TriggerReject, StateInProgress).
		Permit(TriggerReopen, StateInProgress).
		Permit(TriggerFinalize, StateFinalized)

	b.Configure(StateFinalized).
		Permit(TriggerReopen, StateInProgress)

	return b.Build(current)
}
