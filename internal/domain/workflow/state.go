package workflow

// State represents a task lifecycle state.
type State string

const (
	StateDraft      State = "draft"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFinalized  State = "finalized"
)

var validStates = map[State]bool{
	StateDraft:      true,
	StateInProgress: true,
	StateCompleted:  true,
	StateFinalized:  true,
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state.
func (s State) IsValid() bool {
	return validStates[s]
}
