package workflow

// Trigger represents an event that can cause a lifecycle transition.
type Trigger string

const (
	// TriggerAssign partitions the dataset across users. Permitted from
	// draft and, for wholesale re-assignment, from in_progress.
	TriggerAssign Trigger = "ASSIGN"

	// TriggerComplete fires when the last assignment is submitted.
	TriggerComplete Trigger = "COMPLETE"

	// TriggerReject fires when an admin rejects one completed assignment,
	// pushing the task back to in_progress.
	TriggerReject Trigger = "REJECT"

	// TriggerReopen bulk-resets completed/rejected assignments.
	TriggerReopen Trigger = "REOPEN"

	// TriggerFinalize is the admin sign-off; permitted only from completed
	// and only with zero rejected assignments left.
	TriggerFinalize Trigger = "FINALIZE"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
