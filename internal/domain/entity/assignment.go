package entity

import "time"

// Assignment is one user's claim over a contiguous, inclusive index range
// [StartIndex, EndIndex] of a task's dataset.
//
// Ranges of active (non-rejected) assignments never overlap within a task.
// Overlap checking is the assignment manager's creation-time responsibility:
// every (re-)assign call discards and re-derives the full partition, so no
// database constraint is involved.
type Assignment struct {
	ID         int64 `json:"id"`
	TaskID     int64 `json:"task_id"`
	AssignedTo int64 `json:"assigned_to"`
	StartIndex int   `json:"start_index"`
	EndIndex   int   `json:"end_index"`

	Status       string     `json:"status"`
	AssignedAt   time.Time  `json:"assigned_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	RejectedAt   *time.Time `json:"rejected_at,omitempty"`
	RejectedBy   *int64     `json:"rejected_by,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignment status constants
const (
	AssignmentStatusPending    = "pending"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusCompleted  = "completed"
	AssignmentStatusRejected   = "rejected"
)

// RecordCount returns the number of records the range covers.
func (a *Assignment) RecordCount() int {
	return a.EndIndex - a.StartIndex + 1
}

// Covers reports whether the given dataset index falls inside the range.
func (a *Assignment) Covers(index int) bool {
	return index >= a.StartIndex && index <= a.EndIndex
}

// ParticipantView is one row of the admin progress screen: an assignment
// joined with the assignee's locally deleted record count.
//
// Before submission DeletedCount comes from the user's marked-deleted drafts;
// after submission drafts are gone and it is derived from soft-deleted
// records attributed to that editor inside their range.
type ParticipantView struct {
	Assignment   *Assignment `json:"assignment"`
	UserID       int64       `json:"user_id"`
	RecordCount  int         `json:"record_count"`
	DeletedCount int         `json:"deleted_count"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}

// OverdueAssignment is the read-only row handed to the external reminder
// job: an assignment past its task's deadline and not yet completed.
type OverdueAssignment struct {
	Assignment *Assignment `json:"assignment"`
	TaskID     int64       `json:"task_id"`
	TaskTitle  string      `json:"task_title"`
	Deadline   time.Time   `json:"deadline"`
}
