package entity

import "time"

// Notification event type constants. Delivery is best-effort and in-app:
// rows are written by the notifier and read back over the API.
const (
	NotifyAssignmentCreated  = "assignment_created"
	NotifyTaskCompleted      = "task_completed"
	NotifyAssignmentRejected = "assignment_rejected"
	NotifyTaskReopened       = "task_reopened"
	NotifyDeadlineReminder   = "deadline_reminder"
)

// Notification is one in-app message for one user.
type Notification struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	TaskID  *int64 `json:"task_id,omitempty"`
	IsRead  bool   `json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}
