package entity

import "time"

// Draft is an uncommitted edit of one record by one user within one task.
// At most one draft exists per (task, user, record); saving is an upsert on
// that key. Drafts shadow the canonical record until submission folds them
// in and deletes the row.
type Draft struct {
	ID       int64 `json:"id"`
	TaskID   int64 `json:"task_id"`
	UserID   int64 `json:"user_id"`
	RecordID int64 `json:"record_id"`

	// Nil means the field was never set on this draft; the overlay falls
	// back to the canonical record content.
	Prompt     *string `json:"prompt,omitempty"`
	Completion *string `json:"completion,omitempty"`

	// MarkedDeleted is a local soft delete: the record disappears from the
	// user's working view and is soft-deleted for real at submission.
	MarkedDeleted bool `json:"marked_deleted"`

	AutoSaved   bool      `json:"auto_saved"`
	LastSavedAt time.Time `json:"last_saved_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OverlayPrompt returns the draft prompt when set, falling back to the
// canonical value.
func (d *Draft) OverlayPrompt(canonical string) string {
	if d.Prompt != nil {
		return *d.Prompt
	}
	return canonical
}

// OverlayCompletion returns the draft completion when set, falling back to
// the canonical value.
func (d *Draft) OverlayCompletion(canonical string) string {
	if d.Completion != nil {
		return *d.Completion
	}
	return canonical
}
