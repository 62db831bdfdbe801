package entity

import "time"

// SummaryItem is the materialized review row for one (task, record) pair:
// original versus edited content plus who edited it. It is a read model
// built at submission time; the QARecord stays authoritative for current
// content and summary reads fall back to live records when no rows exist.
type SummaryItem struct {
	ID           int64  `json:"id"`
	TaskID       int64  `json:"task_id"`
	RecordID     int64  `json:"record_id"`
	RecordIndex  int    `json:"record_index"`
	AssignmentID *int64 `json:"assignment_id,omitempty"`

	OriginalPrompt     string `json:"original_prompt"`
	OriginalCompletion string `json:"original_completion"`
	EditedPrompt       string `json:"edited_prompt"`
	EditedCompletion   string `json:"edited_completion"`

	EditorID    *int64     `json:"editor_id,omitempty"`
	IsModified  bool       `json:"is_modified"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SummaryStats extends task progress with record-level modification counts
// for the admin review screen.
type SummaryStats struct {
	TaskProgress
	TotalRecords     int     `json:"total_records"`
	ModifiedRecords  int     `json:"modified_records"`
	ModificationRate float64 `json:"modification_rate"`
}
