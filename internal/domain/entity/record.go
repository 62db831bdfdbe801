package entity

import "time"

// QARecord is one canonical prompt/completion row of a dataset file.
// IndexInFile is assigned once at ingestion and never changes; deletion is a
// soft flag that excludes the row from working views, range validity and
// export, but never removes it outside of a task cascade.
type QARecord struct {
	ID          int64  `json:"id"`
	FileID      int64  `json:"file_id"`
	IndexInFile int    `json:"index_in_file"`
	Prompt      string `json:"prompt"`
	Completion  string `json:"completion"`

	EditedBy  *int64     `json:"edited_by,omitempty"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	IsDeleted bool       `json:"is_deleted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkingRecord is a record as seen in an assignee's working slice: the
// canonical row overlaid with that user's draft when one exists.
type WorkingRecord struct {
	Record     *QARecord `json:"record"`
	Draft      *Draft    `json:"draft,omitempty"`
	Prompt     string    `json:"prompt"`
	Completion string    `json:"completion"`
	HasDraft   bool      `json:"has_draft"`
}
