package entity

import "time"

// Task is the parent unit of collaborative proofreading work. It binds one
// dataset file to a set of index-range assignments.
//
// TotalRecords is fixed at creation time (the dataset's record count) and
// never changes afterwards, even when records are later soft-deleted; every
// assignment range is validated against it.
type Task struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Status           string `json:"status"`
	CreatedBy        int64  `json:"created_by"`
	FileID           int64  `json:"file_id"`
	OriginalFilename string `json:"original_filename"`
	TotalRecords     int    `json:"total_records"`

	Deadline    *time.Time `json:"deadline,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	FinalizedBy *int64     `json:"finalized_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task status constants
const (
	TaskStatusDraft      = "draft"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusFinalized  = "finalized"
)

// DatasetFile records the uploaded dataset a task was created from. Parsing
// and validation happen upstream; by the time a file row exists its records
// are already well-formed.
type DatasetFile struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FilePath         string    `json:"file_path,omitempty"`
	FileSize         int64     `json:"file_size"`
	UploadedBy       int64     `json:"uploaded_by"`
	CreatedAt        time.Time `json:"created_at"`
}

// TaskProgress is the derived completion view for one task. It is always
// recomputed from current assignment rows, never cached.
type TaskProgress struct {
	TotalAssignments     int     `json:"total_assignments"`
	CompletedAssignments int     `json:"completed_assignments"`
	CompletionRate       float64 `json:"completion_rate"`
}

// Complete returns true when every assignment is completed. A task with no
// assignments is never complete.
func (p TaskProgress) Complete() bool {
	return p.TotalAssignments > 0 && p.CompletedAssignments == p.TotalAssignments
}
