// Package port defines the interfaces between the application services and
// their collaborators. Repositories persist entities; implementations accept
// either the plain connection or an ambient transaction carried in the
// context by the TransactionManager.
package port

import (
	"context"
	"time"

	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// TaskFilter narrows task listings.
type TaskFilter struct {
	// CreatedBy restricts to tasks created by this user when non-zero.
	CreatedBy int64
	// AssignedTo restricts to tasks with an assignment for this user when
	// non-zero. When both are set the union is returned.
	AssignedTo int64
	Status     string
	Limit      int
	Offset     int
}

// TaskRepository persists tasks and dataset file rows.
type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	GetByID(ctx context.Context, id int64) (*entity.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*entity.Task, int, error)

	// UpdateStatus flips only the lifecycle status column.
	UpdateStatus(ctx context.Context, id int64, status string) error

	// SetCompleted stamps completed status and timestamp in one write.
	SetCompleted(ctx context.Context, id int64, at time.Time) error

	// SetFinalized stamps finalized status, timestamp and signer.
	SetFinalized(ctx context.Context, id int64, by int64, at time.Time) error

	// ClearCompletion reverts to in_progress and clears completion and
	// finalization metadata (reject / reopen paths).
	ClearCompletion(ctx context.Context, id int64) error

	Delete(ctx context.Context, id int64) error
}

// FileRepository persists dataset file rows.
type FileRepository interface {
	Create(ctx context.Context, file *entity.DatasetFile) error
	GetByID(ctx context.Context, id int64) (*entity.DatasetFile, error)
	Delete(ctx context.Context, id int64) error
}

// AssignmentRepository persists index-range assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *entity.Assignment) error
	GetByID(ctx context.Context, id int64) (*entity.Assignment, error)
	GetByTaskAndUser(ctx context.Context, taskID, userID int64) (*entity.Assignment, error)
	ListByTask(ctx context.Context, taskID int64) ([]*entity.Assignment, error)
	DeleteByTask(ctx context.Context, taskID int64) error

	// MarkStarted transitions pending -> in_progress on first read by the
	// assignee. A no-op when the assignment is past pending.
	MarkStarted(ctx context.Context, id int64, at time.Time) error

	// CompleteIfOpen flips the assignment to completed only when it is not
	// completed already, returning whether the write took effect. This is
	// the compare-and-set that keeps concurrent submits from both
	// succeeding.
	CompleteIfOpen(ctx context.Context, id int64, at time.Time) (bool, error)

	// Reject flips a completed assignment to rejected with reason metadata.
	Reject(ctx context.Context, id int64, by int64, reason string, at time.Time) error

	// Reset returns a completed or rejected assignment to in_progress,
	// clearing completion and rejection metadata (reopen path).
	Reset(ctx context.Context, id int64) error

	// ListOverdue returns assignments not yet completed whose task deadline
	// has passed, for the external reminder sweep.
	ListOverdue(ctx context.Context, now time.Time) ([]*entity.OverdueAssignment, error)
}

// RecordRange bounds a range read; nil means open-ended on that side.
type RecordRange struct {
	Start *int
	End   *int
}

// RecordRepository persists canonical QA records.
type RecordRepository interface {
	// BulkCreate inserts the dataset's records with sequential
	// index_in_file starting at 0, in the given order.
	BulkCreate(ctx context.Context, fileID int64, records []*entity.QARecord) error

	GetByID(ctx context.Context, id int64) (*entity.QARecord, error)
	ListRange(ctx context.Context, fileID int64, r RecordRange, includeDeleted bool) ([]*entity.QARecord, error)
	CountRange(ctx context.Context, fileID int64, r RecordRange, includeDeleted bool) (int, error)

	// Edit overwrites content and stamps the editor. Idempotent.
	Edit(ctx context.Context, id int64, prompt, completion string, editorID int64, at time.Time) error

	// StampEditor marks every non-deleted record in the inclusive index
	// range as reviewed by the editor without touching content.
	StampEditor(ctx context.Context, fileID int64, start, end int, editorID int64, at time.Time) error

	SoftDelete(ctx context.Context, id int64, actorID int64, at time.Time) error

	// CountDeletedByEditor counts soft-deleted records attributed to the
	// editor inside the inclusive index range.
	CountDeletedByEditor(ctx context.Context, fileID int64, editorID int64, start, end int) (int, error)

	DeleteByFile(ctx context.Context, fileID int64) error
}

// DraftRepository persists per-(task, user, record) shadow edits.
type DraftRepository interface {
	// Save upserts on the (task, user, record) key.
	Save(ctx context.Context, draft *entity.Draft) error

	Get(ctx context.Context, taskID, userID, recordID int64) (*entity.Draft, error)
	ListByTaskUser(ctx context.Context, taskID, userID int64) ([]*entity.Draft, error)
	CountMarkedDeleted(ctx context.Context, taskID, userID int64) (int, error)
	Clear(ctx context.Context, taskID, userID, recordID int64) error
	ClearAll(ctx context.Context, taskID, userID int64) error
	DeleteByTask(ctx context.Context, taskID int64) error
}

// SummaryRepository persists the materialized review rows.
type SummaryRepository interface {
	// Upsert writes one row per (task, record); re-submission after a
	// reject overwrites the prior row.
	Upsert(ctx context.Context, item *entity.SummaryItem) error

	ListByTask(ctx context.Context, taskID int64, limit, offset int) ([]*entity.SummaryItem, int, error)
	CountModified(ctx context.Context, taskID int64) (int, error)

	// SyncRecord refreshes the edited content of a row after an admin
	// summary edit. A no-op when no row exists for the record.
	SyncRecord(ctx context.Context, taskID int64, record *entity.QARecord) error

	DeleteByTask(ctx context.Context, taskID int64) error
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*entity.Notification, int, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

// SessionRepository persists work sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *entity.WorkSession) error
	GetActive(ctx context.Context, taskID, userID int64) (*entity.WorkSession, error)

	// DeactivateAll ends every active session for the pair.
	DeactivateAll(ctx context.Context, taskID, userID int64, at time.Time) error

	// Touch bumps last_activity and the activity counter.
	Touch(ctx context.Context, id int64, at time.Time) error

	End(ctx context.Context, id int64, at time.Time) error
	DeleteByTask(ctx context.Context, taskID int64) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
