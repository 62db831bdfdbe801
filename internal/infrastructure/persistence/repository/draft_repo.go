package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// DraftRepository implements port.DraftRepository
type DraftRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(db *sql.DB, logger *zap.Logger) port.DraftRepository {
	return &DraftRepository{
		db:     db,
		logger: logger,
	}
}

const draftColumns = `
	id, task_id, user_id, record_id, draft_prompt, draft_completion,
	marked_deleted, auto_saved, last_saved_at, created_at, updated_at
`

// Save upserts the draft on its (task, user, record) key
func (r *DraftRepository) Save(ctx context.Context, draft *entity.Draft) error {
	query := `
		INSERT INTO drafts (
			task_id, user_id, record_id, draft_prompt, draft_completion,
			marked_deleted, auto_saved, last_saved_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_id, user_id, record_id) DO UPDATE SET
			draft_prompt = excluded.draft_prompt,
			draft_completion = excluded.draft_completion,
			marked_deleted = excluded.marked_deleted,
			auto_saved = excluded.auto_saved,
			last_saved_at = excluded.last_saved_at,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	if draft.LastSavedAt.IsZero() {
		draft.LastSavedAt = now
	}
	draft.UpdatedAt = now

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		draft.TaskID,
		draft.UserID,
		draft.RecordID,
		draft.Prompt,
		draft.Completion,
		draft.MarkedDeleted,
		draft.AutoSaved,
		draft.LastSavedAt,
		now,
		draft.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save draft",
			zap.Int64("task_id", draft.TaskID),
			zap.Int64("user_id", draft.UserID),
			zap.Int64("record_id", draft.RecordID),
			zap.Error(err))
		return fmt.Errorf("failed to save draft: %w", err)
	}

	return nil
}

// Get retrieves one draft, returning nil when none exists for the key
func (r *DraftRepository) Get(ctx context.Context, taskID, userID, recordID int64) (*entity.Draft, error) {
	query := `SELECT` + draftColumns + `FROM drafts WHERE task_id = ? AND user_id = ? AND record_id = ?`

	draft, err := scanDraft(getExecutor(ctx, r.db).QueryRowContext(ctx, query, taskID, userID, recordID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get draft",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", userID),
			zap.Int64("record_id", recordID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	return draft, nil
}

// ListByTaskUser retrieves all of the user's drafts within a task
func (r *DraftRepository) ListByTaskUser(ctx context.Context, taskID, userID int64) ([]*entity.Draft, error) {
	query := `SELECT` + draftColumns + `FROM drafts WHERE task_id = ? AND user_id = ? ORDER BY record_id`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, taskID, userID)
	if err != nil {
		r.logger.Error("Failed to list drafts",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*entity.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, draft)
	}

	return drafts, rows.Err()
}

// CountMarkedDeleted counts the user's drafts flagged as locally deleted
func (r *DraftRepository) CountMarkedDeleted(ctx context.Context, taskID, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM drafts WHERE task_id = ? AND user_id = ? AND marked_deleted = 1`

	var count int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, taskID, userID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count marked-deleted drafts",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count marked-deleted drafts: %w", err)
	}

	return count, nil
}

// Clear removes one draft by key
func (r *DraftRepository) Clear(ctx context.Context, taskID, userID, recordID int64) error {
	query := `DELETE FROM drafts WHERE task_id = ? AND user_id = ? AND record_id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, taskID, userID, recordID)
	if err != nil {
		r.logger.Error("Failed to clear draft",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", userID),
			zap.Int64("record_id", recordID),
			zap.Error(err))
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// ClearAll removes every draft of the user within the task
func (r *DraftRepository) ClearAll(ctx context.Context, taskID, userID int64) error {
	query := `DELETE FROM drafts WHERE task_id = ? AND user_id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, taskID, userID)
	if err != nil {
		r.logger.Error("Failed to clear drafts",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to clear drafts: %w", err)
	}
	return nil
}

// DeleteByTask removes all drafts of a task
func (r *DraftRepository) DeleteByTask(ctx context.Context, taskID int64) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM drafts WHERE task_id = ?`, taskID)
	if err != nil {
		r.logger.Error("Failed to delete drafts", zap.Int64("task_id", taskID), zap.Error(err))
		return fmt.Errorf("failed to delete drafts: %w", err)
	}
	return nil
}

func scanDraft(row rowScanner) (*entity.Draft, error) {
	var d entity.Draft
	var prompt, completion sql.NullString

	err := row.Scan(
		&d.ID,
		&d.TaskID,
		&d.UserID,
		&d.RecordID,
		&prompt,
		&completion,
		&d.MarkedDeleted,
		&d.AutoSaved,
		&d.LastSavedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Prompt = stringPtr(prompt)
	d.Completion = stringPtr(completion)

	return &d, nil
}

// Verify interface compliance
var _ port.DraftRepository = (*DraftRepository)(nil)
