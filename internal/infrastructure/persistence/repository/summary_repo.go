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

// SummaryRepository implements port.SummaryRepository
type SummaryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *sql.DB, logger *zap.Logger) port.SummaryRepository {
	return &SummaryRepository{
		db:     db,
		logger: logger,
	}
}

const summaryColumns = `
	id, task_id, record_id, record_index, assignment_id,
	original_prompt, original_completion, edited_prompt, edited_completion,
	editor_id, is_modified, submitted_at, created_at, updated_at
`

// Upsert writes one row per (task, record). Re-submission after a reject
// overwrites the prior row.
func (r *SummaryRepository) Upsert(ctx context.Context, item *entity.SummaryItem) error {
	query := `
		INSERT INTO summary_items (
			task_id, record_id, record_index, assignment_id,
			original_prompt, original_completion, edited_prompt, edited_completion,
			editor_id, is_modified, submitted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_id, record_id) DO UPDATE SET
			record_index = excluded.record_index,
			assignment_id = excluded.assignment_id,
			original_prompt = excluded.original_prompt,
			original_completion = excluded.original_completion,
			edited_prompt = excluded.edited_prompt,
			edited_completion = excluded.edited_completion,
			editor_id = excluded.editor_id,
			is_modified = excluded.is_modified,
			submitted_at = excluded.submitted_at,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	item.UpdatedAt = now

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		item.TaskID,
		item.RecordID,
		item.RecordIndex,
		item.AssignmentID,
		item.OriginalPrompt,
		item.OriginalCompletion,
		item.EditedPrompt,
		item.EditedCompletion,
		item.EditorID,
		item.IsModified,
		item.SubmittedAt,
		now,
		item.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert summary item",
			zap.Int64("task_id", item.TaskID),
			zap.Int64("record_id", item.RecordID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert summary item: %w", err)
	}

	return nil
}

// ListByTask retrieves summary rows ordered by record index, with the total
// row count for pagination
func (r *SummaryRepository) ListByTask(ctx context.Context, taskID int64, limit, offset int) ([]*entity.SummaryItem, int, error) {
	var total int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM summary_items WHERE task_id = ?`, taskID).Scan(&total)
	if err != nil {
		r.logger.Error("Failed to count summary items", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count summary items: %w", err)
	}

	query := `SELECT` + summaryColumns + `FROM summary_items WHERE task_id = ? ORDER BY record_index`
	args := []interface{}{taskID}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list summary items", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list summary items: %w", err)
	}
	defer rows.Close()

	var items []*entity.SummaryItem
	for rows.Next() {
		item, err := scanSummaryItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan summary item: %w", err)
		}
		items = append(items, item)
	}

	return items, total, rows.Err()
}

// CountModified counts summary rows whose content differs from the original
func (r *SummaryRepository) CountModified(ctx context.Context, taskID int64) (int, error) {
	var count int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM summary_items WHERE task_id = ? AND is_modified = 1`, taskID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count modified summary items", zap.Int64("task_id", taskID), zap.Error(err))
		return 0, fmt.Errorf("failed to count modified summary items: %w", err)
	}
	return count, nil
}

// SyncRecord refreshes the edited side of a summary row after an admin edits
// the record directly. A no-op when no row exists for the record.
func (r *SummaryRepository) SyncRecord(ctx context.Context, taskID int64, record *entity.QARecord) error {
	query := `
		UPDATE summary_items
		SET edited_prompt = ?, edited_completion = ?, editor_id = ?,
		    is_modified = (original_prompt != ? OR original_completion != ?),
		    updated_at = ?
		WHERE task_id = ? AND record_id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		record.Prompt, record.Completion, record.EditedBy,
		record.Prompt, record.Completion,
		time.Now(), taskID, record.ID)
	if err != nil {
		r.logger.Error("Failed to sync summary item",
			zap.Int64("task_id", taskID),
			zap.Int64("record_id", record.ID),
			zap.Error(err))
		return fmt.Errorf("failed to sync summary item: %w", err)
	}
	return nil
}

// DeleteByTask removes all summary rows of a task
func (r *SummaryRepository) DeleteByTask(ctx context.Context, taskID int64) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM summary_items WHERE task_id = ?`, taskID)
	if err != nil {
		r.logger.Error("Failed to delete summary items", zap.Int64("task_id", taskID), zap.Error(err))
		return fmt.Errorf("failed to delete summary items: %w", err)
	}
	return nil
}

func scanSummaryItem(row rowScanner) (*entity.SummaryItem, error) {
	var item entity.SummaryItem
	var assignmentID, editorID sql.NullInt64
	var submittedAt sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.TaskID,
		&item.RecordID,
		&item.RecordIndex,
		&assignmentID,
		&item.OriginalPrompt,
		&item.OriginalCompletion,
		&item.EditedPrompt,
		&item.EditedCompletion,
		&editorID,
		&item.IsModified,
		&submittedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.AssignmentID = int64Ptr(assignmentID)
	item.EditorID = int64Ptr(editorID)
	item.SubmittedAt = timePtr(submittedAt)

	return &item, nil
}

// Verify interface compliance
var _ port.SummaryRepository = (*SummaryRepository)(nil)
