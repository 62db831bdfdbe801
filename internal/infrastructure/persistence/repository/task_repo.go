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

// TaskRepository implements port.TaskRepository
type TaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB, logger *zap.Logger) port.TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

const taskColumns = `
	id, title, description, status, created_by, file_id, original_filename,
	total_records, deadline, completed_at, finalized_at, finalized_by,
	created_at, updated_at
`

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	query := `
		INSERT INTO tasks (
			title, description, status, created_by, file_id,
			original_filename, total_records, deadline, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if task.Status == "" {
		task.Status = entity.TaskStatusDraft
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	var deadline sql.NullTime
	if task.Deadline != nil {
		deadline = sql.NullTime{Time: *task.Deadline, Valid: true}
	}

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.CreatedBy,
		task.FileID,
		task.OriginalFilename,
		task.TotalRecords,
		deadline,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create task",
			zap.String("title", task.Title),
			zap.Error(err))
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get task id: %w", err)
	}
	task.ID = id

	return nil
}

// GetByID retrieves a task by ID, returning nil when it does not exist
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	query := `SELECT` + taskColumns + `FROM tasks WHERE id = ?`

	task, err := scanTask(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get task", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// List retrieves tasks matching the filter, plus the unpaginated total.
func (r *TaskRepository) List(ctx context.Context, filter port.TaskFilter) ([]*entity.Task, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}

	switch {
	case filter.CreatedBy != 0 && filter.AssignedTo != 0:
		where += ` AND (created_by = ? OR id IN (SELECT task_id FROM assignments WHERE assigned_to = ?))`
		args = append(args, filter.CreatedBy, filter.AssignedTo)
	case filter.CreatedBy != 0:
		where += ` AND created_by = ?`
		args = append(args, filter.CreatedBy)
	case filter.AssignedTo != 0:
		where += ` AND id IN (SELECT task_id FROM assignments WHERE assigned_to = ?)`
		args = append(args, filter.AssignedTo)
	}

	if filter.Status != "" {
		where += ` AND status = ?`
		args = append(args, filter.Status)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks ` + where
	if err := getExecutor(ctx, r.db).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := `SELECT` + taskColumns + `FROM tasks ` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list tasks", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entity.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, total, rows.Err()
}

// UpdateStatus flips only the lifecycle status column
func (r *TaskRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update task status",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}

// SetCompleted stamps completed status and timestamp in one write
func (r *TaskRepository) SetCompleted(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE tasks SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entity.TaskStatusCompleted, at, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to mark task completed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark task completed: %w", err)
	}
	return nil
}

// SetFinalized stamps finalized status, timestamp and signer
func (r *TaskRepository) SetFinalized(ctx context.Context, id int64, by int64, at time.Time) error {
	query := `UPDATE tasks SET status = ?, finalized_at = ?, finalized_by = ?, updated_at = ? WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entity.TaskStatusFinalized, at, by, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to finalize task", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to finalize task: %w", err)
	}
	return nil
}

// ClearCompletion reverts to in_progress, clearing completion and
// finalization metadata
func (r *TaskRepository) ClearCompletion(ctx context.Context, id int64) error {
	query := `
		UPDATE tasks
		SET status = ?, completed_at = NULL, finalized_at = NULL,
		    finalized_by = NULL, updated_at = ?
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entity.TaskStatusInProgress, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to clear task completion", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to clear task completion: %w", err)
	}
	return nil
}

// Delete removes the task row; assignment, draft, summary and session rows
// cascade at the database level
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*entity.Task, error) {
	var task entity.Task
	var deadline, completedAt, finalizedAt sql.NullTime
	var finalizedBy sql.NullInt64

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.CreatedBy,
		&task.FileID,
		&task.OriginalFilename,
		&task.TotalRecords,
		&deadline,
		&completedAt,
		&finalizedAt,
		&finalizedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Deadline = timePtr(deadline)
	task.CompletedAt = timePtr(completedAt)
	task.FinalizedAt = timePtr(finalizedAt)
	task.FinalizedBy = int64Ptr(finalizedBy)

	return &task, nil
}

// Verify interface compliance
var _ port.TaskRepository = (*TaskRepository)(nil)
