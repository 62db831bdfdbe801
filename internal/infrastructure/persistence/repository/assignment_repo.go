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

// AssignmentRepository implements port.AssignmentRepository
type AssignmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *sql.DB, logger *zap.Logger) port.AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

const assignmentColumns = `
	id, task_id, assigned_to, start_index, end_index, status,
	assigned_at, started_at, completed_at, rejected_at, rejected_by,
	reject_reason, created_at, updated_at
`

// Create creates a new assignment
func (r *AssignmentRepository) Create(ctx context.Context, assignment *entity.Assignment) error {
	query := `
		INSERT INTO assignments (
			task_id, assigned_to, start_index, end_index, status,
			assigned_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if assignment.Status == "" {
		assignment.Status = entity.AssignmentStatusPending
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = now
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		assignment.TaskID,
		assignment.AssignedTo,
		assignment.StartIndex,
		assignment.EndIndex,
		assignment.Status,
		assignment.AssignedAt,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create assignment",
			zap.Int64("task_id", assignment.TaskID),
			zap.Int64("assigned_to", assignment.AssignedTo),
			zap.Error(err))
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get assignment id: %w", err)
	}
	assignment.ID = id

	return nil
}

// GetByID retrieves an assignment by ID, returning nil when it does not exist
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*entity.Assignment, error) {
	query := `SELECT` + assignmentColumns + `FROM assignments WHERE id = ?`

	assignment, err := scanAssignment(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get assignment", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return assignment, nil
}

// GetByTaskAndUser retrieves the user's assignment within a task, or nil
func (r *AssignmentRepository) GetByTaskAndUser(ctx context.Context, taskID, userID int64) (*entity.Assignment, error) {
	query := `SELECT` + assignmentColumns + `FROM assignments WHERE task_id = ? AND assigned_to = ?`

	assignment, err := scanAssignment(getExecutor(ctx, r.db).QueryRowContext(ctx, query, taskID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get assignment",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return assignment, nil
}

// ListByTask retrieves all assignments of a task ordered by range start
func (r *AssignmentRepository) ListByTask(ctx context.Context, taskID int64) ([]*entity.Assignment, error) {
	query := `SELECT` + assignmentColumns + `FROM assignments WHERE task_id = ? ORDER BY start_index`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to list assignments", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*entity.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, assignment)
	}

	return assignments, rows.Err()
}

// DeleteByTask removes all assignments of a task (wholesale re-assignment)
func (r *AssignmentRepository) DeleteByTask(ctx context.Context, taskID int64) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM assignments WHERE task_id = ?`, taskID)
	if err != nil {
		r.logger.Error("Failed to delete assignments", zap.Int64("task_id", taskID), zap.Error(err))
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	return nil
}

// MarkStarted transitions pending -> in_progress on first read by the
// assignee. A no-op when the assignment is past pending.
func (r *AssignmentRepository) MarkStarted(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE assignments
		SET status = ?, started_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entity.AssignmentStatusInProgress, at, time.Now(), id, entity.AssignmentStatusPending)
	if err != nil {
		r.logger.Error("Failed to mark assignment started", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark assignment started: %w", err)
	}
	return nil
}

// CompleteIfOpen flips the assignment to completed only when it is not
// completed already. The WHERE guard is the compare-and-set that makes a
// concurrent second submit observe no effect.
func (r *AssignmentRepository) CompleteIfOpen(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE assignments
		SET status = ?, completed_at = ?, rejected_at = NULL, rejected_by = NULL,
		    reject_reason = '', updated_at = ?
		WHERE id = ? AND status != ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entity.AssignmentStatusCompleted, at, time.Now(), id, entity.AssignmentStatusCompleted)
	if err != nil {
		r.logger.Error("Failed to complete assignment", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to complete assignment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check completion result: %w", err)
	}

	return affected > 0, nil
}

// Reject flips a completed assignment to rejected with reason metadata
func (r *AssignmentRepository) Reject(ctx context.Context, id int64, by int64, reason string, at time.Time) error {
	query := `
		UPDATE assignments
		SET status = ?, rejected_at = ?, rejected_by = ?, reject_reason = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entity.AssignmentStatusRejected, at, by, reason, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to reject assignment", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to reject assignment: %w", err)
	}
	return nil
}

// Reset returns a completed or rejected assignment to in_progress, clearing
// completion and rejection metadata (reopen path)
func (r *AssignmentRepository) Reset(ctx context.Context, id int64) error {
	query := `
		UPDATE assignments
		SET status = ?, completed_at = NULL, rejected_at = NULL, rejected_by = NULL,
		    reject_reason = '', updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entity.AssignmentStatusInProgress, time.Now(), id,
		entity.AssignmentStatusCompleted, entity.AssignmentStatusRejected)
	if err != nil {
		r.logger.Error("Failed to reset assignment", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to reset assignment: %w", err)
	}
	return nil
}

// ListOverdue returns assignments not yet completed whose task deadline has
// passed, for the external reminder sweep.
func (r *AssignmentRepository) ListOverdue(ctx context.Context, now time.Time) ([]*entity.OverdueAssignment, error) {
	query := `
		SELECT a.id, a.task_id, a.assigned_to, a.start_index, a.end_index, a.status,
		       a.assigned_at, a.started_at, a.completed_at, a.rejected_at, a.rejected_by,
		       a.reject_reason, a.created_at, a.updated_at, t.title, t.deadline
		FROM assignments a
		JOIN tasks t ON t.id = a.task_id
		WHERE t.deadline IS NOT NULL AND t.deadline < ?
		  AND a.status != ?
		ORDER BY t.deadline, a.start_index
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, now, entity.AssignmentStatusCompleted)
	if err != nil {
		r.logger.Error("Failed to list overdue assignments", zap.Error(err))
		return nil, fmt.Errorf("failed to list overdue assignments: %w", err)
	}
	defer rows.Close()

	var overdue []*entity.OverdueAssignment
	for rows.Next() {
		var a entity.Assignment
		var startedAt, completedAt, rejectedAt sql.NullTime
		var rejectedBy sql.NullInt64
		var title string
		var deadline time.Time

		err := rows.Scan(
			&a.ID, &a.TaskID, &a.AssignedTo, &a.StartIndex, &a.EndIndex, &a.Status,
			&a.AssignedAt, &startedAt, &completedAt, &rejectedAt, &rejectedBy,
			&a.RejectReason, &a.CreatedAt, &a.UpdatedAt, &title, &deadline,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overdue assignment: %w", err)
		}

		a.StartedAt = timePtr(startedAt)
		a.CompletedAt = timePtr(completedAt)
		a.RejectedAt = timePtr(rejectedAt)
		a.RejectedBy = int64Ptr(rejectedBy)

		overdue = append(overdue, &entity.OverdueAssignment{
			Assignment: &a,
			TaskID:     a.TaskID,
			TaskTitle:  title,
			Deadline:   deadline,
		})
	}

	return overdue, rows.Err()
}

func scanAssignment(row rowScanner) (*entity.Assignment, error) {
	var a entity.Assignment
	var startedAt, completedAt, rejectedAt sql.NullTime
	var rejectedBy sql.NullInt64

	err := row.Scan(
		&a.ID,
		&a.TaskID,
		&a.AssignedTo,
		&a.StartIndex,
		&a.EndIndex,
		&a.Status,
		&a.AssignedAt,
		&startedAt,
		&completedAt,
		&rejectedAt,
		&rejectedBy,
		&a.RejectReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.StartedAt = timePtr(startedAt)
	a.CompletedAt = timePtr(completedAt)
	a.RejectedAt = timePtr(rejectedAt)
	a.RejectedBy = int64Ptr(rejectedBy)

	return &a, nil
}

// Verify interface compliance
var _ port.AssignmentRepository = (*AssignmentRepository)(nil)
