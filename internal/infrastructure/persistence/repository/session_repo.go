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

// SessionRepository implements port.SessionRepository
type SessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new work session repository
func NewSessionRepository(db *sql.DB, logger *zap.Logger) port.SessionRepository {
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new active session row
func (r *SessionRepository) Create(ctx context.Context, s *entity.WorkSession) error {
	query := `
		INSERT INTO work_sessions (task_id, user_id, session_start, last_activity, is_active, activity_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if s.SessionStart.IsZero() {
		s.SessionStart = now
	}
	if s.LastActivity.IsZero() {
		s.LastActivity = s.SessionStart
	}
	s.IsActive = true

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		s.TaskID, s.UserID, s.SessionStart, s.LastActivity, s.IsActive, s.ActivityCount)
	if err != nil {
		r.logger.Error("Failed to create work session",
			zap.Int64("task_id", s.TaskID),
			zap.Int64("user_id", s.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create work session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get work session id: %w", err)
	}
	s.ID = id

	return nil
}

// GetActive retrieves the active session for the pair, or nil. When several
// are active the most recent wins.
func (r *SessionRepository) GetActive(ctx context.Context, taskID, userID int64) (*entity.WorkSession, error) {
	query := `
		SELECT id, task_id, user_id, session_start, session_end, last_activity, is_active, activity_count
		FROM work_sessions
		WHERE task_id = ? AND user_id = ? AND is_active = 1
		ORDER BY session_start DESC
		LIMIT 1
	`

	var s entity.WorkSession
	var sessionEnd sql.NullTime
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, taskID, userID).Scan(
		&s.ID, &s.TaskID, &s.UserID, &s.SessionStart, &sessionEnd,
		&s.LastActivity, &s.IsActive, &s.ActivityCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get active work session",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active work session: %w", err)
	}

	s.SessionEnd = timePtr(sessionEnd)
	return &s, nil
}

// DeactivateAll ends every active session for the pair
func (r *SessionRepository) DeactivateAll(ctx context.Context, taskID, userID int64, at time.Time) error {
	query := `
		UPDATE work_sessions
		SET is_active = 0, session_end = ?
		WHERE task_id = ? AND user_id = ? AND is_active = 1
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, at, taskID, userID)
	if err != nil {
		r.logger.Error("Failed to deactivate work sessions",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return fmt.Errorf("failed to deactivate work sessions: %w", err)
	}
	return nil
}

// Touch bumps last_activity and the activity counter
func (r *SessionRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE work_sessions
		SET last_activity = ?, activity_count = activity_count + 1
		WHERE id = ? AND is_active = 1
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, at, id)
	if err != nil {
		r.logger.Error("Failed to touch work session", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to touch work session: %w", err)
	}
	return nil
}

// End closes the session
func (r *SessionRepository) End(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE work_sessions
		SET is_active = 0, session_end = ?
		WHERE id = ? AND is_active = 1
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, at, id)
	if err != nil {
		r.logger.Error("Failed to end work session", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to end work session: %w", err)
	}
	return nil
}

// DeleteByTask removes all sessions of a task
func (r *SessionRepository) DeleteByTask(ctx context.Context, taskID int64) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM work_sessions WHERE task_id = ?`, taskID)
	if err != nil {
		r.logger.Error("Failed to delete work sessions", zap.Int64("task_id", taskID), zap.Error(err))
		return fmt.Errorf("failed to delete work sessions: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.SessionRepository = (*SessionRepository)(nil)
