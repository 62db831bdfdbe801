package service

import (
	"context"
	"time"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// SessionStatus is the idle check result for the client reminder banner.
type SessionStatus struct {
	Session         *entity.WorkSession `json:"session,omitempty"`
	Active          bool                `json:"active"`
	IdleMinutes     float64             `json:"idle_minutes"`
	DurationMinutes float64             `json:"duration_minutes"`
	ShouldRemind    bool                `json:"should_remind"`
	Idle            bool                `json:"idle"`
}

// SessionService tracks per-(task, user) editing sessions. Sessions exist
// for visibility only; nothing in the core blocks on them.
type SessionService interface {
	// Start opens a fresh session, ending any previous active one.
	Start(ctx context.Context, actor entity.Actor, taskID int64) (*entity.WorkSession, error)

	// Heartbeat records activity on the active session, creating one when
	// none exists.
	Heartbeat(ctx context.Context, actor entity.Actor, taskID int64) (*SessionStatus, error)

	// End closes the active session.
	End(ctx context.Context, actor entity.Actor, taskID int64) error

	// Status reports idle state without recording activity.
	Status(ctx context.Context, actor entity.Actor, taskID int64) (*SessionStatus, error)
}

type sessionServiceImpl struct {
	assignRepo  port.AssignmentRepository
	sessionRepo port.SessionRepository
	txManager   port.TransactionManager
	logger      Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(
	assignRepo port.AssignmentRepository,
	sessionRepo port.SessionRepository,
	txManager port.TransactionManager,
	logger Logger,
) SessionService {
	return &sessionServiceImpl{
		assignRepo:  assignRepo,
		sessionRepo: sessionRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

func (s *sessionServiceImpl) Start(ctx context.Context, actor entity.Actor, taskID int64) (*entity.WorkSession, error) {
	if err := s.requireAssignment(ctx, taskID, actor.ID); err != nil {
		return nil, err
	}

	now := time.Now()
	session := &entity.WorkSession{
		TaskID:       taskID,
		UserID:       actor.ID,
		SessionStart: now,
		LastActivity: now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.sessionRepo.DeactivateAll(txCtx, taskID, actor.ID, now); err != nil {
			return err
		}
		return s.sessionRepo.Create(txCtx, session)
	})
	if err != nil {
		s.logger.Error("Failed to start work session", "error", err, "task_id", taskID, "user_id", actor.ID)
		return nil, apperr.Internal(err, "failed to start work session")
	}

	return session, nil
}

func (s *sessionServiceImpl) Heartbeat(ctx context.Context, actor entity.Actor, taskID int64) (*SessionStatus, error) {
	if err := s.requireAssignment(ctx, taskID, actor.ID); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetActive(ctx, taskID, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load work session")
	}

	now := time.Now()
	if session == nil {
		session = &entity.WorkSession{
			TaskID:       taskID,
			UserID:       actor.ID,
			SessionStart: now,
			LastActivity: now,
		}
		if err := s.sessionRepo.Create(ctx, session); err != nil {
			return nil, apperr.Internal(err, "failed to create work session")
		}
	} else {
		if err := s.sessionRepo.Touch(ctx, session.ID, now); err != nil {
			return nil, apperr.Internal(err, "failed to touch work session")
		}
		session.LastActivity = now
		session.ActivityCount++
	}

	return statusOf(session, now), nil
}

func (s *sessionServiceImpl) End(ctx context.Context, actor entity.Actor, taskID int64) error {
	if err := s.requireAssignment(ctx, taskID, actor.ID); err != nil {
		return err
	}
	if err := s.sessionRepo.DeactivateAll(ctx, taskID, actor.ID, time.Now()); err != nil {
		return apperr.Internal(err, "failed to end work session")
	}
	return nil
}

func (s *sessionServiceImpl) Status(ctx context.Context, actor entity.Actor, taskID int64) (*SessionStatus, error) {
	if err := s.requireAssignment(ctx, taskID, actor.ID); err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetActive(ctx, taskID, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load work session")
	}
	if session == nil {
		return &SessionStatus{}, nil
	}
	return statusOf(session, time.Now()), nil
}

func statusOf(session *entity.WorkSession, now time.Time) *SessionStatus {
	idle := session.IdleMinutes(now)
	return &SessionStatus{
		Session:         session,
		Active:          true,
		IdleMinutes:     idle,
		DurationMinutes: session.DurationMinutes(now),
		ShouldRemind:    idle >= entity.SessionRemindAfterMinutes,
		Idle:            idle >= entity.SessionIdleAfterMinutes,
	}
}

func (s *sessionServiceImpl) requireAssignment(ctx context.Context, taskID, userID int64) error {
	assignment, err := s.assignRepo.GetByTaskAndUser(ctx, taskID, userID)
	if err != nil {
		return apperr.Internal(err, "failed to load assignment")
	}
	if assignment == nil {
		return apperr.New(apperr.CodeNotAssigned, "user %d is not assigned to task %d", userID, taskID)
	}
	return nil
}
