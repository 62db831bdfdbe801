package service

import (
	"context"
	"fmt"
	"time"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
	"github.com/zhenghaoli/qacollab/internal/domain/workflow"
)

// Assignment strategies.
const (
	StrategyEven   = "even"
	StrategyManual = "manual"
)

// AssignInput selects a strategy and its parameters. Even split works off
// the resolved assignee set with an optional admin-reserved front block;
// manual split takes explicit ranges.
type AssignInput struct {
	Strategy string

	// UserIDs and GroupIDs are resolved through the identity provider.
	UserIDs  []int64
	GroupIDs []int64

	// AdminFront reserves the first N records for the acting admin
	// (even split only).
	AdminFront int

	// Ranges are the explicit slices (manual split only).
	Ranges []IndexRange
}

// AssignmentService partitions a task's dataset across users.
type AssignmentService interface {
	// Assign wholesale replaces any prior assignments, moves the task to
	// in_progress and notifies every assignee.
	Assign(ctx context.Context, actor entity.Actor, taskID int64, input AssignInput) ([]*entity.Assignment, error)

	// ListOverdue surfaces unfinished assignments past their task deadline
	// for the external reminder sweep.
	ListOverdue(ctx context.Context, actor entity.Actor) ([]*entity.OverdueAssignment, error)
}

type assignmentServiceImpl struct {
	taskRepo    port.TaskRepository
	assignRepo  port.AssignmentRepository
	draftRepo   port.DraftRepository
	summaryRepo port.SummaryRepository
	sessionRepo port.SessionRepository
	txManager   port.TransactionManager
	identity    port.IdentityProvider
	notifier    port.Notifier
	logger      Logger
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(
	taskRepo port.TaskRepository,
	assignRepo port.AssignmentRepository,
	draftRepo port.DraftRepository,
	summaryRepo port.SummaryRepository,
	sessionRepo port.SessionRepository,
	txManager port.TransactionManager,
	identity port.IdentityProvider,
	notifier port.Notifier,
	logger Logger,
) AssignmentService {
	return &assignmentServiceImpl{
		taskRepo:    taskRepo,
		assignRepo:  assignRepo,
		draftRepo:   draftRepo,
		summaryRepo: summaryRepo,
		sessionRepo: sessionRepo,
		txManager:   txManager,
		identity:    identity,
		notifier:    notifier,
		logger:      logger,
	}
}

// Assign validates everything before the first write: strategy parameters,
// lifecycle state and assignee resolution all fail the call with no partial
// assignments left behind.
func (s *assignmentServiceImpl) Assign(ctx context.Context, actor entity.Actor, taskID int64, input AssignInput) ([]*entity.Assignment, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load task %d", taskID)
	}
	if task == nil {
		return nil, apperr.New(apperr.CodeNotFound, "task %d not found", taskID)
	}
	if err := requireManager(actor, task); err != nil {
		return nil, err
	}

	machine := workflow.NewTaskMachine(workflow.State(task.Status))
	if !machine.CanFire(workflow.TriggerAssign) {
		return nil, apperr.New(apperr.CodeInvalidStatus,
			"task %d cannot be assigned from %s", taskID, task.Status)
	}

	ranges, err := s.resolveRanges(ctx, actor, task, input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	assignments := make([]*entity.Assignment, len(ranges))
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// Wholesale replacement: prior assignments, drafts, summaries and
		// sessions of the previous partition go away together.
		if err := s.assignRepo.DeleteByTask(txCtx, taskID); err != nil {
			return fmt.Errorf("delete prior assignments: %w", err)
		}
		if err := s.draftRepo.DeleteByTask(txCtx, taskID); err != nil {
			return fmt.Errorf("delete prior drafts: %w", err)
		}
		if err := s.summaryRepo.DeleteByTask(txCtx, taskID); err != nil {
			return fmt.Errorf("delete prior summaries: %w", err)
		}
		if err := s.sessionRepo.DeleteByTask(txCtx, taskID); err != nil {
			return fmt.Errorf("delete prior sessions: %w", err)
		}

		for i, r := range ranges {
			assignment := &entity.Assignment{
				TaskID:     taskID,
				AssignedTo: r.UserID,
				StartIndex: r.Start,
				EndIndex:   r.End,
				Status:     entity.AssignmentStatusPending,
				AssignedAt: now,
			}
			if err := s.assignRepo.Create(txCtx, assignment); err != nil {
				return fmt.Errorf("create assignment for user %d: %w", r.UserID, err)
			}
			assignments[i] = assignment
		}

		if task.Status != entity.TaskStatusInProgress {
			if err := s.taskRepo.UpdateStatus(txCtx, taskID, entity.TaskStatusInProgress); err != nil {
				return fmt.Errorf("update task status: %w", err)
			}
		} else if err := s.taskRepo.ClearCompletion(txCtx, taskID); err != nil {
			return fmt.Errorf("clear completion: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to assign task", "error", err, "task_id", taskID)
		return nil, apperr.Internal(err, "failed to assign task %d", taskID)
	}

	for _, a := range assignments {
		s.notifier.Notify(ctx, &entity.Notification{
			UserID: a.AssignedTo,
			Type:   entity.NotifyAssignmentCreated,
			Title:  "New proofreading assignment",
			Content: fmt.Sprintf("You were assigned records %d-%d of task %q",
				a.StartIndex, a.EndIndex, task.Title),
			TaskID: &taskID,
		})
	}

	s.logger.Info("Task assigned", "task_id", taskID, "strategy", input.Strategy, "assignments", len(assignments))
	return assignments, nil
}

func (s *assignmentServiceImpl) resolveRanges(ctx context.Context, actor entity.Actor, task *entity.Task, input AssignInput) ([]IndexRange, error) {
	switch input.Strategy {
	case StrategyEven:
		users, err := s.identity.ResolveAssignees(ctx, actor, input.UserIDs, input.GroupIDs)
		if err != nil {
			return nil, err
		}
		return evenSplit(task.TotalRecords, actor.ID, input.AdminFront, users)
	case StrategyManual:
		seen := make(map[int64]bool)
		var ids []int64
		for _, r := range input.Ranges {
			if !seen[r.UserID] {
				seen[r.UserID] = true
				ids = append(ids, r.UserID)
			}
		}
		users, err := s.identity.ResolveAssignees(ctx, actor, ids, nil)
		if err != nil {
			return nil, err
		}
		if err := validateManualSplit(task.TotalRecords, input.Ranges, users); err != nil {
			return nil, err
		}
		return input.Ranges, nil
	default:
		return nil, apperr.New(apperr.CodeInvalidRequest, "unknown assignment strategy %q", input.Strategy)
	}
}

// ListOverdue is admin-only.
func (s *assignmentServiceImpl) ListOverdue(ctx context.Context, actor entity.Actor) ([]*entity.OverdueAssignment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	overdue, err := s.assignRepo.ListOverdue(ctx, time.Now())
	if err != nil {
		return nil, apperr.Internal(err, "failed to list overdue assignments")
	}
	return overdue, nil
}
