package service

import (
	"context"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// ProgressService derives task progress and per-participant views from the
// current assignment rows. Nothing here is cached.
type ProgressService interface {
	GetProgress(ctx context.Context, actor entity.Actor, taskID int64) (*entity.TaskProgress, error)
	GetParticipants(ctx context.Context, actor entity.Actor, taskID int64) ([]*entity.ParticipantView, error)
}

type progressServiceImpl struct {
	taskRepo   port.TaskRepository
	assignRepo port.AssignmentRepository
	recordRepo port.RecordRepository
	draftRepo  port.DraftRepository
	logger     Logger
}

// NewProgressService creates a new ProgressService
func NewProgressService(
	taskRepo port.TaskRepository,
	assignRepo port.AssignmentRepository,
	recordRepo port.RecordRepository,
	draftRepo port.DraftRepository,
	logger Logger,
) ProgressService {
	return &progressServiceImpl{
		taskRepo:   taskRepo,
		assignRepo: assignRepo,
		recordRepo: recordRepo,
		draftRepo:  draftRepo,
		logger:     logger,
	}
}

// deriveProgress recomputes completion from the assignment rows. Rejected
// assignments count toward the total but not toward completion.
func deriveProgress(assignments []*entity.Assignment) entity.TaskProgress {
	p := entity.TaskProgress{TotalAssignments: len(assignments)}
	for _, a := range assignments {
		if a.Status == entity.AssignmentStatusCompleted {
			p.CompletedAssignments++
		}
	}
	if p.TotalAssignments > 0 {
		p.CompletionRate = float64(p.CompletedAssignments) / float64(p.TotalAssignments)
	}
	return p
}

func (s *progressServiceImpl) GetProgress(ctx context.Context, actor entity.Actor, taskID int64) (*entity.TaskProgress, error) {
	if _, err := s.requireAccess(ctx, actor, taskID); err != nil {
		return nil, err
	}

	assignments, err := s.assignRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load assignments")
	}

	progress := deriveProgress(assignments)
	return &progress, nil
}

// GetParticipants returns one row per assignee with their range, status and
// deleted-record count. Before submission the count reflects drafts marked
// deleted; after submission it reflects soft-deleted records attributed to
// the assignee within their range.
func (s *progressServiceImpl) GetParticipants(ctx context.Context, actor entity.Actor, taskID int64) ([]*entity.ParticipantView, error) {
	task, err := s.requireAccess(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load assignments")
	}

	views := make([]*entity.ParticipantView, 0, len(assignments))
	for _, a := range assignments {
		view := &entity.ParticipantView{
			Assignment:  a,
			UserID:      a.AssignedTo,
			RecordCount: a.RecordCount(),
			CompletedAt: a.CompletedAt,
		}

		if a.Status == entity.AssignmentStatusCompleted || a.Status == entity.AssignmentStatusRejected {
			count, err := s.recordRepo.CountDeletedByEditor(ctx, task.FileID, a.AssignedTo, a.StartIndex, a.EndIndex)
			if err != nil {
				return nil, apperr.Internal(err, "failed to count deleted records")
			}
			view.DeletedCount = count
		} else {
			count, err := s.draftRepo.CountMarkedDeleted(ctx, taskID, a.AssignedTo)
			if err != nil {
				return nil, apperr.Internal(err, "failed to count marked-deleted drafts")
			}
			view.DeletedCount = count
		}

		views = append(views, view)
	}

	return views, nil
}

func (s *progressServiceImpl) requireAccess(ctx context.Context, actor entity.Actor, taskID int64) (*entity.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load task %d", taskID)
	}
	if task == nil {
		return nil, apperr.New(apperr.CodeNotFound, "task %d not found", taskID)
	}
	if requireManager(actor, task) == nil {
		return task, nil
	}
	assignment, err := s.assignRepo.GetByTaskAndUser(ctx, taskID, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load assignment")
	}
	if assignment == nil {
		return nil, apperr.New(apperr.CodeForbidden, "user %d has no access to task %d", actor.ID, taskID)
	}
	return task, nil
}
