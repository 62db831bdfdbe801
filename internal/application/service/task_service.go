package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
	"github.com/zhenghaoli/qacollab/internal/domain/workflow"
)

// CreateTaskInput carries an already-parsed dataset plus task metadata.
type CreateTaskInput struct {
	Title            string
	Description      string
	OriginalFilename string
	Deadline         *time.Time
	Records          []RecordInput
}

// RecordInput is one prompt/completion pair of the uploaded dataset.
type RecordInput struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// ListTasksInput narrows and paginates a task listing.
type ListTasksInput struct {
	Status string
	Page   int
	Limit  int
}

// TaskDetail is the full task view: assignments, derived progress and the
// actor's relationship to the task.
type TaskDetail struct {
	Task         *entity.Task         `json:"task"`
	Assignments  []*entity.Assignment `json:"assignments"`
	Progress     entity.TaskProgress  `json:"progress"`
	MyAssignment *entity.Assignment   `json:"my_assignment,omitempty"`
	CanManage    bool                 `json:"can_manage"`
}

// TaskService manages task creation, listing and the lifecycle transitions
// driven by admins: reject, reopen, finalize, delete.
type TaskService interface {
	Create(ctx context.Context, actor entity.Actor, input CreateTaskInput) (*entity.Task, error)
	Get(ctx context.Context, actor entity.Actor, taskID int64) (*TaskDetail, error)
	List(ctx context.Context, actor entity.Actor, input ListTasksInput) ([]*entity.Task, int, error)
	Delete(ctx context.Context, actor entity.Actor, taskID int64) error

	Reject(ctx context.Context, actor entity.Actor, taskID, assigneeID int64, reason string) error
	Reopen(ctx context.Context, actor entity.Actor, taskID int64) error
	Finalize(ctx context.Context, actor entity.Actor, taskID int64) (*entity.Task, error)
}

type taskServiceImpl struct {
	taskRepo    port.TaskRepository
	fileRepo    port.FileRepository
	recordRepo  port.RecordRepository
	assignRepo  port.AssignmentRepository
	draftRepo   port.DraftRepository
	summaryRepo port.SummaryRepository
	sessionRepo port.SessionRepository
	txManager   port.TransactionManager
	notifier    port.Notifier
	maxRecords  int
	logger      Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo port.TaskRepository,
	fileRepo port.FileRepository,
	recordRepo port.RecordRepository,
	assignRepo port.AssignmentRepository,
	draftRepo port.DraftRepository,
	summaryRepo port.SummaryRepository,
	sessionRepo port.SessionRepository,
	txManager port.TransactionManager,
	notifier port.Notifier,
	maxRecords int,
	logger Logger,
) TaskService {
	return &taskServiceImpl{
		taskRepo:    taskRepo,
		fileRepo:    fileRepo,
		recordRepo:  recordRepo,
		assignRepo:  assignRepo,
		draftRepo:   draftRepo,
		summaryRepo: summaryRepo,
		sessionRepo: sessionRepo,
		txManager:   txManager,
		notifier:    notifier,
		maxRecords:  maxRecords,
		logger:      logger,
	}
}

// Create ingests the dataset and the task as one unit: the file row, every
// record and the task either all exist afterwards or none do.
func (s *taskServiceImpl) Create(ctx context.Context, actor entity.Actor, input CreateTaskInput) (*entity.Task, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperr.New(apperr.CodeMissingField, "title is required")
	}
	if len(input.Records) == 0 {
		return nil, apperr.New(apperr.CodeMissingField, "dataset has no records")
	}
	if s.maxRecords > 0 && len(input.Records) > s.maxRecords {
		return nil, apperr.New(apperr.CodeInvalidRequest,
			"dataset has %d records, limit is %d", len(input.Records), s.maxRecords)
	}

	file := &entity.DatasetFile{
		Filename:         input.OriginalFilename,
		OriginalFilename: input.OriginalFilename,
		UploadedBy:       actor.ID,
	}

	task := &entity.Task{
		Title:            strings.TrimSpace(input.Title),
		Description:      input.Description,
		Status:           entity.TaskStatusDraft,
		CreatedBy:        actor.ID,
		OriginalFilename: input.OriginalFilename,
		TotalRecords:     len(input.Records),
		Deadline:         input.Deadline,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.fileRepo.Create(txCtx, file); err != nil {
			return fmt.Errorf("create file: %w", err)
		}

		records := make([]*entity.QARecord, len(input.Records))
		for i, in := range input.Records {
			records[i] = &entity.QARecord{
				FileID:     file.ID,
				Prompt:     in.Prompt,
				Completion: in.Completion,
			}
		}
		if err := s.recordRepo.BulkCreate(txCtx, file.ID, records); err != nil {
			return fmt.Errorf("create records: %w", err)
		}

		task.FileID = file.ID
		if err := s.taskRepo.Create(txCtx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create task", "error", err, "title", input.Title)
		return nil, apperr.Internal(err, "failed to create task")
	}

	s.logger.Info("Task created", "id", task.ID, "records", task.TotalRecords, "created_by", actor.ID)
	return task, nil
}

// Get returns the task detail visible to the actor.
func (s *taskServiceImpl) Get(ctx context.Context, actor entity.Actor, taskID int64) (*TaskDetail, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load assignments")
	}

	detail := &TaskDetail{
		Task:        task,
		Assignments: assignments,
		Progress:    deriveProgress(assignments),
		CanManage:   requireManager(actor, task) == nil,
	}
	for _, a := range assignments {
		if a.AssignedTo == actor.ID {
			detail.MyAssignment = a
			break
		}
	}

	if !detail.CanManage && detail.MyAssignment == nil {
		return nil, apperr.New(apperr.CodeForbidden, "user %d has no access to task %d", actor.ID, taskID)
	}

	return detail, nil
}

// List returns the tasks visible to the actor: super admins see all, admins
// see created plus assigned, regular users see assigned only.
func (s *taskServiceImpl) List(ctx context.Context, actor entity.Actor, input ListTasksInput) ([]*entity.Task, int, error) {
	filter := port.TaskFilter{
		Status: input.Status,
		Limit:  input.Limit,
	}
	if input.Page > 1 {
		filter.Offset = (input.Page - 1) * input.Limit
	}

	switch {
	case actor.IsSuperAdmin():
		// no ownership filter
	case actor.IsAdmin():
		filter.CreatedBy = actor.ID
		filter.AssignedTo = actor.ID
	default:
		filter.AssignedTo = actor.ID
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Internal(err, "failed to list tasks")
	}
	return tasks, total, nil
}

// Delete removes the task and everything hanging off it: assignments,
// drafts, summaries, sessions, records and the file row.
func (s *taskServiceImpl) Delete(ctx context.Context, actor entity.Actor, taskID int64) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := requireManager(actor, task); err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// assignments, drafts, summaries and sessions cascade off the
		// task row; records and the file row need explicit deletes.
		if err := s.taskRepo.Delete(txCtx, taskID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if err := s.recordRepo.DeleteByFile(txCtx, task.FileID); err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
		if err := s.fileRepo.Delete(txCtx, task.FileID); err != nil {
			return fmt.Errorf("delete file: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to delete task", "error", err, "task_id", taskID)
		return apperr.Internal(err, "failed to delete task %d", taskID)
	}

	s.logger.Info("Task deleted", "task_id", taskID, "by", actor.ID)
	return nil
}

// Reject pushes one completed assignment back to the assignee. When the task
// as a whole was completed it drops back to in_progress.
func (s *taskServiceImpl) Reject(ctx context.Context, actor entity.Actor, taskID, assigneeID int64, reason string) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := requireManager(actor, task); err != nil {
		return err
	}
	if task.Status == entity.TaskStatusFinalized {
		return apperr.New(apperr.CodeInvalidStatus, "task %d is finalized", taskID)
	}

	assignment, err := s.assignRepo.GetByTaskAndUser(ctx, taskID, assigneeID)
	if err != nil {
		return apperr.Internal(err, "failed to load assignment")
	}
	if assignment == nil {
		return apperr.New(apperr.CodeNotAssigned, "user %d is not assigned to task %d", assigneeID, taskID)
	}
	if assignment.Status != entity.AssignmentStatusCompleted {
		return apperr.New(apperr.CodeInvalidStatus,
			"assignment of user %d is %s, only completed work can be rejected", assigneeID, assignment.Status)
	}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.assignRepo.Reject(txCtx, assignment.ID, actor.ID, reason, now); err != nil {
			return fmt.Errorf("reject assignment: %w", err)
		}
		if task.Status == entity.TaskStatusCompleted {
			machine := workflow.NewTaskMachine(workflow.State(task.Status))
			if err := machine.Fire(txCtx, workflow.TriggerReject); err != nil {
				return fmt.Errorf("fire reject: %w", err)
			}
			if err := s.taskRepo.ClearCompletion(txCtx, taskID); err != nil {
				return fmt.Errorf("clear completion: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to reject assignment", "error", err, "task_id", taskID, "user_id", assigneeID)
		return apperr.Internal(err, "failed to reject assignment")
	}

	s.notifier.Notify(ctx, &entity.Notification{
		UserID:  assigneeID,
		Type:    entity.NotifyAssignmentRejected,
		Title:   "Work rejected",
		Content: fmt.Sprintf("Your work on task %q was rejected: %s", task.Title, reason),
		TaskID:  &taskID,
	})

	s.logger.Info("Assignment rejected", "task_id", taskID, "user_id", assigneeID, "by", actor.ID)
	return nil
}

// Reopen bulk-resets every completed or rejected assignment and returns the
// task to in_progress.
func (s *taskServiceImpl) Reopen(ctx context.Context, actor entity.Actor, taskID int64) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := requireManager(actor, task); err != nil {
		return err
	}

	machine := workflow.NewTaskMachine(workflow.State(task.Status))
	if !machine.CanFire(workflow.TriggerReopen) {
		return apperr.New(apperr.CodeInvalidStatus, "task %d cannot be reopened from %s", taskID, task.Status)
	}

	assignments, err := s.assignRepo.ListByTask(ctx, taskID)
	if err != nil {
		return apperr.Internal(err, "failed to load assignments")
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, a := range assignments {
			if a.Status == entity.AssignmentStatusCompleted || a.Status == entity.AssignmentStatusRejected {
				if err := s.assignRepo.Reset(txCtx, a.ID); err != nil {
					return fmt.Errorf("reset assignment %d: %w", a.ID, err)
				}
			}
		}
		if err := s.taskRepo.ClearCompletion(txCtx, taskID); err != nil {
			return fmt.Errorf("clear completion: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to reopen task", "error", err, "task_id", taskID)
		return apperr.Internal(err, "failed to reopen task %d", taskID)
	}

	for _, a := range assignments {
		s.notifier.Notify(ctx, &entity.Notification{
			UserID:  a.AssignedTo,
			Type:    entity.NotifyTaskReopened,
			Title:   "Task reopened",
			Content: fmt.Sprintf("Task %q was reopened for further proofreading", task.Title),
			TaskID:  &taskID,
		})
	}

	s.logger.Info("Task reopened", "task_id", taskID, "by", actor.ID)
	return nil
}

// Finalize is the admin sign-off on a completed task. Rejected assignments
// must be resolved first.
func (s *taskServiceImpl) Finalize(ctx context.Context, actor entity.Actor, taskID int64) (*entity.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireManager(actor, task); err != nil {
		return nil, err
	}

	machine := workflow.NewTaskMachine(workflow.State(task.Status))
	if !machine.CanFire(workflow.TriggerFinalize) {
		return nil, apperr.New(apperr.CodeInvalidStatus, "task %d cannot be finalized from %s", taskID, task.Status)
	}

	assignments, err := s.assignRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load assignments")
	}
	for _, a := range assignments {
		if a.Status == entity.AssignmentStatusRejected {
			return nil, apperr.New(apperr.CodeHasRejected,
				"task %d has rejected assignments pending rework", taskID)
		}
	}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.taskRepo.SetFinalized(txCtx, taskID, actor.ID, now)
	})
	if err != nil {
		s.logger.Error("Failed to finalize task", "error", err, "task_id", taskID)
		return nil, apperr.Internal(err, "failed to finalize task %d", taskID)
	}

	task.Status = entity.TaskStatusFinalized
	task.FinalizedAt = &now
	task.FinalizedBy = &actor.ID

	s.logger.Info("Task finalized", "task_id", taskID, "by", actor.ID)
	return task, nil
}

func (s *taskServiceImpl) getTask(ctx context.Context, taskID int64) (*entity.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load task %d", taskID)
	}
	if task == nil {
		return nil, apperr.New(apperr.CodeNotFound, "task %d not found", taskID)
	}
	return task, nil
}
