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

// SubmitResult reports what one submission changed.
type SubmitResult struct {
	AssignmentID  int64 `json:"assignment_id"`
	EditedCount   int   `json:"edited_count"`
	DeletedCount  int   `json:"deleted_count"`
	TaskCompleted bool  `json:"task_completed"`
}

// SubmissionService turns an assignee's accumulated drafts into canonical
// record state.
type SubmissionService interface {
	// Submit folds the actor's drafts into the records, stamps every
	// record in the assigned range as reviewed, clears the drafts, flips
	// the assignment to completed and materializes the summary rows. All
	// of it happens in one transaction; a concurrent duplicate submit
	// fails with ALREADY_COMPLETED and changes nothing.
	Submit(ctx context.Context, actor entity.Actor, taskID int64) (*SubmitResult, error)
}

type submissionServiceImpl struct {
	taskRepo    port.TaskRepository
	assignRepo  port.AssignmentRepository
	recordRepo  port.RecordRepository
	draftRepo   port.DraftRepository
	summaryRepo port.SummaryRepository
	sessionRepo port.SessionRepository
	txManager   port.TransactionManager
	notifier    port.Notifier
	logger      Logger
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(
	taskRepo port.TaskRepository,
	assignRepo port.AssignmentRepository,
	recordRepo port.RecordRepository,
	draftRepo port.DraftRepository,
	summaryRepo port.SummaryRepository,
	sessionRepo port.SessionRepository,
	txManager port.TransactionManager,
	notifier port.Notifier,
	logger Logger,
) SubmissionService {
	return &submissionServiceImpl{
		taskRepo:    taskRepo,
		assignRepo:  assignRepo,
		recordRepo:  recordRepo,
		draftRepo:   draftRepo,
		summaryRepo: summaryRepo,
		sessionRepo: sessionRepo,
		txManager:   txManager,
		notifier:    notifier,
		logger:      logger,
	}
}

func (s *submissionServiceImpl) Submit(ctx context.Context, actor entity.Actor, taskID int64) (*SubmitResult, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load task %d", taskID)
	}
	if task == nil {
		return nil, apperr.New(apperr.CodeNotFound, "task %d not found", taskID)
	}
	if task.Status == entity.TaskStatusFinalized {
		return nil, apperr.New(apperr.CodeInvalidStatus, "task %d is finalized", taskID)
	}

	assignment, err := s.assignRepo.GetByTaskAndUser(ctx, taskID, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load assignment")
	}
	if assignment == nil {
		return nil, apperr.New(apperr.CodeNotAssigned, "user %d is not assigned to task %d", actor.ID, taskID)
	}

	now := time.Now()
	result := &SubmitResult{AssignmentID: assignment.ID}
	var taskCompleted bool

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// The compare-and-set on the assignment row is the concurrency
		// guard: whichever of two racing submits flips the row first
		// wins, the other sees zero affected rows and aborts here with
		// nothing else written yet.
		ok, err := s.assignRepo.CompleteIfOpen(txCtx, assignment.ID, now)
		if err != nil {
			return fmt.Errorf("complete assignment: %w", err)
		}
		if !ok {
			return apperr.New(apperr.CodeAlreadyCompleted,
				"assignment for task %d was already submitted", taskID)
		}

		// Snapshot the canonical content before folding drafts in, so the
		// summary rows keep the pre-edit originals.
		rng := port.RecordRange{Start: &assignment.StartIndex, End: &assignment.EndIndex}
		records, err := s.recordRepo.ListRange(txCtx, task.FileID, rng, false)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}

		drafts, err := s.draftRepo.ListByTaskUser(txCtx, taskID, actor.ID)
		if err != nil {
			return fmt.Errorf("load drafts: %w", err)
		}
		byRecord := make(map[int64]*entity.Draft, len(drafts))
		for _, d := range drafts {
			byRecord[d.RecordID] = d
		}

		for _, rec := range records {
			draft := byRecord[rec.ID]
			if draft == nil {
				continue
			}
			if draft.MarkedDeleted {
				if err := s.recordRepo.SoftDelete(txCtx, rec.ID, actor.ID, now); err != nil {
					return fmt.Errorf("soft delete record %d: %w", rec.ID, err)
				}
				result.DeletedCount++
				continue
			}
			prompt := draft.OverlayPrompt(rec.Prompt)
			completion := draft.OverlayCompletion(rec.Completion)
			if prompt != rec.Prompt || completion != rec.Completion {
				if err := s.recordRepo.Edit(txCtx, rec.ID, prompt, completion, actor.ID, now); err != nil {
					return fmt.Errorf("edit record %d: %w", rec.ID, err)
				}
				result.EditedCount++
			}
		}

		// Every surviving record in the range is stamped as reviewed by
		// the submitter, edited or not.
		if err := s.recordRepo.StampEditor(txCtx, task.FileID, assignment.StartIndex, assignment.EndIndex, actor.ID, now); err != nil {
			return fmt.Errorf("stamp records: %w", err)
		}

		for _, rec := range records {
			draft := byRecord[rec.ID]
			if draft != nil && draft.MarkedDeleted {
				continue
			}
			editedPrompt := rec.Prompt
			editedCompletion := rec.Completion
			if draft != nil {
				editedPrompt = draft.OverlayPrompt(rec.Prompt)
				editedCompletion = draft.OverlayCompletion(rec.Completion)
			}
			item := &entity.SummaryItem{
				TaskID:             taskID,
				RecordID:           rec.ID,
				RecordIndex:        rec.IndexInFile,
				AssignmentID:       &assignment.ID,
				OriginalPrompt:     rec.Prompt,
				OriginalCompletion: rec.Completion,
				EditedPrompt:       editedPrompt,
				EditedCompletion:   editedCompletion,
				EditorID:           &actor.ID,
				IsModified:         editedPrompt != rec.Prompt || editedCompletion != rec.Completion,
				SubmittedAt:        &now,
			}
			if err := s.summaryRepo.Upsert(txCtx, item); err != nil {
				return fmt.Errorf("upsert summary for record %d: %w", rec.ID, err)
			}
		}

		if err := s.draftRepo.ClearAll(txCtx, taskID, actor.ID); err != nil {
			return fmt.Errorf("clear drafts: %w", err)
		}

		if err := s.sessionRepo.DeactivateAll(txCtx, taskID, actor.ID, now); err != nil {
			return fmt.Errorf("end sessions: %w", err)
		}

		// Completion is derived from current assignment rows; the last
		// submitter's transaction flips the task.
		assignments, err := s.assignRepo.ListByTask(txCtx, taskID)
		if err != nil {
			return fmt.Errorf("load assignments: %w", err)
		}
		if deriveProgress(assignments).Complete() {
			machine := workflow.NewTaskMachine(workflow.State(task.Status))
			if machine.CanFire(workflow.TriggerComplete) {
				if err := s.taskRepo.SetCompleted(txCtx, taskID, now); err != nil {
					return fmt.Errorf("complete task: %w", err)
				}
				taskCompleted = true
			}
		}
		return nil
	})
	if err != nil {
		if apperr.IsCode(err, apperr.CodeAlreadyCompleted) {
			return nil, err
		}
		s.logger.Error("Failed to submit assignment", "error", err, "task_id", taskID, "user_id", actor.ID)
		return nil, apperr.Internal(err, "failed to submit task %d", taskID)
	}

	result.TaskCompleted = taskCompleted
	if taskCompleted {
		s.notifier.Notify(ctx, &entity.Notification{
			UserID:  task.CreatedBy,
			Type:    entity.NotifyTaskCompleted,
			Title:   "Task completed",
			Content: fmt.Sprintf("All assignments of task %q are submitted", task.Title),
			TaskID:  &taskID,
		})
	}

	s.logger.Info("Assignment submitted",
		"task_id", taskID, "user_id", actor.ID,
		"edited", result.EditedCount, "deleted", result.DeletedCount,
		"task_completed", taskCompleted)
	return result, nil
}
