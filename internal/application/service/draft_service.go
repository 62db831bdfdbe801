package service

import (
	"context"
	"time"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// SaveDraftInput is a partial draft update: nil fields leave the stored
// draft's fields untouched, set fields overwrite them.
type SaveDraftInput struct {
	RecordID   int64
	Prompt     *string
	Completion *string
	AutoSaved  bool
}

// WorkingPage is one page of the assignee's working slice.
type WorkingPage struct {
	Records    []*entity.WorkingRecord `json:"records"`
	Total      int                     `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
	Assignment *entity.Assignment      `json:"assignment"`
}

// DraftService manages the assignee's working view: range reads overlaid
// with drafts, draft saves, local deletes and draft discards.
type DraftService interface {
	// GetWorkingPage returns the actor's slice of the task with their
	// drafts overlaid. Records marked deleted in a draft are excluded.
	// The first read moves a pending assignment to in_progress.
	GetWorkingPage(ctx context.Context, actor entity.Actor, taskID int64, page, pageSize int) (*WorkingPage, error)

	// SaveDraft upserts the actor's draft for one record.
	SaveDraft(ctx context.Context, actor entity.Actor, taskID int64, input SaveDraftInput) (*entity.Draft, error)

	// MarkDeleted flags the record as locally deleted in the actor's draft.
	MarkDeleted(ctx context.Context, actor entity.Actor, taskID, recordID int64) error

	// DiscardDraft drops the actor's draft for one record, restoring the
	// canonical content in the working view.
	DiscardDraft(ctx context.Context, actor entity.Actor, taskID, recordID int64) error

	// DiscardAll drops every draft of the actor within the task.
	DiscardAll(ctx context.Context, actor entity.Actor, taskID int64) error
}

type draftServiceImpl struct {
	taskRepo    port.TaskRepository
	assignRepo  port.AssignmentRepository
	recordRepo  port.RecordRepository
	draftRepo   port.DraftRepository
	sessionRepo port.SessionRepository
	txManager   port.TransactionManager
	logger      Logger
}

// NewDraftService creates a new DraftService
func NewDraftService(
	taskRepo port.TaskRepository,
	assignRepo port.AssignmentRepository,
	recordRepo port.RecordRepository,
	draftRepo port.DraftRepository,
	sessionRepo port.SessionRepository,
	txManager port.TransactionManager,
	logger Logger,
) DraftService {
	return &draftServiceImpl{
		taskRepo:    taskRepo,
		assignRepo:  assignRepo,
		recordRepo:  recordRepo,
		draftRepo:   draftRepo,
		sessionRepo: sessionRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

func (s *draftServiceImpl) GetWorkingPage(ctx context.Context, actor entity.Actor, taskID int64, page, pageSize int) (*WorkingPage, error) {
	assignment, err := s.requireAssignment(ctx, taskID, actor.ID)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load task %d", taskID)
	}
	if task == nil {
		return nil, apperr.New(apperr.CodeNotFound, "task %d not found", taskID)
	}

	if assignment.Status == entity.AssignmentStatusPending {
		if err := s.assignRepo.MarkStarted(ctx, assignment.ID, time.Now()); err != nil {
			return nil, apperr.Internal(err, "failed to start assignment")
		}
		assignment.Status = entity.AssignmentStatusInProgress
	}

	rng := port.RecordRange{Start: &assignment.StartIndex, End: &assignment.EndIndex}
	records, err := s.recordRepo.ListRange(ctx, task.FileID, rng, false)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load records")
	}

	drafts, err := s.draftRepo.ListByTaskUser(ctx, taskID, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load drafts")
	}
	byRecord := make(map[int64]*entity.Draft, len(drafts))
	for _, d := range drafts {
		byRecord[d.RecordID] = d
	}

	working := make([]*entity.WorkingRecord, 0, len(records))
	for _, rec := range records {
		draft := byRecord[rec.ID]
		if draft != nil && draft.MarkedDeleted {
			continue
		}
		w := &entity.WorkingRecord{
			Record:     rec,
			Prompt:     rec.Prompt,
			Completion: rec.Completion,
		}
		if draft != nil {
			w.Draft = draft
			w.HasDraft = true
			w.Prompt = draft.OverlayPrompt(rec.Prompt)
			w.Completion = draft.OverlayCompletion(rec.Completion)
		}
		working = append(working, w)
	}

	total := len(working)
	if page < 1 {
		page = 1
	}
	if pageSize > 0 {
		start := (page - 1) * pageSize
		if start > total {
			start = total
		}
		end := start + pageSize
		if end > total {
			end = total
		}
		working = working[start:end]
	}

	return &WorkingPage{
		Records:    working,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		Assignment: assignment,
	}, nil
}

func (s *draftServiceImpl) SaveDraft(ctx context.Context, actor entity.Actor, taskID int64, input SaveDraftInput) (*entity.Draft, error) {
	assignment, err := s.requireOpenAssignment(ctx, taskID, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.requireInRange(ctx, assignment, input.RecordID); err != nil {
		return nil, err
	}

	existing, err := s.draftRepo.Get(ctx, taskID, actor.ID, input.RecordID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load draft")
	}

	draft := existing
	if draft == nil {
		draft = &entity.Draft{
			TaskID:   taskID,
			UserID:   actor.ID,
			RecordID: input.RecordID,
		}
	}
	if input.Prompt != nil {
		draft.Prompt = input.Prompt
	}
	if input.Completion != nil {
		draft.Completion = input.Completion
	}
	draft.AutoSaved = input.AutoSaved
	draft.LastSavedAt = time.Now()

	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, apperr.Internal(err, "failed to save draft")
	}

	// Auto-saves count as editing activity for the work session.
	if input.AutoSaved {
		s.touchSession(ctx, taskID, actor.ID)
	}

	return draft, nil
}

func (s *draftServiceImpl) MarkDeleted(ctx context.Context, actor entity.Actor, taskID, recordID int64) error {
	assignment, err := s.requireOpenAssignment(ctx, taskID, actor.ID)
	if err != nil {
		return err
	}
	if err := s.requireInRange(ctx, assignment, recordID); err != nil {
		return err
	}

	existing, err := s.draftRepo.Get(ctx, taskID, actor.ID, recordID)
	if err != nil {
		return apperr.Internal(err, "failed to load draft")
	}

	draft := existing
	if draft == nil {
		draft = &entity.Draft{
			TaskID:   taskID,
			UserID:   actor.ID,
			RecordID: recordID,
		}
	}
	draft.MarkedDeleted = true
	draft.LastSavedAt = time.Now()

	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return apperr.Internal(err, "failed to save draft")
	}
	return nil
}

func (s *draftServiceImpl) DiscardDraft(ctx context.Context, actor entity.Actor, taskID, recordID int64) error {
	if _, err := s.requireAssignment(ctx, taskID, actor.ID); err != nil {
		return err
	}
	if err := s.draftRepo.Clear(ctx, taskID, actor.ID, recordID); err != nil {
		return apperr.Internal(err, "failed to discard draft")
	}
	return nil
}

func (s *draftServiceImpl) DiscardAll(ctx context.Context, actor entity.Actor, taskID int64) error {
	if _, err := s.requireAssignment(ctx, taskID, actor.ID); err != nil {
		return err
	}
	if err := s.draftRepo.ClearAll(ctx, taskID, actor.ID); err != nil {
		return apperr.Internal(err, "failed to discard drafts")
	}
	return nil
}

func (s *draftServiceImpl) requireAssignment(ctx context.Context, taskID, userID int64) (*entity.Assignment, error) {
	assignment, err := s.assignRepo.GetByTaskAndUser(ctx, taskID, userID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load assignment")
	}
	if assignment == nil {
		return nil, apperr.New(apperr.CodeNotAssigned, "user %d is not assigned to task %d", userID, taskID)
	}
	return assignment, nil
}

func (s *draftServiceImpl) requireOpenAssignment(ctx context.Context, taskID, userID int64) (*entity.Assignment, error) {
	assignment, err := s.requireAssignment(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if assignment.Status == entity.AssignmentStatusCompleted {
		return nil, apperr.New(apperr.CodeAlreadyCompleted,
			"assignment for task %d was already submitted", taskID)
	}
	return assignment, nil
}

func (s *draftServiceImpl) requireInRange(ctx context.Context, assignment *entity.Assignment, recordID int64) error {
	record, err := s.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		return apperr.Internal(err, "failed to load record %d", recordID)
	}
	if record == nil || record.IsDeleted {
		return apperr.New(apperr.CodeNotFound, "record %d not found", recordID)
	}
	if !assignment.Covers(record.IndexInFile) {
		return apperr.New(apperr.CodeForbidden,
			"record %d is outside the assigned range [%d, %d]",
			recordID, assignment.StartIndex, assignment.EndIndex)
	}
	return nil
}

func (s *draftServiceImpl) touchSession(ctx context.Context, taskID, userID int64) {
	session, err := s.sessionRepo.GetActive(ctx, taskID, userID)
	if err != nil || session == nil {
		return
	}
	if err := s.sessionRepo.Touch(ctx, session.ID, time.Now()); err != nil {
		s.logger.Error("Failed to touch work session", "error", err, "session_id", session.ID)
	}
}
