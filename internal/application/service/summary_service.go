package service

import (
	"context"
	"time"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// SummaryPage is one page of the task review screen.
type SummaryPage struct {
	Items    []*entity.SummaryItem `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`

	// Live is true when no materialized rows exist yet and the page was
	// built directly from the current records.
	Live bool `json:"live"`
}

// SummaryService serves the admin review screen: materialized rows written
// at submission, with a live fallback, plus direct record edits.
type SummaryService interface {
	GetSummary(ctx context.Context, actor entity.Actor, taskID int64, page, pageSize int) (*SummaryPage, error)
	GetStats(ctx context.Context, actor entity.Actor, taskID int64) (*entity.SummaryStats, error)

	// EditRecord lets a task manager correct a record directly from the
	// review screen. The edit goes through the canonical record path and
	// the summary row is re-synced from the result.
	EditRecord(ctx context.Context, actor entity.Actor, taskID, recordID int64, prompt, completion string) error
}

type summaryServiceImpl struct {
	taskRepo    port.TaskRepository
	assignRepo  port.AssignmentRepository
	recordRepo  port.RecordRepository
	summaryRepo port.SummaryRepository
	txManager   port.TransactionManager
	logger      Logger
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(
	taskRepo port.TaskRepository,
	assignRepo port.AssignmentRepository,
	recordRepo port.RecordRepository,
	summaryRepo port.SummaryRepository,
	txManager port.TransactionManager,
	logger Logger,
) SummaryService {
	return &summaryServiceImpl{
		taskRepo:    taskRepo,
		assignRepo:  assignRepo,
		recordRepo:  recordRepo,
		summaryRepo: summaryRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

func (s *summaryServiceImpl) GetSummary(ctx context.Context, actor entity.Actor, taskID int64, page, pageSize int) (*SummaryPage, error) {
	task, err := s.requireManagedTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	items, total, err := s.summaryRepo.ListByTask(ctx, taskID, pageSize, offset)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load summary")
	}

	result := &SummaryPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}

	// Before any submission there are no materialized rows; fall back to
	// the live records so the screen is never empty.
	if total == 0 {
		live, liveTotal, err := s.liveSummary(ctx, task, pageSize, offset)
		if err != nil {
			return nil, err
		}
		result.Items = live
		result.Total = liveTotal
		result.Live = true
	}

	return result, nil
}

func (s *summaryServiceImpl) liveSummary(ctx context.Context, task *entity.Task, limit, offset int) ([]*entity.SummaryItem, int, error) {
	records, err := s.recordRepo.ListRange(ctx, task.FileID, port.RecordRange{}, false)
	if err != nil {
		return nil, 0, apperr.Internal(err, "failed to load records")
	}

	total := len(records)
	if limit > 0 {
		if offset > total {
			offset = total
		}
		end := offset + limit
		if end > total {
			end = total
		}
		records = records[offset:end]
	}

	items := make([]*entity.SummaryItem, len(records))
	for i, rec := range records {
		items[i] = &entity.SummaryItem{
			TaskID:             task.ID,
			RecordID:           rec.ID,
			RecordIndex:        rec.IndexInFile,
			OriginalPrompt:     rec.Prompt,
			OriginalCompletion: rec.Completion,
			EditedPrompt:       rec.Prompt,
			EditedCompletion:   rec.Completion,
			EditorID:           rec.EditedBy,
		}
	}
	return items, total, nil
}

func (s *summaryServiceImpl) GetStats(ctx context.Context, actor entity.Actor, taskID int64) (*entity.SummaryStats, error) {
	task, err := s.requireManagedTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.assignRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load assignments")
	}

	modified, err := s.summaryRepo.CountModified(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to count modified records")
	}

	stats := &entity.SummaryStats{
		TaskProgress:    deriveProgress(assignments),
		TotalRecords:    task.TotalRecords,
		ModifiedRecords: modified,
	}
	if task.TotalRecords > 0 {
		stats.ModificationRate = float64(modified) / float64(task.TotalRecords)
	}
	return stats, nil
}

func (s *summaryServiceImpl) EditRecord(ctx context.Context, actor entity.Actor, taskID, recordID int64, prompt, completion string) error {
	task, err := s.requireManagedTask(ctx, actor, taskID)
	if err != nil {
		return err
	}
	if task.Status == entity.TaskStatusFinalized {
		return apperr.New(apperr.CodeInvalidStatus, "task %d is finalized", taskID)
	}

	record, err := s.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		return apperr.Internal(err, "failed to load record %d", recordID)
	}
	if record == nil || record.FileID != task.FileID {
		return apperr.New(apperr.CodeNotFound, "record %d not found in task %d", recordID, taskID)
	}

	now := time.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.recordRepo.Edit(txCtx, recordID, prompt, completion, actor.ID, now); err != nil {
			return err
		}
		record.Prompt = prompt
		record.Completion = completion
		record.EditedBy = &actor.ID
		return s.summaryRepo.SyncRecord(txCtx, taskID, record)
	})
	if err != nil {
		s.logger.Error("Failed to edit summary record", "error", err, "task_id", taskID, "record_id", recordID)
		return apperr.Internal(err, "failed to edit record %d", recordID)
	}

	return nil
}

func (s *summaryServiceImpl) requireManagedTask(ctx context.Context, actor entity.Actor, taskID int64) (*entity.Task, error) {
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
	return task, nil
}
