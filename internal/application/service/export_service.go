package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// ExportArtifact points at a generated export file on disk.
type ExportArtifact struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Records  int    `json:"records"`
}

// exportedRecord is one JSONL line of the corrected dataset: the content
// plus editor traceability.
type exportedRecord struct {
	Index      int        `json:"index"`
	Prompt     string     `json:"prompt"`
	Completion string     `json:"completion"`
	EditedBy   *int64     `json:"edited_by,omitempty"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
}

// ExportService writes the corrected dataset out as JSONL or Excel.
// Soft-deleted records are excluded; order is ascending dataset index.
type ExportService interface {
	ExportJSONL(ctx context.Context, actor entity.Actor, taskID int64) (*ExportArtifact, error)
	ExportExcel(ctx context.Context, actor entity.Actor, taskID int64) (*ExportArtifact, error)
}

type exportServiceImpl struct {
	taskRepo   port.TaskRepository
	recordRepo port.RecordRepository
	exportDir  string
	logger     Logger
}

// NewExportService creates a new ExportService
func NewExportService(
	taskRepo port.TaskRepository,
	recordRepo port.RecordRepository,
	exportDir string,
	logger Logger,
) ExportService {
	return &exportServiceImpl{
		taskRepo:   taskRepo,
		recordRepo: recordRepo,
		exportDir:  exportDir,
		logger:     logger,
	}
}

func (s *exportServiceImpl) ExportJSONL(ctx context.Context, actor entity.Actor, taskID int64) (*ExportArtifact, error) {
	task, records, err := s.load(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("task_%d_%s.jsonl", task.ID, uuid.New().String())
	path := filepath.Join(s.exportDir, filename)
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return nil, apperr.Internal(err, "failed to create export directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, apperr.Internal(err, "failed to create export file")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		line := exportedRecord{
			Index:      rec.IndexInFile,
			Prompt:     rec.Prompt,
			Completion: rec.Completion,
			EditedBy:   rec.EditedBy,
			EditedAt:   rec.EditedAt,
		}
		if err := enc.Encode(line); err != nil {
			return nil, apperr.Internal(err, "failed to write export file")
		}
	}

	s.logger.Info("Dataset exported", "task_id", taskID, "format", "jsonl", "records", len(records))
	return &ExportArtifact{Filename: filename, Path: path, Records: len(records)}, nil
}

func (s *exportServiceImpl) ExportExcel(ctx context.Context, actor entity.Actor, taskID int64) (*ExportArtifact, error) {
	task, records, err := s.load(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("task_%d_%s.xlsx", task.ID, uuid.New().String())
	path := filepath.Join(s.exportDir, filename)
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return nil, apperr.Internal(err, "failed to create export directory")
	}

	wb := excelize.NewFile()
	defer wb.Close()

	const sheet = "Records"
	if err := wb.SetSheetName(wb.GetSheetName(0), sheet); err != nil {
		return nil, apperr.Internal(err, "failed to build workbook")
	}

	headers := []string{"Index", "Prompt", "Completion", "Edited By", "Edited At"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := wb.SetCellValue(sheet, cell, h); err != nil {
			return nil, apperr.Internal(err, "failed to build workbook")
		}
	}

	for row, rec := range records {
		values := []interface{}{rec.IndexInFile, rec.Prompt, rec.Completion, "", ""}
		if rec.EditedBy != nil {
			values[3] = *rec.EditedBy
		}
		if rec.EditedAt != nil {
			values[4] = rec.EditedAt.Format(time.RFC3339)
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				return nil, apperr.Internal(err, "failed to build workbook")
			}
		}
	}

	if err := wb.SaveAs(path); err != nil {
		return nil, apperr.Internal(err, "failed to save workbook")
	}

	s.logger.Info("Dataset exported", "task_id", taskID, "format", "xlsx", "records", len(records))
	return &ExportArtifact{Filename: filename, Path: path, Records: len(records)}, nil
}

func (s *exportServiceImpl) load(ctx context.Context, actor entity.Actor, taskID int64) (*entity.Task, []*entity.QARecord, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, apperr.Internal(err, "failed to load task %d", taskID)
	}
	if task == nil {
		return nil, nil, apperr.New(apperr.CodeNotFound, "task %d not found", taskID)
	}
	if err := requireManager(actor, task); err != nil {
		return nil, nil, err
	}

	records, err := s.recordRepo.ListRange(ctx, task.FileID, port.RecordRange{}, false)
	if err != nil {
		return nil, nil, apperr.Internal(err, "failed to load records")
	}
	return task, records, nil
}
