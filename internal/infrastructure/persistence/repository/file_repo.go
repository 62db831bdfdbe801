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

// FileRepository implements port.FileRepository
type FileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFileRepository creates a new dataset file repository
func NewFileRepository(db *sql.DB, logger *zap.Logger) port.FileRepository {
	return &FileRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new dataset file row
func (r *FileRepository) Create(ctx context.Context, file *entity.DatasetFile) error {
	query := `
		INSERT INTO dataset_files (
			filename, original_filename, file_path, file_size, uploaded_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	file.CreatedAt = time.Now()

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		file.Filename,
		file.OriginalFilename,
		file.FilePath,
		file.FileSize,
		file.UploadedBy,
		file.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create dataset file",
			zap.String("filename", file.Filename),
			zap.Error(err))
		return fmt.Errorf("failed to create dataset file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get file id: %w", err)
	}
	file.ID = id

	return nil
}

// GetByID retrieves a file row by ID, returning nil when it does not exist
func (r *FileRepository) GetByID(ctx context.Context, id int64) (*entity.DatasetFile, error) {
	query := `
		SELECT id, filename, original_filename, file_path, file_size, uploaded_by, created_at
		FROM dataset_files WHERE id = ?
	`

	var file entity.DatasetFile
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&file.ID,
		&file.Filename,
		&file.OriginalFilename,
		&file.FilePath,
		&file.FileSize,
		&file.UploadedBy,
		&file.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get dataset file", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get dataset file: %w", err)
	}

	return &file, nil
}

// Delete removes a file row
func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM dataset_files WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete dataset file", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete dataset file: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.FileRepository = (*FileRepository)(nil)
