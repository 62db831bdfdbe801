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

// RecordRepository implements port.RecordRepository
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new QA record repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) port.RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

const recordColumns = `
	id, file_id, index_in_file, prompt, completion,
	edited_by, edited_at, is_deleted, created_at, updated_at
`

// BulkCreate inserts the dataset's records with sequential index_in_file
// starting at 0, in the given order.
func (r *RecordRepository) BulkCreate(ctx context.Context, fileID int64, records []*entity.QARecord) error {
	query := `
		INSERT INTO qa_records (
			file_id, index_in_file, prompt, completion, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	exec := getExecutor(ctx, r.db)

	for i, record := range records {
		record.FileID = fileID
		record.IndexInFile = i
		record.CreatedAt = now
		record.UpdatedAt = now

		result, err := exec.ExecContext(ctx, query,
			fileID, i, record.Prompt, record.Completion, now, now)
		if err != nil {
			r.logger.Error("Failed to insert record",
				zap.Int64("file_id", fileID),
				zap.Int("index", i),
				zap.Error(err))
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get record id: %w", err)
		}
		record.ID = id
	}

	return nil
}

// GetByID retrieves a record by ID, returning nil when it does not exist
func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*entity.QARecord, error) {
	query := `SELECT` + recordColumns + `FROM qa_records WHERE id = ?`

	record, err := scanRecord(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return record, nil
}

func rangeClause(rng port.RecordRange, includeDeleted bool, args *[]interface{}) string {
	clause := ""
	if !includeDeleted {
		clause += ` AND is_deleted = 0`
	}
	if rng.Start != nil {
		clause += ` AND index_in_file >= ?`
		*args = append(*args, *rng.Start)
	}
	if rng.End != nil {
		clause += ` AND index_in_file <= ?`
		*args = append(*args, *rng.End)
	}
	return clause
}

// ListRange retrieves records of a file ordered by index, with inclusive
// optional bounds.
func (r *RecordRepository) ListRange(ctx context.Context, fileID int64, rng port.RecordRange, includeDeleted bool) ([]*entity.QARecord, error) {
	args := []interface{}{fileID}
	query := `SELECT` + recordColumns + `FROM qa_records WHERE file_id = ?` +
		rangeClause(rng, includeDeleted, &args) +
		` ORDER BY index_in_file`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list records", zap.Int64("file_id", fileID), zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*entity.QARecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// CountRange counts records of a file within the inclusive optional bounds.
func (r *RecordRepository) CountRange(ctx context.Context, fileID int64, rng port.RecordRange, includeDeleted bool) (int, error) {
	args := []interface{}{fileID}
	query := `SELECT COUNT(*) FROM qa_records WHERE file_id = ?` +
		rangeClause(rng, includeDeleted, &args)

	var count int
	if err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Edit overwrites content and stamps the editor. Idempotent.
func (r *RecordRepository) Edit(ctx context.Context, id int64, prompt, completion string, editorID int64, at time.Time) error {
	query := `
		UPDATE qa_records
		SET prompt = ?, completion = ?, edited_by = ?, edited_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		prompt, completion, editorID, at, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to edit record", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to edit record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check edit result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// StampEditor marks every non-deleted record in the inclusive index range
// as reviewed by the editor without touching content.
func (r *RecordRepository) StampEditor(ctx context.Context, fileID int64, start, end int, editorID int64, at time.Time) error {
	query := `
		UPDATE qa_records
		SET edited_by = ?, edited_at = ?, updated_at = ?
		WHERE file_id = ? AND index_in_file >= ? AND index_in_file <= ? AND is_deleted = 0
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		editorID, at, time.Now(), fileID, start, end)
	if err != nil {
		r.logger.Error("Failed to stamp records",
			zap.Int64("file_id", fileID),
			zap.Int("start", start),
			zap.Int("end", end),
			zap.Error(err))
		return fmt.Errorf("failed to stamp records: %w", err)
	}
	return nil
}

// SoftDelete flips the deletion flag, attributing the deleting actor
func (r *RecordRepository) SoftDelete(ctx context.Context, id int64, actorID int64, at time.Time) error {
	query := `
		UPDATE qa_records
		SET is_deleted = 1, edited_by = ?, edited_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, actorID, at, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to soft-delete record", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to soft-delete record: %w", err)
	}
	return nil
}

// CountDeletedByEditor counts soft-deleted records attributed to the editor
// inside the inclusive index range.
func (r *RecordRepository) CountDeletedByEditor(ctx context.Context, fileID int64, editorID int64, start, end int) (int, error) {
	query := `
		SELECT COUNT(*) FROM qa_records
		WHERE file_id = ? AND edited_by = ? AND is_deleted = 1
		  AND index_in_file >= ? AND index_in_file <= ?
	`

	var count int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, fileID, editorID, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted records: %w", err)
	}
	return count, nil
}

// DeleteByFile removes all records of a file (task-deletion cascade only)
func (r *RecordRepository) DeleteByFile(ctx context.Context, fileID int64) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM qa_records WHERE file_id = ?`, fileID)
	if err != nil {
		r.logger.Error("Failed to delete records", zap.Int64("file_id", fileID), zap.Error(err))
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

func scanRecord(row rowScanner) (*entity.QARecord, error) {
	var record entity.QARecord
	var editedBy sql.NullInt64
	var editedAt sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.FileID,
		&record.IndexInFile,
		&record.Prompt,
		&record.Completion,
		&editedBy,
		&editedAt,
		&record.IsDeleted,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.EditedBy = int64Ptr(editedBy)
	record.EditedAt = timePtr(editedAt)

	return &record, nil
}

// Verify interface compliance
var _ port.RecordRepository = (*RecordRepository)(nil)
