package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) CreateBatch(ctx context.Context, batch *domain.Batch) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO batches (id, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
`, batch.ID, string(batch.Status), batch.Error, batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, error_message, created_at, updated_at
FROM batches
WHERE id = $1
`, id)

	var batch domain.Batch
	var status string
	err := row.Scan(&batch.ID, &status, &batch.Error, &batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get batch", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	batch.Status = domain.BatchStatus(status)
	return &batch, nil
}

func (r *BatchRepository) UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE batches
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update batch status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "update batch status", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *BatchRepository) SaveReport(ctx context.Context, batchID string, coverage []domain.CoverageRow, totalSavingsCents int64) error {
	if coverage == nil {
		coverage = []domain.CoverageRow{}
	}
	coverageJSON, err := json.Marshal(coverage)
	if err != nil {
		return fmt.Errorf("marshal coverage: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE batches
SET coverage = $2, total_savings_cents = $3, updated_at = $4
WHERE id = $1
`, batchID, coverageJSON, totalSavingsCents, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save report rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "save report", fmt.Errorf("id=%s", batchID))
	}
	return nil
}

func (r *BatchRepository) GetReport(ctx context.Context, batchID string) ([]domain.CoverageRow, int64, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT coverage, total_savings_cents
FROM batches
WHERE id = $1
`, batchID)

	var coverageRaw []byte
	var totalSavings int64
	err := row.Scan(&coverageRaw, &totalSavings)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, domain.WrapError(domain.ErrNotFound, "get report", fmt.Errorf("id=%s", batchID))
		}
		return nil, 0, fmt.Errorf("scan report: %w", err)
	}

	coverage := []domain.CoverageRow{}
	if len(coverageRaw) > 0 {
		if err := json.Unmarshal(coverageRaw, &coverage); err != nil {
			return nil, 0, fmt.Errorf("unmarshal coverage: %w", err)
		}
	}
	return coverage, totalSavings, nil
}
