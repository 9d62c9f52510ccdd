package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
)

// ImportBatchRepository tracks file-level import records.
type ImportBatchRepository interface {
	Create(ctx context.Context, batch *domain.ImportBatch) error
	SetStatus(ctx context.Context, id string, status domain.BatchStatus) error
	GetByID(ctx context.Context, id string) (*domain.ImportBatch, error)
	List(ctx context.Context) ([]domain.ImportBatch, error)
}

type importBatchRepository struct {
	pool *pgxpool.Pool
}

// NewImportBatchRepository builds repository.
func NewImportBatchRepository(pool *pgxpool.Pool) ImportBatchRepository {
	return &importBatchRepository{pool: pool}
}

func (r *importBatchRepository) Create(ctx context.Context, batch *domain.ImportBatch) error {
	const query = `
        INSERT INTO import_batches (name, status)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		batch.Name,
		batch.Status,
	).Scan(&batch.ID, &batch.CreatedAt)
}

func (r *importBatchRepository) SetStatus(ctx context.Context, id string, status domain.BatchStatus) error {
	const query = `UPDATE import_batches SET status=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *importBatchRepository) GetByID(ctx context.Context, id string) (*domain.ImportBatch, error) {
	const query = `
        SELECT id, name, status, created_at
        FROM import_batches WHERE id=$1`
	var batch domain.ImportBatch
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&batch.ID,
		&batch.Name,
		&batch.Status,
		&batch.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *importBatchRepository) List(ctx context.Context) ([]domain.ImportBatch, error) {
	const query = `
        SELECT id, name, status, created_at
        FROM import_batches ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ImportBatch
	for rows.Next() {
		var batch domain.ImportBatch
		if err := rows.Scan(
			&batch.ID,
			&batch.Name,
			&batch.Status,
			&batch.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, batch)
	}
	return result, rows.Err()
}
