package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/storefront-plugins/product-reviews/internal/domain"
)

// BatchJobRepository implements domain.BatchJobRepository for PostgreSQL
type BatchJobRepository struct {
	db *sqlx.DB
}

// NewBatchJobRepository creates a new PostgreSQL batch job repository
func NewBatchJobRepository(db *sqlx.DB) *BatchJobRepository {
	return &BatchJobRepository{db: db}
}

// Create inserts a batch job
func (r *BatchJobRepository) Create(ctx context.Context, job *domain.BatchJob) error {
	e := ext(ctx, r.db)

	if job.Status == "" {
		job.Status = domain.BatchJobStatusCreated
	}

	query := `
		INSERT INTO batch_jobs (type, status, context, result)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := e.QueryRowxContext(ctx, query, job.Type, job.Status, job.Context, job.Result).
		Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert batch job: %w", err)
	}

	return nil
}

// GetByID retrieves a batch job by id
func (r *BatchJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error) {
	e := ext(ctx, r.db)

	query := `
		SELECT id, type, status, context, result, failure_text, created_at, updated_at
		FROM batch_jobs
		WHERE id = $1
	`

	var job domain.BatchJob
	err := sqlx.GetContext(ctx, e, &job, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &job, nil
}

// SetStatus transitions the job, failing with ErrConflict unless the job
// currently has the expected status
func (r *BatchJobRepository) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.BatchJobStatus) error {
	e := ext(ctx, r.db)

	query := `
		UPDATE batch_jobs
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := e.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return domain.ErrConflict
	}

	return nil
}

// UpdateResult overwrites the result payload
func (r *BatchJobRepository) UpdateResult(ctx context.Context, id uuid.UUID, jobResult domain.BatchJobResult) error {
	e := ext(ctx, r.db)

	result, err := e.ExecContext(ctx, `
		UPDATE batch_jobs
		SET result = $1, updated_at = $2
		WHERE id = $3
	`, jobResult, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Fail moves the job to the failed state with a reason
func (r *BatchJobRepository) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	e := ext(ctx, r.db)

	result, err := e.ExecContext(ctx, `
		UPDATE batch_jobs
		SET status = $1, failure_text = $2, updated_at = $3
		WHERE id = $4
	`, domain.BatchJobStatusFailed, reason, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
