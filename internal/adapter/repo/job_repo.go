package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, user_id, category, object_image_url, material_image_url,
result_image_url, status, error_message, credits_required, created_at, completed_at, failed_at`

// Create inserts a new job record in its initial status.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO generation_jobs (id, user_id, category, object_image_url, material_image_url, status, credits_required)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at;
`
	row := r.pool.QueryRow(ctx, query,
		job.ID,
		job.UserID,
		job.Category,
		job.ObjectImageURL,
		job.MaterialImageURL,
		job.Status,
		job.CreditsRequired,
	)
	return row.Scan(&job.CreatedAt)
}

// MarkProcessing transitions a pending job to processing. Persisted before
// the provider call so a stuck job is distinguishable from one that never
// started.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, jobID string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_jobs SET status = $2 WHERE id = $1 AND status = $3;
`, jobID, domain.JobStatusProcessing, domain.JobStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkCompleted records the terminal success state and the persisted result URL.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, jobID, resultURL string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_jobs
SET status = $2, result_image_url = $3, completed_at = NOW()
WHERE id = $1 AND status = $4;
`, jobID, domain.JobStatusCompleted, resultURL, domain.JobStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records the terminal failure state with an operator-readable
// message. A completed job may still be forced to failed when the post-
// generation debit loses the balance race; an already-failed job is left
// untouched.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID, errMsg string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE generation_jobs
SET status = $2, error_message = $3, failed_at = NOW()
WHERE id = $1 AND status <> $2;
`, jobID, domain.JobStatusFailed, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, jobID)
	return scanJob(row)
}

// ListByUser returns the caller's jobs, newest first.
func (r *JobRepositoryPG) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+jobColumns+` FROM generation_jobs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2;
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job       domain.Job
		resultURL *string
		errMsg    *string
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Category,
		&job.ObjectImageURL,
		&job.MaterialImageURL,
		&resultURL,
		&job.Status,
		&errMsg,
		&job.CreditsRequired,
		&job.CreatedAt,
		&job.CompletedAt,
		&job.FailedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if resultURL != nil {
		job.ResultImageURL = *resultURL
	}
	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
