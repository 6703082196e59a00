package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// VideoRepositoryPG implements domain.VideoRepository.
type VideoRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new video generation repository.
func NewVideoRepository(pool *pgxpool.Pool) *VideoRepositoryPG {
	return &VideoRepositoryPG{pool: pool}
}

const videoColumns = `id, user_id, source_image_url, prompt, resolution, aspect_ratio, seed,
duration_seconds, result_video_url, status, error_message, credits_required, created_at, completed_at, failed_at`

// Create inserts a new video generation record.
func (r *VideoRepositoryPG) Create(ctx context.Context, gen *domain.VideoGeneration) error {
	query := `
INSERT INTO video_generations (id, user_id, source_image_url, prompt, resolution, aspect_ratio, seed, duration_seconds, status, credits_required)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at;
`
	row := r.pool.QueryRow(ctx, query,
		gen.ID,
		gen.UserID,
		gen.SourceImageURL,
		gen.Prompt,
		gen.Resolution,
		gen.AspectRatio,
		gen.Seed,
		gen.DurationSeconds,
		gen.Status,
		gen.CreditsRequired,
	)
	return row.Scan(&gen.CreatedAt)
}

// MarkProcessing transitions a pending generation to processing.
func (r *VideoRepositoryPG) MarkProcessing(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE video_generations SET status = $2 WHERE id = $1 AND status = $3;
`, id, domain.JobStatusProcessing, domain.JobStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkCompleted records the terminal success state.
func (r *VideoRepositoryPG) MarkCompleted(ctx context.Context, id, resultURL string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE video_generations
SET status = $2, result_video_url = $3, completed_at = NOW()
WHERE id = $1 AND status = $4;
`, id, domain.JobStatusCompleted, resultURL, domain.JobStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records the terminal failure state. Same override semantics as
// the job repository: completed may be forced to failed, failed is final.
func (r *VideoRepositoryPG) MarkFailed(ctx context.Context, id, errMsg string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE video_generations
SET status = $2, error_message = $3, failed_at = NOW()
WHERE id = $1 AND status <> $2;
`, id, domain.JobStatusFailed, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a video generation by its identifier.
func (r *VideoRepositoryPG) GetByID(ctx context.Context, id string) (*domain.VideoGeneration, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM video_generations WHERE id = $1`, id)
	return scanVideo(row)
}

// ListByUser returns the caller's video generations, newest first.
func (r *VideoRepositoryPG) ListByUser(ctx context.Context, userID string, limit int) ([]domain.VideoGeneration, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+videoColumns+` FROM video_generations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2;
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gens []domain.VideoGeneration
	for rows.Next() {
		gen, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		gens = append(gens, *gen)
	}
	return gens, rows.Err()
}

func scanVideo(row pgx.Row) (*domain.VideoGeneration, error) {
	var (
		gen       domain.VideoGeneration
		resultURL *string
		errMsg    *string
	)
	if err := row.Scan(
		&gen.ID,
		&gen.UserID,
		&gen.SourceImageURL,
		&gen.Prompt,
		&gen.Resolution,
		&gen.AspectRatio,
		&gen.Seed,
		&gen.DurationSeconds,
		&resultURL,
		&gen.Status,
		&errMsg,
		&gen.CreditsRequired,
		&gen.CreatedAt,
		&gen.CompletedAt,
		&gen.FailedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if resultURL != nil {
		gen.ResultVideoURL = *resultURL
	}
	if errMsg != nil {
		gen.ErrorMessage = *errMsg
	}
	return &gen, nil
}

var _ domain.VideoRepository = (*VideoRepositoryPG)(nil)
