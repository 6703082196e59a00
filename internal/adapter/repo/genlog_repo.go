package repo

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// GenerationLogRepositoryPG implements domain.GenerationLogRepository.
type GenerationLogRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGenerationLogRepository creates a new generation log repository.
func NewGenerationLogRepository(pool *pgxpool.Pool) *GenerationLogRepositoryPG {
	return &GenerationLogRepositoryPG{pool: pool}
}

// Append writes one audit row for a terminal job transition.
func (r *GenerationLogRepositoryPG) Append(ctx context.Context, log *domain.GenerationLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	metadata := []byte(`{}`)
	if log.Metadata != nil {
		b, err := json.Marshal(log.Metadata)
		if err != nil {
			return err
		}
		metadata = b
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO generation_logs (id, user_id, reference_type, reference_id, category, status, credits_charged, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`,
		log.ID,
		log.UserID,
		log.ReferenceType,
		log.ReferenceID,
		log.Category,
		log.Status,
		log.CreditsCharged,
		metadata,
	)
	return err
}

var _ domain.GenerationLogRepository = (*GenerationLogRepositoryPG)(nil)
