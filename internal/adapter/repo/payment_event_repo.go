package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// PaymentEventRepositoryPG implements domain.PaymentEventRepository.
type PaymentEventRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewPaymentEventRepository creates a new payment event repository.
func NewPaymentEventRepository(pool *pgxpool.Pool) *PaymentEventRepositoryPG {
	return &PaymentEventRepositoryPG{pool: pool}
}

// Record persists the audit row for one verified webhook delivery.
func (r *PaymentEventRepositoryPG) Record(ctx context.Context, event *domain.PaymentEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	payload := event.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO payment_events (id, provider, external_event_id, event_type, payload, status)
VALUES ($1, $2, $3, $4, $5, $6);
`,
		event.ID,
		event.Provider,
		event.ExternalEventID,
		event.EventType,
		payload,
		event.Status,
	)
	return err
}

var _ domain.PaymentEventRepository = (*PaymentEventRepositoryPG)(nil)
