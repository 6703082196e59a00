package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

const pgUniqueViolation = "23505"

// LedgerRepositoryPG implements domain.LedgerRepository. All balance
// correctness comes from the database: the conditional UPDATE and the
// transaction-log INSERT commit atomically, so the running service needs no
// locks of its own even with many concurrent instances.
type LedgerRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new ledger repository backed by PostgreSQL.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepositoryPG {
	return &LedgerRepositoryPG{pool: pool}
}

// Debit atomically subtracts amount from the user's balance and appends a
// negative-amount consumption row. The WHERE clause is the enforcement point
// for the credits >= 0 invariant; a zero-row update means the balance was
// spent by a concurrent operation since the caller's pre-check.
func (r *LedgerRepositoryPG) Debit(ctx context.Context, userID string, amount int, entry domain.LedgerEntry) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("ledger: debit amount must be positive, got %d", amount)
	}
	return r.apply(ctx, userID, -amount, entry)
}

// Credit atomically adds amount to the user's balance and appends a
// positive-amount row. A unique-index conflict on (provider, external event
// id) rolls the whole operation back and surfaces as ErrDuplicateEvent, which
// is what makes redelivered payment webhooks no-ops.
func (r *LedgerRepositoryPG) Credit(ctx context.Context, userID string, amount int, entry domain.LedgerEntry) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("ledger: credit amount must be positive, got %d", amount)
	}
	return r.apply(ctx, userID, amount, entry)
}

func (r *LedgerRepositoryPG) apply(ctx context.Context, userID string, delta int, entry domain.LedgerEntry) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int
	row := tx.QueryRow(ctx, `
UPDATE users
SET credits = credits + $2, updated_at = NOW()
WHERE id = $1 AND credits + $2 >= 0
RETURNING credits;
`, userID, delta)
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if delta < 0 {
				return 0, domain.ErrInsufficientFunds
			}
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("ledger: update balance: %w", err)
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return 0, fmt.Errorf("ledger: marshal metadata: %w", err)
	}
	if entry.Metadata == nil {
		metadata = []byte(`{}`)
	}

	_, err = tx.Exec(ctx, `
INSERT INTO credit_transactions (id, user_id, type, amount, reference_type, reference_id, provider, external_event_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`,
		uuid.NewString(),
		userID,
		entry.Type,
		delta,
		entry.ReferenceType,
		entry.ReferenceID,
		nullableText(entry.Provider),
		nullableText(entry.ExternalEventID),
		metadata,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, domain.ErrDuplicateEvent
		}
		return 0, fmt.Errorf("ledger: append transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ledger: commit: %w", err)
	}
	return balance, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ domain.LedgerRepository = (*LedgerRepositoryPG)(nil)
