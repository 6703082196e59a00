package domain

import "context"

// UserRepository defines access methods for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// JobRepository defines persistence for image generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	MarkProcessing(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID, resultURL string) error
	MarkFailed(ctx context.Context, jobID, errMsg string) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Job, error)
}

// VideoRepository mirrors JobRepository for the video_generations table.
type VideoRepository interface {
	Create(ctx context.Context, gen *VideoGeneration) error
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, resultURL string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	GetByID(ctx context.Context, id string) (*VideoGeneration, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]VideoGeneration, error)
}

// LedgerEntry carries the append-only part of a balance mutation.
type LedgerEntry struct {
	Type            TransactionType
	ReferenceType   ReferenceType
	ReferenceID     string
	Provider        string
	ExternalEventID string
	Metadata        map[string]any
}

// LedgerRepository owns users.credits. Debit and Credit are atomic: the
// conditional balance update and the transaction-log append commit as one
// database transaction, so concurrent callers for the same user cannot lose
// updates or drive the balance negative.
type LedgerRepository interface {
	// Debit subtracts amount (a positive number) from the user's balance and
	// appends a negative-amount transaction row. Returns ErrInsufficientFunds
	// if the balance would go negative.
	Debit(ctx context.Context, userID string, amount int, entry LedgerEntry) (newBalance int, err error)
	// Credit adds amount to the user's balance and appends a positive-amount
	// transaction row. Returns ErrDuplicateEvent if an entry with the same
	// (provider, external event id) was already applied.
	Credit(ctx context.Context, userID string, amount int, entry LedgerEntry) (newBalance int, err error)
}

// PaymentEventRepository records every verified webhook delivery for audit.
type PaymentEventRepository interface {
	Record(ctx context.Context, event *PaymentEvent) error
}

// GenerationLogRepository appends audit rows on terminal job transitions.
type GenerationLogRepository interface {
	Append(ctx context.Context, log *GenerationLog) error
}
