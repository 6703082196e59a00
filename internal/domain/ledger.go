package domain

import "time"

// TransactionType enumerates credit-affecting event kinds.
type TransactionType string

const (
	TransactionPurchase         TransactionType = "purchase"
	TransactionConsumption      TransactionType = "consumption"
	TransactionRefund           TransactionType = "refund"
	TransactionManualAdjustment TransactionType = "manual_adjustment"
)

// ReferenceType names the system that originated a ledger entry.
type ReferenceType string

const (
	ReferencePayment    ReferenceType = "payment"
	ReferenceGeneration ReferenceType = "generation"
	ReferenceAdmin      ReferenceType = "admin"
	ReferenceSystem     ReferenceType = "system"
)

// CreditTransaction is an append-only ledger entry. Amount is signed:
// positive for credit, negative for debit. For webhook-sourced entries,
// Provider plus ExternalEventID carry the uniqueness key that makes
// redelivered payment events no-ops.
type CreditTransaction struct {
	ID              string
	UserID          string
	Type            TransactionType
	Amount          int
	ReferenceType   ReferenceType
	ReferenceID     string
	Provider        string
	ExternalEventID string
	Metadata        map[string]any
	CreatedAt       time.Time
}

// GenerationLog is a denormalized audit record mirroring a job's terminal
// transition and credit consumption. Not authoritative for balance or status.
type GenerationLog struct {
	ID             string
	UserID         string
	ReferenceType  ReferenceType
	ReferenceID    string
	Category       string
	Status         JobStatus
	CreditsCharged int
	Metadata       map[string]any
	CreatedAt      time.Time
}
