package domain

import "time"

// PaymentEventStatus classifies a verified webhook delivery once it has been
// durably recorded: received -> verified -> applied | rejected | duplicate.
type PaymentEventStatus string

const (
	PaymentEventApplied   PaymentEventStatus = "applied"
	PaymentEventRejected  PaymentEventStatus = "rejected"
	PaymentEventDuplicate PaymentEventStatus = "duplicate"
	PaymentEventRecorded  PaymentEventStatus = "recorded"
)

// PaymentEvent is the audit record of one webhook delivery from the payment
// provider, written for every event that passes signature verification.
type PaymentEvent struct {
	ID              string
	Provider        string
	ExternalEventID string
	EventType       string
	Payload         []byte
	Status          PaymentEventStatus
	CreatedAt       time.Time
}
