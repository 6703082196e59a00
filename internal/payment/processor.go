package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/metrics"
)

// Event types delivered by the payment provider.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventPaymentFailed     = "payment.failed"
)

// Outcome is the durable classification of one delivery. The handler returns
// 200 for every outcome; only signature failures and storage errors produce
// non-2xx responses, because those are the cases the provider should retry.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeRecorded  Outcome = "recorded"
)

// Event is the provider's webhook payload.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData is the metadata block of a payment event.
type EventData struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	PackageID   string `json:"package_id"`
	Credits     int    `json:"credits"`
	AmountCents int    `json:"amount_cents"`
	Currency    string `json:"currency"`
	Reason      string `json:"reason,omitempty"`
}

// Processor applies verified payment events to the ledger, independently of
// any user-facing request.
type Processor struct {
	users     domain.UserRepository
	ledger    domain.LedgerRepository
	events    domain.PaymentEventRepository
	provider  string
	secret    string
	tolerance time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewProcessor wires a Processor. provider names the payment provider in
// ledger rows and audit records.
func NewProcessor(users domain.UserRepository, ledger domain.LedgerRepository, events domain.PaymentEventRepository, provider, secret string, logger zerolog.Logger) *Processor {
	return &Processor{
		users:     users,
		ledger:    ledger,
		events:    events,
		provider:  provider,
		secret:    secret,
		tolerance: DefaultTolerance,
		now:       time.Now,
		logger:    logger,
	}
}

// Handle verifies and applies one raw webhook delivery.
//
// Error contract: domain.ErrInvalidSignature means the delivery must be
// rejected with 400; any other error is a transient storage problem worth a
// provider retry (non-2xx). A nil error means the event has been durably
// classified and must be acknowledged with 200 regardless of Outcome.
func (p *Processor) Handle(ctx context.Context, rawBody []byte, signature string) (Outcome, error) {
	if err := VerifySignature(rawBody, signature, p.secret, p.tolerance, p.now()); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("invalid_signature").Inc()
		return "", err
	}

	var event Event
	if err := json.Unmarshal(rawBody, &event); err != nil || event.ID == "" {
		metrics.WebhookEventsTotal.WithLabelValues("malformed").Inc()
		return "", fmt.Errorf("%w: malformed payload", domain.ErrInvalidSignature)
	}

	log := p.logger.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()

	var outcome Outcome
	switch event.Type {
	case EventCheckoutCompleted:
		var err error
		outcome, err = p.applyCheckout(ctx, &event, log)
		if err != nil {
			return "", err
		}
	case EventPaymentFailed:
		// Audit only; a failed payment never touches the ledger.
		outcome = OutcomeRecorded
	default:
		log.Debug().Msg("ignoring unhandled payment event type")
		outcome = OutcomeRecorded
	}

	if err := p.events.Record(ctx, &domain.PaymentEvent{
		Provider:        p.provider,
		ExternalEventID: event.ID,
		EventType:       event.Type,
		Payload:         rawBody,
		Status:          eventStatus(outcome),
	}); err != nil {
		return "", fmt.Errorf("record payment event: %w", err)
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(outcome)).Inc()
	return outcome, nil
}

func (p *Processor) applyCheckout(ctx context.Context, event *Event, log zerolog.Logger) (Outcome, error) {
	if event.Data.UserID == "" || event.Data.Credits <= 0 {
		log.Warn().Int("credits", event.Data.Credits).Msg("checkout event missing user or credits")
		return OutcomeRejected, nil
	}

	user, err := p.users.GetByID(ctx, event.Data.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Str("user_id", event.Data.UserID).Msg("checkout event for unknown user")
			return OutcomeRejected, nil
		}
		return "", fmt.Errorf("resolve user: %w", err)
	}

	balance, err := p.ledger.Credit(ctx, user.ID, event.Data.Credits, domain.LedgerEntry{
		Type:            domain.TransactionPurchase,
		ReferenceType:   domain.ReferencePayment,
		ReferenceID:     event.Data.SessionID,
		Provider:        p.provider,
		ExternalEventID: event.ID,
		Metadata: map[string]any{
			"package_id":   event.Data.PackageID,
			"amount_cents": event.Data.AmountCents,
			"currency":     event.Data.Currency,
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEvent) {
			log.Info().Msg("payment event already applied")
			return OutcomeDuplicate, nil
		}
		return "", fmt.Errorf("credit ledger: %w", err)
	}

	metrics.CreditsPurchasedTotal.Add(float64(event.Data.Credits))
	log.Info().Int("credits", event.Data.Credits).Int("balance", balance).Msg("purchase credited")
	return OutcomeApplied, nil
}

func eventStatus(outcome Outcome) domain.PaymentEventStatus {
	switch outcome {
	case OutcomeApplied:
		return domain.PaymentEventApplied
	case OutcomeDuplicate:
		return domain.PaymentEventDuplicate
	case OutcomeRejected:
		return domain.PaymentEventRejected
	default:
		return domain.PaymentEventRecorded
	}
}
