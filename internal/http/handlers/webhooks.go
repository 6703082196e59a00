package handlers

import (
	"errors"
	"io"
	"net/http"

	"server/internal/domain"
	"server/internal/payment"
)

// webhook payloads are small JSON documents; anything larger is hostile.
const maxWebhookBody = 1 << 20

// PaymentWebhook receives deliveries from the payment provider. The raw body
// is read before any parsing because the signature covers the exact bytes on
// the wire. 400 means the provider should not retry; 500 means it should.
func (a *App) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}

	outcome, err := a.Payments.Handle(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			a.error(w, http.StatusBadRequest, "invalid_signature", "signature verification failed")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "event could not be recorded")
		return
	}

	resp := map[string]any{"received": true}
	if outcome == payment.OutcomeDuplicate {
		resp["duplicate"] = true
	}
	a.json(w, http.StatusOK, resp)
}
