// Package handlers holds the HTTP layer: thin translators between JSON
// requests and the orchestrator, repositories, and payment processor.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/payment"
	"server/internal/service"
)

type App struct {
	Orchestrator *service.Orchestrator
	Jobs         domain.JobRepository
	Videos       domain.VideoRepository
	Payments     *payment.Processor
	Logger       zerolog.Logger
}

func NewApp(orch *service.Orchestrator, jobs domain.JobRepository, videos domain.VideoRepository, payments *payment.Processor, logger zerolog.Logger) *App {
	return &App{
		Orchestrator: orch,
		Jobs:         jobs,
		Videos:       videos,
		Payments:     payments,
		Logger:       logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// insufficient writes the 402 body with the numbers the client needs to
// render a purchase prompt.
func (a *App) insufficient(w http.ResponseWriter, e *domain.InsufficientCreditsError) {
	a.json(w, http.StatusPaymentRequired, map[string]any{
		"message":   "insufficient credits",
		"required":  e.Required,
		"available": e.Available,
	})
}

// submitError maps orchestrator errors that occur before a job row exists.
// Once a row exists the job itself carries the outcome and the handler
// responds 201 with the terminal resource instead.
func (a *App) submitError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		a.insufficient(w, insufficient)
	case errors.Is(err, domain.ErrUnknownCategory):
		a.error(w, http.StatusBadRequest, "bad_request", "unknown category")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusUnauthorized, "unauthorized", "unknown user")
	default:
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
	}
}
