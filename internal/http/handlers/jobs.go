package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/service"
)

type jobCreateRequest struct {
	ObjectImage   string `json:"objectImage"`
	MaterialImage string `json:"materialImage"`
	Category      string `json:"category"`
}

type jobResponse struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	Category         string     `json:"category"`
	ObjectImageURL   string     `json:"object_image_url"`
	MaterialImageURL string     `json:"material_image_url"`
	ResultImageURL   string     `json:"result_image_url,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	CreditsRequired  int        `json:"credits_required"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		ID:               j.ID,
		Status:           string(j.Status),
		Category:         string(j.Category),
		ObjectImageURL:   j.ObjectImageURL,
		MaterialImageURL: j.MaterialImageURL,
		ResultImageURL:   j.ResultImageURL,
		ErrorMessage:     j.ErrorMessage,
		CreditsRequired:  j.CreditsRequired,
		CreatedAt:        j.CreatedAt,
		CompletedAt:      j.CompletedAt,
		FailedAt:         j.FailedAt,
	}
}

// JobsCreate runs one image generation synchronously. The response is the
// terminal job in both outcomes: a failed generation is still 201, with the
// failure recorded on the resource, because clients also poll GET /jobs/{id}.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.ObjectImage == "" || req.MaterialImage == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "objectImage and materialImage are required")
		return
	}

	result, err := a.Orchestrator.SubmitImageJob(r.Context(), userID, service.SubmitImageInput{
		ObjectImageURL:   req.ObjectImage,
		MaterialImageURL: req.MaterialImage,
		Category:         domain.Category(req.Category),
	})
	if err != nil && (result == nil || result.Job == nil) {
		a.submitError(w, err)
		return
	}

	body := map[string]any{"job": toJobResponse(result.Job)}
	if err == nil {
		body["balance"] = result.Balance
	}
	a.json(w, http.StatusCreated, body)
}

func (a *App) JobsGet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil || job.UserID != userID {
		// Cross-user access is indistinguishable from a missing job.
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusInternalServerError, "internal", "failed to fetch job")
			return
		}
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job))
}

func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobs, err := a.Jobs.ListByUser(r.Context(), userID, 50)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobResponse(&jobs[i]))
	}
	a.json(w, http.StatusOK, out)
}
