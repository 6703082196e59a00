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

type videoCreateRequest struct {
	SourceImageURL string `json:"sourceImageUrl"`
	Prompt         string `json:"prompt,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
}

type videoResponse struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	SourceImageURL  string     `json:"source_image_url"`
	Prompt          string     `json:"prompt"`
	Resolution      string     `json:"resolution"`
	AspectRatio     string     `json:"aspect_ratio"`
	Seed            *int64     `json:"seed,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	ResultVideoURL  string     `json:"result_video_url,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreditsRequired int        `json:"credits_required"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	FailedAt        *time.Time `json:"failed_at,omitempty"`
}

func toVideoResponse(g *domain.VideoGeneration) videoResponse {
	return videoResponse{
		ID:              g.ID,
		Status:          string(g.Status),
		SourceImageURL:  g.SourceImageURL,
		Prompt:          g.Prompt,
		Resolution:      g.Resolution,
		AspectRatio:     g.AspectRatio,
		Seed:            g.Seed,
		DurationSeconds: g.DurationSeconds,
		ResultVideoURL:  g.ResultVideoURL,
		ErrorMessage:    g.ErrorMessage,
		CreditsRequired: g.CreditsRequired,
		CreatedAt:       g.CreatedAt,
		CompletedAt:     g.CompletedAt,
		FailedAt:        g.FailedAt,
	}
}

func (a *App) VideosCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req videoCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.SourceImageURL == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "sourceImageUrl is required")
		return
	}

	result, err := a.Orchestrator.SubmitVideoJob(r.Context(), userID, service.SubmitVideoInput{
		SourceImageURL: req.SourceImageURL,
		Prompt:         req.Prompt,
		Resolution:     req.Resolution,
		AspectRatio:    req.AspectRatio,
		Seed:           req.Seed,
	})
	if err != nil && (result == nil || result.Generation == nil) {
		a.submitError(w, err)
		return
	}

	body := map[string]any{"video": toVideoResponse(result.Generation)}
	if err == nil {
		body["balance"] = result.Balance
	}
	a.json(w, http.StatusCreated, body)
}

func (a *App) VideosGet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	id := chi.URLParam(r, "id")
	gen, err := a.Videos.GetByID(r.Context(), id)
	if err != nil || gen.UserID != userID {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusInternalServerError, "internal", "failed to fetch video")
			return
		}
		a.error(w, http.StatusNotFound, "not_found", "video not found")
		return
	}
	a.json(w, http.StatusOK, toVideoResponse(gen))
}

func (a *App) VideosList(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	gens, err := a.Videos.ListByUser(r.Context(), userID, 50)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list videos")
		return
	}
	out := make([]videoResponse, 0, len(gens))
	for i := range gens {
		out = append(out, toVideoResponse(&gens[i]))
	}
	a.json(w, http.StatusOK, out)
}
