package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/service"
)

type jobsUsers struct {
	credits int
}

func (u *jobsUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return &domain.User{ID: id, Credits: u.credits}, nil
}

func (u *jobsUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

type jobsStore struct {
	jobs map[string]*domain.Job
}

func (s *jobsStore) Create(ctx context.Context, job *domain.Job) error {
	if s.jobs == nil {
		s.jobs = map[string]*domain.Job{}
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *jobsStore) MarkProcessing(ctx context.Context, id string) error { return nil }

func (s *jobsStore) MarkCompleted(ctx context.Context, id, resultURL string) error { return nil }

func (s *jobsStore) MarkFailed(ctx context.Context, id, errMsg string) error { return nil }

func (s *jobsStore) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

func (s *jobsStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Job, error) {
	var out []domain.Job
	for _, j := range s.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func TestJobsCreate_InsufficientCreditsReturns402(t *testing.T) {
	store := &jobsStore{}
	orch := service.NewOrchestrator(service.Deps{
		Users:  &jobsUsers{credits: 0},
		Jobs:   store,
		Ledger: nil,
		Logger: zerolog.Nop(),
	})
	app := &App{Orchestrator: orch, Jobs: store, Logger: zerolog.Nop()}

	body, _ := json.Marshal(map[string]string{
		"objectImage":   "https://img.example/object.png",
		"materialImage": "https://img.example/material.png",
		"category":      "clothing",
	})
	req := httptest.NewRequest("POST", "/jobs", bytes.NewReader(body))
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "u1"))
	rr := httptest.NewRecorder()

	app.JobsCreate(rr, req)

	if rr.Code != 402 {
		t.Fatalf("unexpected status code: got %d, want 402", rr.Code)
	}
	var resp struct {
		Message   string `json:"message"`
		Required  int    `json:"required"`
		Available int    `json:"available"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Required != 1 || resp.Available != 0 {
		t.Fatalf("unexpected 402 body: %+v", resp)
	}
	if len(store.jobs) != 0 {
		t.Fatalf("a rejected submission must not create a job row, got %d", len(store.jobs))
	}
}

func TestJobsCreate_MissingImagesReturns400(t *testing.T) {
	app := &App{Logger: zerolog.Nop()}

	body, _ := json.Marshal(map[string]string{"category": "clothing"})
	req := httptest.NewRequest("POST", "/jobs", bytes.NewReader(body))
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "u1"))
	rr := httptest.NewRecorder()

	app.JobsCreate(rr, req)

	if rr.Code != 400 {
		t.Fatalf("unexpected status code: got %d, want 400", rr.Code)
	}
}

func TestJobsGet_OtherUsersJobIs404(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &jobsStore{jobs: map[string]*domain.Job{
		"job-1": {ID: "job-1", UserID: "owner", Status: domain.JobStatusCompleted, CreatedAt: created},
	}}
	app := &App{Jobs: store, Logger: zerolog.Nop()}

	req := httptest.NewRequest("GET", "/jobs/job-1", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "intruder"))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "job-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	app.JobsGet(rr, req)

	if rr.Code != 404 {
		t.Fatalf("cross-user access must look like a missing job: got %d, want 404", rr.Code)
	}
}

func TestJobsGet_OwnerSeesJob(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &jobsStore{jobs: map[string]*domain.Job{
		"job-1": {ID: "job-1", UserID: "owner", Status: domain.JobStatusProcessing, Category: domain.CategoryClothing, CreatedAt: created},
	}}
	app := &App{Jobs: store, Logger: zerolog.Nop()}

	req := httptest.NewRequest("GET", "/jobs/job-1", nil)
	req = req.WithContext(middleware.ContextWithUserID(req.Context(), "owner"))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "job-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()

	app.JobsGet(rr, req)

	if rr.Code != 200 {
		t.Fatalf("unexpected status code: got %d, want 200", rr.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "processing" {
		t.Fatalf("expected status processing, got %#v", resp["status"])
	}
}

func TestJobsList_Unauthenticated(t *testing.T) {
	app := &App{Logger: zerolog.Nop()}

	req := httptest.NewRequest("GET", "/jobs", nil)
	rr := httptest.NewRecorder()

	app.JobsList(rr, req)

	if rr.Code != 401 {
		t.Fatalf("unexpected status code: got %d, want 401", rr.Code)
	}
}
