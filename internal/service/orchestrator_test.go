package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server/internal/domain"
	"server/internal/providers/image"
	"server/internal/providers/video"
)

type fakeUsers struct {
	users map[string]*domain.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeJobs struct {
	jobs map[string]*domain.Job
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*domain.Job{}}
}

func (f *fakeJobs) Create(ctx context.Context, job *domain.Job) error {
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobs) MarkProcessing(ctx context.Context, id string) error {
	f.jobs[id].Status = domain.JobStatusProcessing
	return nil
}

func (f *fakeJobs) MarkCompleted(ctx context.Context, id, resultURL string) error {
	f.jobs[id].Status = domain.JobStatusCompleted
	f.jobs[id].ResultImageURL = resultURL
	return nil
}

func (f *fakeJobs) MarkFailed(ctx context.Context, id, errMsg string) error {
	f.jobs[id].Status = domain.JobStatusFailed
	f.jobs[id].ErrorMessage = errMsg
	return nil
}

func (f *fakeJobs) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobs) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Job, error) {
	var out []domain.Job
	for _, j := range f.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, nil
}

type fakeVideos struct {
	gens map[string]*domain.VideoGeneration
}

func newFakeVideos() *fakeVideos {
	return &fakeVideos{gens: map[string]*domain.VideoGeneration{}}
}

func (f *fakeVideos) Create(ctx context.Context, gen *domain.VideoGeneration) error {
	cp := *gen
	f.gens[gen.ID] = &cp
	return nil
}

func (f *fakeVideos) MarkProcessing(ctx context.Context, id string) error {
	f.gens[id].Status = domain.JobStatusProcessing
	return nil
}

func (f *fakeVideos) MarkCompleted(ctx context.Context, id, resultURL string) error {
	f.gens[id].Status = domain.JobStatusCompleted
	f.gens[id].ResultVideoURL = resultURL
	return nil
}

func (f *fakeVideos) MarkFailed(ctx context.Context, id, errMsg string) error {
	f.gens[id].Status = domain.JobStatusFailed
	f.gens[id].ErrorMessage = errMsg
	return nil
}

func (f *fakeVideos) GetByID(ctx context.Context, id string) (*domain.VideoGeneration, error) {
	g, ok := f.gens[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeVideos) ListByUser(ctx context.Context, userID string, limit int) ([]domain.VideoGeneration, error) {
	var out []domain.VideoGeneration
	for _, g := range f.gens {
		if g.UserID == userID {
			out = append(out, *g)
		}
	}
	return out, nil
}

type debitCall struct {
	userID string
	amount int
	entry  domain.LedgerEntry
}

type fakeLedger struct {
	balance  int
	debits   []debitCall
	debitErr error
}

func (f *fakeLedger) Debit(ctx context.Context, userID string, amount int, entry domain.LedgerEntry) (int, error) {
	if f.debitErr != nil {
		return 0, f.debitErr
	}
	f.debits = append(f.debits, debitCall{userID: userID, amount: amount, entry: entry})
	f.balance -= amount
	return f.balance, nil
}

func (f *fakeLedger) Credit(ctx context.Context, userID string, amount int, entry domain.LedgerEntry) (int, error) {
	f.balance += amount
	return f.balance, nil
}

type fakeLogs struct {
	entries []*domain.GenerationLog
}

func (f *fakeLogs) Append(ctx context.Context, log *domain.GenerationLog) error {
	f.entries = append(f.entries, log)
	return nil
}

type fakeImageGen struct {
	calls  int
	result *image.Result
	errs   []error
}

func (f *fakeImageGen) Generate(ctx context.Context, req image.GenerateRequest) (*image.Result, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.result, nil
}

type fakeVideoGen struct {
	calls   int
	lastReq video.GenerateRequest
	result  *video.Result
	err     error
}

func (f *fakeVideoGen) Generate(ctx context.Context, req video.GenerateRequest) (*video.Result, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeArtifacts struct {
	stored [][]byte
	err    error
}

func (f *fakeArtifacts) StoreArtifact(ctx context.Context, data []byte, folder, filename, contentType string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.stored = append(f.stored, data)
	return "https://cdn.example.com/" + folder + "/" + filename, folder + "/" + filename, nil
}

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, "image/png", nil
}

type fixture struct {
	users     *fakeUsers
	jobs      *fakeJobs
	videos    *fakeVideos
	ledger    *fakeLedger
	logs      *fakeLogs
	imageGen  *fakeImageGen
	videoGen  *fakeVideoGen
	artifacts *fakeArtifacts
	orch      *Orchestrator
}

func newFixture(credits int) *fixture {
	f := &fixture{
		users: &fakeUsers{users: map[string]*domain.User{
			"u1": {ID: "u1", Email: "u1@example.com", Credits: credits},
		}},
		jobs:      newFakeJobs(),
		videos:    newFakeVideos(),
		ledger:    &fakeLedger{balance: credits},
		logs:      &fakeLogs{},
		imageGen:  &fakeImageGen{result: &image.Result{URL: "https://provider.example/out.png", Format: "png", ProviderID: "p-1"}},
		videoGen:  &fakeVideoGen{result: &video.Result{URL: "https://provider.example/out.mp4", Format: "mp4", SeedUsed: 42, RequestID: "vr-1"}},
		artifacts: &fakeArtifacts{},
	}
	f.orch = NewOrchestrator(Deps{
		Users:     f.users,
		Jobs:      f.jobs,
		Videos:    f.videos,
		Ledger:    f.ledger,
		Logs:      f.logs,
		ImageGen:  f.imageGen,
		VideoGen:  f.videoGen,
		Artifacts: f.artifacts,
		Fetcher:   &fakeFetcher{data: []byte("artifact-bytes")},
		Logger:    zerolog.Nop(),
	})
	return f
}

func imageInput() SubmitImageInput {
	return SubmitImageInput{
		ObjectImageURL:   "https://img.example/object.png",
		MaterialImageURL: "https://img.example/material.png",
		Category:         domain.CategoryClothing,
	}
}

func TestSubmitImageJobSuccessDebitsOnce(t *testing.T) {
	f := newFixture(5)

	result, err := f.orch.SubmitImageJob(context.Background(), "u1", imageInput())
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusCompleted, result.Job.Status)
	assert.NotEmpty(t, result.Job.ResultImageURL)
	assert.Equal(t, 4, result.Balance)

	require.Len(t, f.ledger.debits, 1)
	debit := f.ledger.debits[0]
	assert.Equal(t, "u1", debit.userID)
	assert.Equal(t, 1, debit.amount)
	assert.Equal(t, domain.TransactionConsumption, debit.entry.Type)
	assert.Equal(t, result.Job.ID, debit.entry.ReferenceID)

	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, domain.JobStatusCompleted, f.logs.entries[0].Status)
	assert.Equal(t, 1, f.logs.entries[0].CreditsCharged)
}

func TestSubmitImageJobInsufficientCreditsCreatesNothing(t *testing.T) {
	f := newFixture(0)

	result, err := f.orch.SubmitImageJob(context.Background(), "u1", imageInput())
	require.Error(t, err)
	assert.Nil(t, result)

	var insufficient *domain.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Required)
	assert.Equal(t, 0, insufficient.Available)

	assert.Empty(t, f.jobs.jobs, "no job row may exist after a pre-check rejection")
	assert.Empty(t, f.ledger.debits)
	assert.Equal(t, 0, f.imageGen.calls)
}

func TestSubmitImageJobUnknownCategory(t *testing.T) {
	f := newFixture(5)

	in := imageInput()
	in.Category = "spacecraft"
	result, err := f.orch.SubmitImageJob(context.Background(), "u1", in)
	require.ErrorIs(t, err, domain.ErrUnknownCategory)
	assert.Nil(t, result)
	assert.Empty(t, f.jobs.jobs)
}

func TestSubmitImageJobProviderRejectedIsTerminal(t *testing.T) {
	f := newFixture(5)
	f.imageGen.errs = []error{&domain.ProviderRejectedError{Provider: "wrapgen", Code: "content_policy", Message: "image rejected"}}

	result, err := f.orch.SubmitImageJob(context.Background(), "u1", imageInput())
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "image rejected")

	require.NotNil(t, result)
	assert.Equal(t, domain.JobStatusFailed, result.Job.Status)
	assert.NotEmpty(t, result.Job.ErrorMessage)

	assert.Equal(t, 1, f.imageGen.calls, "rejections must not be retried")
	assert.Empty(t, f.ledger.debits, "failed jobs are never charged")
}

func TestSubmitImageJobRetriesTransientOnce(t *testing.T) {
	f := newFixture(5)
	f.imageGen.errs = []error{errors.New("connection reset"), nil}

	result, err := f.orch.SubmitImageJob(context.Background(), "u1", imageInput())
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, result.Job.Status)
	assert.Equal(t, 2, f.imageGen.calls)
	assert.Len(t, f.ledger.debits, 1)
}

func TestSubmitImageJobArtifactStoreFailureNotCharged(t *testing.T) {
	f := newFixture(5)
	f.artifacts.err = fmt.Errorf("bucket unavailable")

	result, err := f.orch.SubmitImageJob(context.Background(), "u1", imageInput())
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, domain.JobStatusFailed, result.Job.Status)
	assert.Empty(t, f.ledger.debits)
}

func TestSubmitImageJobDebitRaceForcesFailed(t *testing.T) {
	f := newFixture(5)
	f.ledger.debitErr = domain.ErrInsufficientFunds

	result, err := f.orch.SubmitImageJob(context.Background(), "u1", imageInput())
	require.ErrorIs(t, err, ErrGenerationFailed)

	// Generation succeeded and the artifact was stored, but the balance was
	// spent concurrently: the job must end failed with no charge, never
	// completed-unpaid.
	assert.Equal(t, domain.JobStatusFailed, result.Job.Status)
	assert.Empty(t, f.ledger.debits)
	assert.Len(t, f.artifacts.stored, 1)

	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, true, f.logs.entries[0].Metadata["orphaned_artifact"])
}

func TestSubmitVideoJobAppliesDefaults(t *testing.T) {
	f := newFixture(10)

	result, err := f.orch.SubmitVideoJob(context.Background(), "u1", SubmitVideoInput{
		SourceImageURL: "https://img.example/source.png",
	})
	require.NoError(t, err)

	gen := result.Generation
	assert.Equal(t, domain.JobStatusCompleted, gen.Status)
	assert.Equal(t, 5, gen.DurationSeconds)
	assert.Equal(t, "720p", gen.Resolution)
	assert.Equal(t, "16:9", gen.AspectRatio)
	assert.NotEmpty(t, gen.Prompt)
	assert.Equal(t, 6, gen.CreditsRequired)
	assert.Equal(t, 4, result.Balance)

	require.Len(t, f.ledger.debits, 1)
	assert.Equal(t, 6, f.ledger.debits[0].amount)
	assert.Equal(t, gen.ID, f.ledger.debits[0].entry.ReferenceID)
}

func TestSubmitVideoJobPromptOverride(t *testing.T) {
	f := newFixture(10)

	_, err := f.orch.SubmitVideoJob(context.Background(), "u1", SubmitVideoInput{
		SourceImageURL: "https://img.example/source.png",
		Prompt:         "gentle dolly zoom",
		Resolution:     "1080p",
	})
	require.NoError(t, err)

	assert.Equal(t, "gentle dolly zoom", f.videoGen.lastReq.Prompt)
	assert.Equal(t, "1080p", f.videoGen.lastReq.Resolution)
	assert.Equal(t, 5, f.videoGen.lastReq.DurationSeconds)
}

func TestSubmitVideoJobInsufficientCredits(t *testing.T) {
	f := newFixture(5)

	result, err := f.orch.SubmitVideoJob(context.Background(), "u1", SubmitVideoInput{
		SourceImageURL: "https://img.example/source.png",
	})
	require.Error(t, err)
	assert.Nil(t, result)

	var insufficient *domain.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 6, insufficient.Required)
	assert.Equal(t, 5, insufficient.Available)
	assert.Empty(t, f.videos.gens)
}
