// Package service contains the job orchestrator: the synchronous pipeline
// that turns one generation request into a terminal job row, a stored
// artifact, and at most one ledger debit.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"server/internal/domain"
	"server/internal/metrics"
	"server/internal/middleware"
	"server/internal/providers/image"
	"server/internal/providers/video"
)

// ErrGenerationFailed is the generic error surfaced to callers when a job
// ends failed. The specific provider error text stays in the logs and on the
// job row, not in the API response.
var ErrGenerationFailed = errors.New("generation failed")

// ArtifactStore persists fetched provider output to durable object storage.
type ArtifactStore interface {
	StoreArtifact(ctx context.Context, data []byte, folder, filename, contentType string) (publicURL, objectKey string, err error)
}

// ArtifactFetcher downloads the artifact the provider rendered.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// Orchestrator runs the whole submit -> provider -> store -> debit pipeline
// inline in the request. The only shared mutable state it touches is the
// database, so any number of instances can run concurrently.
type Orchestrator struct {
	users     domain.UserRepository
	jobs      domain.JobRepository
	videos    domain.VideoRepository
	ledger    domain.LedgerRepository
	logs      domain.GenerationLogRepository
	imageGen  image.Generator
	videoGen  video.Generator
	artifacts ArtifactStore
	fetcher   ArtifactFetcher
	pricing   domain.Pricing
	timeout   time.Duration
	logger    zerolog.Logger
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Users     domain.UserRepository
	Jobs      domain.JobRepository
	Videos    domain.VideoRepository
	Ledger    domain.LedgerRepository
	Logs      domain.GenerationLogRepository
	ImageGen  image.Generator
	VideoGen  video.Generator
	Artifacts ArtifactStore
	Fetcher   ArtifactFetcher
	Pricing   domain.Pricing
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// NewOrchestrator wires an Orchestrator from its dependencies.
func NewOrchestrator(deps Deps) *Orchestrator {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}
	pricing := deps.Pricing
	if pricing.Categories == nil {
		pricing = domain.DefaultPricing()
	}
	return &Orchestrator{
		users:     deps.Users,
		jobs:      deps.Jobs,
		videos:    deps.Videos,
		ledger:    deps.Ledger,
		logs:      deps.Logs,
		imageGen:  deps.ImageGen,
		videoGen:  deps.VideoGen,
		artifacts: deps.Artifacts,
		fetcher:   fetcher,
		pricing:   pricing,
		timeout:   timeout,
		logger:    deps.Logger,
	}
}

// SubmitImageInput is the validated payload of POST /jobs.
type SubmitImageInput struct {
	ObjectImageURL   string
	MaterialImageURL string
	Category         domain.Category
}

// ImageJobResult is returned to the handler on success: the terminal job and
// the refreshed balance.
type ImageJobResult struct {
	Job     *domain.Job
	Balance int
}

// SubmitVideoInput is the validated payload of POST /videos.
type SubmitVideoInput struct {
	SourceImageURL string
	Prompt         string
	Resolution     string
	AspectRatio    string
	Seed           *int64
}

// VideoJobResult mirrors ImageJobResult for video generations.
type VideoJobResult struct {
	Generation *domain.VideoGeneration
	Balance    int
}

// SubmitImageJob runs one image generation end to end. The balance pre-check
// is a fast user-facing rejection only; the atomic debit after completion is
// the true enforcement point.
func (o *Orchestrator) SubmitImageJob(ctx context.Context, userID string, in SubmitImageInput) (*ImageJobResult, error) {
	spec, err := o.pricing.Lookup(in.Category)
	if err != nil {
		return nil, err
	}
	if err := o.precheck(ctx, userID, spec.Cost); err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:               uuid.NewString(),
		UserID:           userID,
		Category:         in.Category,
		ObjectImageURL:   in.ObjectImageURL,
		MaterialImageURL: in.MaterialImageURL,
		Status:           domain.JobStatusPending,
		CreditsRequired:  spec.Cost,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.JobsCreatedTotal.WithLabelValues("image", string(in.Category)).Inc()

	balance, err := o.run(ctx, pipeline{
		kind:     "image",
		id:       job.ID,
		userID:   userID,
		category: string(in.Category),
		cost:     spec.Cost,
		folder:   "wraps",
		store:    o.jobs,
		generate: func(ctx context.Context) (string, string, map[string]any, error) {
			res, err := o.imageGen.Generate(ctx, image.GenerateRequest{
				ObjectImageURL:   in.ObjectImageURL,
				MaterialImageURL: in.MaterialImageURL,
				Prompt:           spec.PromptTemplate,
				Category:         string(in.Category),
				RequestID:        job.ID,
			})
			if err != nil {
				return "", "", nil, err
			}
			return res.URL, res.Format, map[string]any{"provider_id": res.ProviderID}, nil
		},
	})

	terminal, getErr := o.jobs.GetByID(ctx, job.ID)
	if getErr != nil {
		terminal = job
	}
	if err != nil {
		return &ImageJobResult{Job: terminal}, err
	}
	return &ImageJobResult{Job: terminal, Balance: balance}, nil
}

// SubmitVideoJob is the same state machine applied to the video table, with
// the fixed video cost and defaults.
func (o *Orchestrator) SubmitVideoJob(ctx context.Context, userID string, in SubmitVideoInput) (*VideoJobResult, error) {
	spec := o.pricing.Video
	if err := o.precheck(ctx, userID, spec.Cost); err != nil {
		return nil, err
	}

	prompt := in.Prompt
	if prompt == "" {
		prompt = spec.DefaultPrompt
	}
	resolution := in.Resolution
	if resolution == "" {
		resolution = spec.Resolution
	}
	aspect := in.AspectRatio
	if aspect == "" {
		aspect = spec.AspectRatio
	}

	gen := &domain.VideoGeneration{
		ID:              uuid.NewString(),
		UserID:          userID,
		SourceImageURL:  in.SourceImageURL,
		Prompt:          prompt,
		Resolution:      resolution,
		AspectRatio:     aspect,
		Seed:            in.Seed,
		DurationSeconds: spec.DurationSeconds,
		Status:          domain.JobStatusPending,
		CreditsRequired: spec.Cost,
	}
	if err := o.videos.Create(ctx, gen); err != nil {
		return nil, fmt.Errorf("create video generation: %w", err)
	}
	metrics.JobsCreatedTotal.WithLabelValues("video", "video").Inc()

	balance, err := o.run(ctx, pipeline{
		kind:   "video",
		id:     gen.ID,
		userID: userID,
		cost:   spec.Cost,
		folder: "videos",
		store:  o.videos,
		generate: func(ctx context.Context) (string, string, map[string]any, error) {
			res, err := o.videoGen.Generate(ctx, video.GenerateRequest{
				SourceImageURL:  in.SourceImageURL,
				Prompt:          prompt,
				Resolution:      resolution,
				AspectRatio:     aspect,
				DurationSeconds: spec.DurationSeconds,
				Seed:            in.Seed,
				RequestID:       gen.ID,
			})
			if err != nil {
				return "", "", nil, err
			}
			meta := map[string]any{"provider_request_id": res.RequestID, "seed_used": res.SeedUsed}
			return res.URL, res.Format, meta, nil
		},
	})

	terminal, getErr := o.videos.GetByID(ctx, gen.ID)
	if getErr != nil {
		terminal = gen
	}
	if err != nil {
		return &VideoJobResult{Generation: terminal}, err
	}
	return &VideoJobResult{Generation: terminal, Balance: balance}, nil
}

func (o *Orchestrator) precheck(ctx context.Context, userID string, cost int) error {
	user, err := o.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Credits < cost {
		return &domain.InsufficientCreditsError{Required: cost, Available: user.Credits}
	}
	return nil
}

// jobStateStore is the subset of the two repositories the shared pipeline
// needs; both JobRepository and VideoRepository satisfy it.
type jobStateStore interface {
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, resultURL string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

type pipeline struct {
	kind     string
	id       string
	userID   string
	category string
	cost     int
	folder   string
	store    jobStateStore
	// generate returns the provider's artifact URL, its reported format, and
	// provider metadata for the audit log.
	generate func(ctx context.Context) (artifactURL, format string, meta map[string]any, err error)
}

// run drives one created row from pending to a terminal state and settles the
// ledger. Returns the refreshed balance on success.
func (o *Orchestrator) run(ctx context.Context, p pipeline) (int, error) {
	start := time.Now()
	log := o.logger.With().Str("kind", p.kind).Str("job_id", p.id).Str("user_id", p.userID).Logger()

	if err := p.store.MarkProcessing(ctx, p.id); err != nil {
		return 0, fmt.Errorf("mark processing: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	artifactURL, format, meta, err := o.generateWithRetry(genCtx, p.generate)
	if err != nil {
		return 0, o.fail(ctx, p, log, meta, err)
	}

	// The provider "succeeded", but its output is not delivered until it is
	// durably ours. Fetch and store inside the same unit of work.
	data, contentType, err := o.fetcher.Fetch(genCtx, artifactURL)
	if err != nil {
		return 0, o.fail(ctx, p, log, meta, fmt.Errorf("fetch artifact: %w", err))
	}
	filename := p.id + "." + fileExtension(p.kind, format, contentType)
	publicURL, objectKey, err := o.artifacts.StoreArtifact(genCtx, data, p.folder, filename, contentType)
	if err != nil {
		return 0, o.fail(ctx, p, log, meta, fmt.Errorf("store artifact: %w", err))
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["artifact_key"] = objectKey

	if err := p.store.MarkCompleted(ctx, p.id, publicURL); err != nil {
		return 0, o.fail(ctx, p, log, meta, fmt.Errorf("mark completed: %w", err))
	}

	balance, err := o.ledger.Debit(ctx, p.userID, p.cost, domain.LedgerEntry{
		Type:          domain.TransactionConsumption,
		ReferenceType: domain.ReferenceGeneration,
		ReferenceID:   p.id,
		Metadata:      map[string]any{"kind": p.kind, "category": p.category},
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			// The optimistic pre-check passed but a concurrent operation spent
			// the balance first. The job must not stay completed unpaid; the
			// already-uploaded artifact is retained as an orphan for offline
			// cleanup.
			log.Warn().Str("artifact_key", objectKey).Msg("debit lost balance race, forcing job to failed")
			meta["orphaned_artifact"] = true
			return 0, o.fail(ctx, p, log, meta, fmt.Errorf("settle credits: %w", err))
		}
		return 0, o.fail(ctx, p, log, meta, fmt.Errorf("settle credits: %w", err))
	}

	metrics.JobsCompletedTotal.WithLabelValues(p.kind, string(domain.JobStatusCompleted)).Inc()
	metrics.JobDuration.WithLabelValues(p.kind).Observe(time.Since(start).Seconds())
	metrics.CreditsConsumedTotal.Add(float64(p.cost))
	o.appendLog(ctx, p, domain.JobStatusCompleted, p.cost, meta)
	log.Info().Int("balance", balance).Dur("took", time.Since(start)).Msg("generation completed")
	return balance, nil
}

// fail records the terminal failure and returns the caller-facing error. The
// user is not charged for failed work, so no ledger entry is written here.
func (o *Orchestrator) fail(ctx context.Context, p pipeline, log zerolog.Logger, meta map[string]any, cause error) error {
	log.Error().Err(cause).Msg("generation failed")
	msg := failureMessage(cause)
	if err := p.store.MarkFailed(ctx, p.id, msg); err != nil {
		log.Error().Err(err).Msg("failed to mark job failed")
	}
	metrics.JobsCompletedTotal.WithLabelValues(p.kind, string(domain.JobStatusFailed)).Inc()
	if meta == nil {
		meta = map[string]any{}
	}
	meta["error"] = cause.Error()
	o.appendLog(ctx, p, domain.JobStatusFailed, 0, meta)

	var rejected *domain.ProviderRejectedError
	if errors.As(cause, &rejected) {
		// Provider-stated input problems are safe to show to the user.
		return fmt.Errorf("%w: %s", ErrGenerationFailed, rejected.Message)
	}
	return ErrGenerationFailed
}

func (o *Orchestrator) appendLog(ctx context.Context, p pipeline, status domain.JobStatus, charged int, meta map[string]any) {
	if o.logs == nil {
		return
	}
	if country := middleware.CountryFromContext(ctx); country != "" {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["country"] = country
	}
	entry := &domain.GenerationLog{
		UserID:         p.userID,
		ReferenceType:  domain.ReferenceGeneration,
		ReferenceID:    p.id,
		Category:       p.category,
		Status:         status,
		CreditsCharged: charged,
		Metadata:       meta,
	}
	if err := o.logs.Append(ctx, entry); err != nil {
		o.logger.Error().Err(err).Str("job_id", p.id).Msg("failed to append generation log")
	}
}

// generateWithRetry calls the provider with a single retry on transient
// failures. Provider-reported content rejections are terminal on the first
// answer.
func (o *Orchestrator) generateWithRetry(ctx context.Context, generate func(context.Context) (string, string, map[string]any, error)) (string, string, map[string]any, error) {
	var (
		artifactURL string
		format      string
		meta        map[string]any
	)
	backoff := retry.WithMaxRetries(1, retry.NewConstant(2*time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		artifactURL, format, meta, err = generate(ctx)
		if err == nil {
			return nil
		}
		var rejected *domain.ProviderRejectedError
		if errors.As(err, &rejected) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return "", "", meta, err
	}
	return artifactURL, format, meta, nil
}

func failureMessage(cause error) string {
	var rejected *domain.ProviderRejectedError
	if errors.As(cause, &rejected) {
		return rejected.Error()
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return "generation timed out"
	}
	return cause.Error()
}

func fileExtension(kind, format, contentType string) string {
	for _, v := range []string{format, contentType} {
		switch v {
		case "image/png", "png":
			return "png"
		case "image/jpeg", "jpg", "jpeg":
			return "jpg"
		case "image/webp", "webp":
			return "webp"
		case "video/mp4", "mp4":
			return "mp4"
		case "video/webm", "webm":
			return "webm"
		}
	}
	if kind == "video" {
		return "mp4"
	}
	return "png"
}
