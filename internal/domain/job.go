package domain

import "time"

// JobStatus enumerates the generation lifecycle states. A job is born
// pending, becomes processing before the provider call, and terminates
// exactly once into completed or failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status ends the lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one user-initiated image generation request: an object image wrapped
// with a material image according to a category-specific prompt.
type Job struct {
	ID               string
	UserID           string
	Category         Category
	ObjectImageURL   string
	MaterialImageURL string
	ResultImageURL   string
	Status           JobStatus
	ErrorMessage     string
	CreditsRequired  int
	CreatedAt        time.Time
	CompletedAt      *time.Time
	FailedAt         *time.Time
}

// VideoGeneration is the video counterpart of Job: same state machine applied
// to a second resource kind, stored in its own table.
type VideoGeneration struct {
	ID              string
	UserID          string
	SourceImageURL  string
	Prompt          string
	Resolution      string
	AspectRatio     string
	Seed            *int64
	DurationSeconds int
	ResultVideoURL  string
	Status          JobStatus
	ErrorMessage    string
	CreditsRequired int
	CreatedAt       time.Time
	CompletedAt     *time.Time
	FailedAt        *time.Time
}
