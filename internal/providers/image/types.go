package image

import "context"

// GenerateRequest describes a normalized wrap-generation request passed to
// any image provider.
type GenerateRequest struct {
	ObjectImageURL   string
	MaterialImageURL string
	Prompt           string
	Category         string
	RequestID        string
}

// Result is the provider's answer: a URL to the rendered artifact plus the
// provider-side identifier for tracing.
type Result struct {
	URL        string
	Format     string
	ProviderID string
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Result, error)
}
