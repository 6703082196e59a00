// Package video holds the video generation provider client. It mirrors the
// image provider contract for the second resource kind.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
)

// GenerateRequest describes a normalized video request.
type GenerateRequest struct {
	SourceImageURL  string
	Prompt          string
	Resolution      string
	AspectRatio     string
	DurationSeconds int
	Seed            *int64
	RequestID       string
}

// Result carries the rendered video URL, the seed the provider actually used,
// and the provider-side request identifier.
type Result struct {
	URL       string
	Format    string
	SeedUsed  int64
	RequestID string
}

// Generator is the contract implemented by all video providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Result, error)
}

// Options configures the video client.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client calls the hosted image-to-video API over HTTP JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
}

// NewClient builds a Client from Options, applying defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.wrapgen.ai/v1"
	}
	model := opts.Model
	if model == "" {
		model = "motion-v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		model:      model,
	}
}

type generateRequest struct {
	Model       string `json:"model"`
	SourceImage string `json:"source_image"`
	Prompt      string `json:"prompt"`
	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Duration    int    `json:"duration_seconds"`
	Seed        *int64 `json:"seed,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

type generateResponse struct {
	ID     string `json:"id"`
	Output struct {
		URL    string `json:"url"`
		Format string `json:"format"`
		Seed   int64  `json:"seed"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Generate renders the video. Error mapping matches the image client: 4xx is
// a terminal *domain.ProviderRejectedError, 5xx and network failures are
// transient.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if c == nil {
		return nil, errors.New("video client not configured")
	}
	if c.token == "" {
		return nil, errors.New("video: API key is missing")
	}
	source := strings.TrimSpace(req.SourceImageURL)
	if source == "" {
		return nil, errors.New("video: source image url required")
	}

	payload := generateRequest{
		Model:       c.model,
		SourceImage: source,
		Prompt:      req.Prompt,
		Resolution:  req.Resolution,
		AspectRatio: req.AspectRatio,
		Duration:    req.DurationSeconds,
		Seed:        req.Seed,
		RequestID:   req.RequestID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/videos", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("video: request failed: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("video: http %d", resp.StatusCode)
		}
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
		msg := out.Message
		if msg == "" {
			msg = fmt.Sprintf("http %d", resp.StatusCode)
		}
		return nil, &domain.ProviderRejectedError{Provider: "wrapgen", Code: out.Code, Message: msg}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("video: provider error: http %d: %s", resp.StatusCode, out.Message)
	}
	if out.Output.URL == "" {
		return nil, errors.New("video: empty response")
	}

	return &Result{
		URL:       out.Output.URL,
		Format:    out.Output.Format,
		SeedUsed:  out.Output.Seed,
		RequestID: out.ID,
	}, nil
}

var _ Generator = (*Client)(nil)
