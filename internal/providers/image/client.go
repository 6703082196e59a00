package image

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

// Options configures the wrap generation client.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client calls the hosted wrap-generation API over HTTP JSON.
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
		model = "wrap-v2"
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
	Model         string `json:"model"`
	ObjectImage   string `json:"object_image"`
	MaterialImage string `json:"material_image"`
	Prompt        string `json:"prompt"`
	Category      string `json:"category,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

type generateResponse struct {
	ID     string `json:"id"`
	Output struct {
		URL    string `json:"url"`
		Format string `json:"format"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Generate renders the wrapped image. Provider-reported input rejections come
// back as *domain.ProviderRejectedError; everything else (network, 5xx) is a
// plain wrapped error that the caller may retry once.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if c == nil {
		return nil, errors.New("image client not configured")
	}
	if c.token == "" {
		return nil, errors.New("image: API key is missing")
	}
	objectURL := strings.TrimSpace(req.ObjectImageURL)
	materialURL := strings.TrimSpace(req.MaterialImageURL)
	if objectURL == "" || materialURL == "" {
		return nil, errors.New("image: object and material urls required")
	}

	payload := generateRequest{
		Model:         c.model,
		ObjectImage:   objectURL,
		MaterialImage: materialURL,
		Prompt:        req.Prompt,
		Category:      req.Category,
		RequestID:     req.RequestID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image: request failed: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("image: http %d", resp.StatusCode)
		}
		return nil, err
	}

	// 4xx is the provider telling us the input itself is unusable; never retried.
	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
		return nil, &domain.ProviderRejectedError{
			Provider: "wrapgen",
			Code:     out.Code,
			Message:  firstNonEmpty(out.Message, fmt.Sprintf("http %d", resp.StatusCode)),
		}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("image: provider error: http %d: %s", resp.StatusCode, out.Message)
	}
	if out.Output.URL == "" {
		return nil, errors.New("image: empty response")
	}

	return &Result{
		URL:        out.Output.URL,
		Format:     out.Output.Format,
		ProviderID: out.ID,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ Generator = (*Client)(nil)
