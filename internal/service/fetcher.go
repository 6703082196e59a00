package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxArtifactBytes = 256 << 20 // 256 MiB

// HTTPFetcher downloads provider artifacts over plain HTTP GET.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds a fetcher; pass nil to use a default client.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

// Fetch downloads the artifact and reports its content type.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch artifact: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxArtifactBytes {
		return nil, "", fmt.Errorf("fetch artifact: exceeds %d bytes", maxArtifactBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

var _ ArtifactFetcher = (*HTTPFetcher)(nil)
