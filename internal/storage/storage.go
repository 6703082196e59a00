// Package storage persists generated artifacts to S3-compatible object
// storage. A provider's output is not considered delivered until it lands
// here.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds object storage connection settings.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	PublicBaseURL   string
}

// Store wraps a MinIO client scoped to one bucket.
type Store struct {
	client        *minio.Client
	bucketName    string
	publicBaseURL string
}

// New creates a storage client and ensures the bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}

	return &Store{
		client:        client,
		bucketName:    cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// StoreArtifact uploads the artifact bytes under folder/filename and returns
// the canonical public URL plus the object key.
func (s *Store) StoreArtifact(ctx context.Context, data []byte, folder, filename, contentType string) (string, string, error) {
	key, err := ObjectKey(folder, filename)
	if err != nil {
		return "", "", err
	}
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", "", fmt.Errorf("storage: upload object: %w", err)
	}
	return s.publicURL(key), key, nil
}

// Delete removes an object. Used only by operational tooling; the request
// path never deletes artifacts.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("storage: delete object: %w", err)
	}
	return nil
}

func (s *Store) publicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	scheme := "https"
	if !s.client.EndpointURL().IsAbs() || s.client.EndpointURL().Scheme == "http" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucketName, key)
}

// ObjectKey joins folder and filename into a clean object key, rejecting
// traversal segments.
func ObjectKey(folder, filename string) (string, error) {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", fmt.Errorf("storage: filename is required")
	}
	key := filename
	if folder != "" {
		key = folder + "/" + filename
	}
	cleaned := path.Clean(key)
	if cleaned != key || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return cleaned, nil
}
