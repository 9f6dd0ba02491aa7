// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// BlobStore reads and writes page artifacts in a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Put uploads data under key with the given content type and metadata.
// Writing the same key twice replaces the object, which is what makes
// duplicate task delivery harmless.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if len(metadata) > 0 {
		writer.Metadata = metadata
	}
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Get downloads the object stored under key along with its metadata.
func (s *BlobStore) Get(ctx context.Context, key string) (crawl.Object, error) {
	obj := s.client.Bucket(s.bucket).Object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return crawl.Object{}, fmt.Errorf("object attrs: %w", err)
	}
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return crawl.Object{}, fmt.Errorf("open object: %w", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return crawl.Object{}, fmt.Errorf("read object: %w", err)
	}
	return crawl.Object{
		Data:        data,
		ContentType: attrs.ContentType,
		Metadata:    attrs.Metadata,
	}, nil
}

// List returns the keys of every object in the bucket.
func (s *BlobStore) List(ctx context.Context) ([]string, error) {
	var keys []string
	it := s.client.Bucket(s.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}
