// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

// BlobStore keeps objects and their metadata in a map.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]crawl.Object
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		objects: make(map[string]crawl.Object),
	}
}

// Put stores the content under key, replacing any existing object.
func (s *BlobStore) Put(_ context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	s.objects[key] = crawl.Object{
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
		Metadata:    meta,
	}
	return nil
}

// Get returns the object stored under key.
func (s *BlobStore) Get(_ context.Context, key string) (crawl.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return crawl.Object{}, fmt.Errorf("object %q not found", key)
	}
	return obj, nil
}

// List returns all stored keys in sorted order.
func (s *BlobStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
