// Package index provides document upsert and query implementations for the
// search collaborator.
package index

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

// Memory is an in-memory index for development and tests. Ranking is a
// simple term-occurrence count over title and content.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]crawl.Document
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]crawl.Document)}
}

// Upsert inserts or replaces the document keyed by URL.
func (m *Memory) Upsert(_ context.Context, doc crawl.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.URL] = doc
	return nil
}

// Query returns documents matching any query term, ranked by match count.
func (m *Memory) Query(_ context.Context, text string, limit int) ([]crawl.Hit, error) {
	terms := strings.Fields(strings.ToLower(text))
	if len(terms) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []crawl.Hit
	for _, doc := range m.docs {
		haystack := strings.ToLower(doc.Title + " " + doc.Content)
		score := 0.0
		for _, term := range terms {
			score += float64(strings.Count(haystack, term))
		}
		if score > 0 {
			hits = append(hits, crawl.Hit{URL: doc.URL, Title: doc.Title, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].URL < hits[j].URL
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
