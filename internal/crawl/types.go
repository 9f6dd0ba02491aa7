// Package crawl defines core types shared across the coordinator and workers.
package crawl

import (
	"time"
)

// TaskStatus represents the lifecycle state of a tracked work item.
type TaskStatus string

// Task status values held by the coordinator's tracker.
const (
	TaskQueued   TaskStatus = "queued"
	TaskInFlight TaskStatus = "in_flight"
	TaskDone     TaskStatus = "done"
	TaskTimedOut TaskStatus = "timed_out"
)

// Role identifies which fleet a worker belongs to.
type Role string

// Worker roles reported in heartbeats.
const (
	RoleCrawler Role = "crawler"
	RoleIndexer Role = "indexer"
)

// WorkItem is the coordinator's record of one URL's crawl task. Items are
// never deleted; completed and abandoned items remain for audit.
type WorkItem struct {
	NormalizedURL  string     `json:"normalized_url"`
	Depth          int        `json:"depth"`
	DepthLimit     int        `json:"depth_limit"`
	RestrictDomain bool       `json:"restrict_domain"`
	Status         TaskStatus `json:"status"`
	EnqueuedAt     time.Time  `json:"enqueued_at"`
	AttemptCount   int        `json:"attempt_count"`
}

// WorkerState is the liveness monitor's record of one worker, updated from
// heartbeats and classified by the periodic pass.
type WorkerState struct {
	WorkerID string    `json:"worker_id"`
	Role     Role      `json:"role"`
	LastSeen time.Time `json:"last_seen"`
	Active   bool      `json:"active"`
	Crawled  int64     `json:"crawled"`
	Uploaded int64     `json:"uploaded"`
	Failed   int64     `json:"failed"`
	Indexed  int64     `json:"indexed"`
}

// RoleCounts aggregates liveness classification for one role.
type RoleCounts struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// Document is one page as handed to the search index.
type Document struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Hit is one ranked search result.
type Hit struct {
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Object is a stored blob plus the metadata recorded alongside it.
type Object struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// MetadataOriginalURL is the metadata key under which the blob store retains
// the URL a page was fetched from, so lookups need no separate URL index.
const MetadataOriginalURL = "original-url"
