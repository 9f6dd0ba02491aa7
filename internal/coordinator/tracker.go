package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/metrics"
)

// Tracker holds every work item ever dispatched, keyed by normalized URL.
// Items are never deleted; Done and abandoned items stay for audit. The
// periodic sweep resends items that have gone unreported past the timeout.
type Tracker struct {
	queue   crawl.Queue
	clock   crawl.Clock
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	items    map[string]*crawl.WorkItem
	requeued int64
}

// TrackerStats is the tracker's aggregate exposed to the status API.
type TrackerStats struct {
	Counts   map[crawl.TaskStatus]int `json:"counts"`
	Requeued int64                    `json:"requeued"`
	Total    int                      `json:"total"`
}

// NewTracker builds a Tracker that requeues onto queue after timeout.
func NewTracker(queue crawl.Queue, clock crawl.Clock, timeout time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		queue:   queue,
		clock:   clock,
		timeout: timeout,
		logger:  logger,
		items:   make(map[string]*crawl.WorkItem),
	}
}

// Record registers a freshly enqueued item as Queued.
func (t *Tracker) Record(normalizedURL string, depth, depthLimit int, restrictDomain bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[normalizedURL] = &crawl.WorkItem{
		NormalizedURL:  normalizedURL,
		Depth:          depth,
		DepthLimit:     depthLimit,
		RestrictDomain: restrictDomain,
		Status:         crawl.TaskQueued,
		EnqueuedAt:     t.clock.Now(),
	}
}

// MarkDone records a terminal success report. Unknown URLs are ignored;
// with at-least-once delivery a duplicate result may arrive after the item
// was already reported.
func (t *Tracker) MarkDone(normalizedURL string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[normalizedURL]
	if !ok {
		return false
	}
	if item.Status == crawl.TaskDone {
		return false
	}
	item.Status = crawl.TaskDone
	return true
}

// Sweep resends every item that has gone unreported past the timeout,
// resetting its enqueue time and bumping its attempt count. There is no
// attempt cap: an item no worker can finish is requeued every sweep, and
// its attempt count is the operator's signal. Returns how many items were
// requeued.
func (t *Tracker) Sweep(ctx context.Context) int {
	stale := t.collectStale()
	requeued := 0

	for _, item := range stale {
		body, err := crawl.EncodeJSON(crawl.WorkMessage{
			URL:            item.NormalizedURL,
			Depth:          item.Depth,
			DepthLimit:     item.DepthLimit,
			RestrictDomain: item.RestrictDomain,
		})
		if err != nil {
			t.logger.Error("encode requeue message", zap.String("url", item.NormalizedURL), zap.Error(err))
			continue
		}
		if err := t.queue.Send(ctx, body); err != nil {
			// Left TimedOut; the next sweep picks it up again.
			t.logger.Error("requeue send failed", zap.String("url", item.NormalizedURL), zap.Error(err))
			continue
		}
		t.finishRequeue(item.NormalizedURL)
		requeued++
	}

	if requeued > 0 {
		metrics.ObserveRequeue(requeued)
		t.logger.Warn("stale tasks requeued", zap.Int("count", requeued))
	}
	return requeued
}

// collectStale marks overdue items TimedOut and returns copies for resend.
func (t *Tracker) collectStale() []crawl.WorkItem {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	var stale []crawl.WorkItem
	for _, item := range t.items {
		switch item.Status {
		case crawl.TaskQueued, crawl.TaskTimedOut:
		default:
			continue
		}
		if now.Sub(item.EnqueuedAt) <= t.timeout {
			continue
		}
		item.Status = crawl.TaskTimedOut
		stale = append(stale, *item)
	}
	return stale
}

func (t *Tracker) finishRequeue(normalizedURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[normalizedURL]
	if !ok || item.Status != crawl.TaskTimedOut {
		return
	}
	item.Status = crawl.TaskQueued
	item.EnqueuedAt = t.clock.Now()
	item.AttemptCount++
	t.requeued++
}

// Get returns a copy of one item.
func (t *Tracker) Get(normalizedURL string) (crawl.WorkItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[normalizedURL]
	if !ok {
		return crawl.WorkItem{}, false
	}
	return *item, true
}

// Stats returns the per-status population and global requeue counter.
func (t *Tracker) Stats() TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Every status is present even at zero, so a downstream gauge resets
	// when its population drains instead of holding the last value.
	counts := map[crawl.TaskStatus]int{
		crawl.TaskQueued:   0,
		crawl.TaskInFlight: 0,
		crawl.TaskDone:     0,
		crawl.TaskTimedOut: 0,
	}
	for _, item := range t.items {
		counts[item.Status]++
	}
	return TrackerStats{
		Counts:   counts,
		Requeued: t.requeued,
		Total:    len(t.items),
	}
}

// Items returns a copy of every tracked item (the audit surface).
func (t *Tracker) Items() []crawl.WorkItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]crawl.WorkItem, 0, len(t.items))
	for _, item := range t.items {
		out = append(out, *item)
	}
	return out
}
