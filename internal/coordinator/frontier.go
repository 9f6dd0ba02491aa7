// Package coordinator implements the task lifecycle engine: frontier dedup,
// work dispatch, timeout-driven requeue, and worker liveness tracking.
package coordinator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/metrics"
)

// Frontier owns the dedup set of every normalized URL ever accepted and
// feeds newly accepted URLs to the work queue.
type Frontier struct {
	queue   crawl.Queue
	tracker *Tracker
	logger  *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewFrontier builds a Frontier dispatching onto queue and recording
// accepted items in tracker.
func NewFrontier(queue crawl.Queue, tracker *Tracker, logger *zap.Logger) *Frontier {
	return &Frontier{
		queue:   queue,
		tracker: tracker,
		logger:  logger,
		seen:    make(map[string]struct{}),
	}
}

// Submit normalizes and enqueues seed URLs at depth zero. It returns the
// number of newly accepted URLs; duplicates are silently dropped.
func (f *Frontier) Submit(ctx context.Context, urls []string, depthLimit int, restrictDomain bool) int {
	return f.SubmitAt(ctx, urls, 0, depthLimit, restrictDomain)
}

// SubmitAt is Submit for discovered links, which enter at the depth of the
// page that referenced them plus one.
//
// A URL that passes dedup but fails the queue send stays in the dedup set
// without ever being scheduled; the failure is logged and counted, and a
// later resubmission of the same URL will be rejected. Known gap, kept
// deliberate until requeue-on-send-failure semantics are settled.
func (f *Frontier) SubmitAt(ctx context.Context, urls []string, depth, depthLimit int, restrictDomain bool) int {
	accepted := 0
	duplicates := 0
	sendFailures := 0

	for _, raw := range urls {
		norm := crawl.NormalizeURL(raw)
		if norm == "" {
			continue
		}
		if !f.markIfNew(norm) {
			duplicates++
			continue
		}

		msg := crawl.WorkMessage{
			URL:            norm,
			Depth:          depth,
			DepthLimit:     depthLimit,
			RestrictDomain: restrictDomain,
		}
		body, err := crawl.EncodeJSON(msg)
		if err != nil {
			f.logger.Error("encode work message", zap.String("url", norm), zap.Error(err))
			sendFailures++
			continue
		}
		if err := f.queue.Send(ctx, body); err != nil {
			f.logger.Error("work queue send failed; url stays dedup-blocked",
				zap.String("url", norm),
				zap.Error(err),
			)
			sendFailures++
			continue
		}

		f.tracker.Record(norm, depth, depthLimit, restrictDomain)
		accepted++
	}

	metrics.ObserveSubmit(accepted, duplicates, sendFailures)
	if accepted > 0 || sendFailures > 0 {
		f.logger.Info("urls submitted",
			zap.Int("accepted", accepted),
			zap.Int("duplicates", duplicates),
			zap.Int("send_failures", sendFailures),
			zap.Int("depth", depth),
		)
	}
	return accepted
}

// markIfNew atomically tests and inserts a normalized URL.
func (f *Frontier) markIfNew(norm string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[norm]; ok {
		return false
	}
	f.seen[norm] = struct{}{}
	return true
}

// Seen reports the dedup set size.
func (f *Frontier) Seen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
