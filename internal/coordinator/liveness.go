package coordinator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

// Liveness ingests worker heartbeats and classifies each worker as active or
// inactive based on heartbeat age. Workers silent past the forget threshold
// are garbage-collected.
type Liveness struct {
	clock         crawl.Clock
	inactiveAfter time.Duration
	forgetAfter   time.Duration
	logger        *zap.Logger

	mu      sync.Mutex
	workers map[string]*crawl.WorkerState
	counts  map[crawl.Role]crawl.RoleCounts
}

// NewLiveness builds a Liveness monitor with the given thresholds.
func NewLiveness(clock crawl.Clock, inactiveAfter, forgetAfter time.Duration, logger *zap.Logger) *Liveness {
	return &Liveness{
		clock:         clock,
		inactiveAfter: inactiveAfter,
		forgetAfter:   forgetAfter,
		logger:        logger,
		workers:       make(map[string]*crawl.WorkerState),
		counts:        make(map[crawl.Role]crawl.RoleCounts),
	}
}

// Observe upserts one worker's record from a heartbeat. Counters are
// cumulative on the worker side, so the latest beat wins wholesale.
func (l *Liveness) Observe(role crawl.Role, hb crawl.HeartbeatMessage) {
	id := hb.ID()
	if id == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.workers[id]
	if !ok {
		state = &crawl.WorkerState{WorkerID: id, Role: role}
		l.workers[id] = state
		l.logger.Info("worker discovered", zap.String("worker_id", id), zap.String("role", string(role)))
	}
	state.LastSeen = l.clock.Now()
	switch role {
	case crawl.RoleCrawler:
		state.Crawled = hb.Crawled
		state.Uploaded = hb.Uploaded
		state.Failed = hb.Failed
	case crawl.RoleIndexer:
		state.Indexed = hb.Indexed
	}
}

// Classify recomputes each worker's active flag, drops workers silent past
// the forget threshold, and returns the fresh per-role aggregate.
func (l *Liveness) Classify() map[crawl.Role]crawl.RoleCounts {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	counts := make(map[crawl.Role]crawl.RoleCounts)
	for id, state := range l.workers {
		age := now.Sub(state.LastSeen)
		if age > l.forgetAfter {
			delete(l.workers, id)
			l.logger.Info("worker forgotten",
				zap.String("worker_id", id),
				zap.Duration("silent_for", age),
			)
			continue
		}
		state.Active = age <= l.inactiveAfter
		c := counts[state.Role]
		if state.Active {
			c.Active++
		} else {
			c.Inactive++
		}
		counts[state.Role] = c
	}
	l.counts = counts
	return counts
}

// Counts returns the aggregate from the most recent classification pass.
// This is the only state the dashboard collaborator consumes.
func (l *Liveness) Counts() map[crawl.Role]crawl.RoleCounts {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[crawl.Role]crawl.RoleCounts, len(l.counts))
	for role, c := range l.counts {
		out[role] = c
	}
	return out
}

// Workers returns a copy of every known worker record.
func (l *Liveness) Workers() []crawl.WorkerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]crawl.WorkerState, 0, len(l.workers))
	for _, state := range l.workers {
		out = append(out, *state)
	}
	return out
}
