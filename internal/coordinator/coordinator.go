package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/metrics"
)

// Config controls the coordinator's periodic loop cadences.
type Config struct {
	SweepInterval    time.Duration
	LivenessInterval time.Duration
	StatsInterval    time.Duration
	ErrorBackoff     time.Duration
}

// Coordinator runs the periodic activities that share the frontier, tracker,
// and liveness state: heartbeat drains per role, the results drain, the
// timeout sweep, the liveness pass, and a stats reporter. Each loop owns its
// own cadence; a transient error in one backs off locally without stalling
// the others.
type Coordinator struct {
	frontier     *Frontier
	tracker      *Tracker
	liveness     *Liveness
	results      crawl.Queue
	crawlerBeats crawl.Queue
	indexerBeats crawl.Queue
	cfg          Config
	logger       *zap.Logger
}

// New wires a Coordinator from its parts.
func New(
	frontier *Frontier,
	tracker *Tracker,
	liveness *Liveness,
	results crawl.Queue,
	crawlerBeats crawl.Queue,
	indexerBeats crawl.Queue,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 5 * time.Second
	}
	return &Coordinator{
		frontier:     frontier,
		tracker:      tracker,
		liveness:     liveness,
		results:      results,
		crawlerBeats: crawlerBeats,
		indexerBeats: indexerBeats,
		cfg:          cfg,
		logger:       logger,
	}
}

// Frontier exposes the frontier for seed submission.
func (c *Coordinator) Frontier() *Frontier { return c.frontier }

// Tracker exposes the tracker for the status API.
func (c *Coordinator) Tracker() *Tracker { return c.tracker }

// Liveness exposes the liveness monitor for the status API.
func (c *Coordinator) Liveness() *Liveness { return c.liveness }

// Run starts every coordinator loop and blocks until the context finishes.
func (c *Coordinator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	loops := []func(context.Context){
		func(ctx context.Context) { c.drainHeartbeats(ctx, crawl.RoleCrawler, c.crawlerBeats) },
		func(ctx context.Context) { c.drainHeartbeats(ctx, crawl.RoleIndexer, c.indexerBeats) },
		c.drainResults,
		c.sweepLoop,
		c.livenessLoop,
		c.statsLoop,
	}
	for _, loop := range loops {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(loop)
	}
	wg.Wait()
}

// drainHeartbeats continuously consumes one role's heartbeat queue.
// Messages are acked regardless of parse success: losing a single malformed
// heartbeat is harmless under at-least-once delivery.
func (c *Coordinator) drainHeartbeats(ctx context.Context, role crawl.Role, queue crawl.Queue) {
	logger := c.logger.With(zap.String("role", string(role)))
	for {
		msg, err := queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("heartbeat receive failed", zap.Error(err))
			metrics.ObserveDrainError("heartbeat_" + string(role))
			c.backoff(ctx)
			continue
		}

		var hb crawl.HeartbeatMessage
		if err := crawl.DecodeJSON(msg.Body(), &hb); err != nil {
			logger.Warn("malformed heartbeat dropped", zap.Error(err))
		} else {
			c.liveness.Observe(role, hb)
		}
		if err := msg.Ack(ctx); err != nil {
			logger.Warn("heartbeat ack failed", zap.Error(err))
		}
	}
}

// drainResults consumes terminal reports: the item is marked Done and any
// discovered links re-enter through the frontier one level deeper.
func (c *Coordinator) drainResults(ctx context.Context) {
	for {
		msg, err := c.results.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("result receive failed", zap.Error(err))
			metrics.ObserveDrainError("results")
			c.backoff(ctx)
			continue
		}

		var res crawl.ResultMessage
		if err := crawl.DecodeJSON(msg.Body(), &res); err != nil {
			c.logger.Warn("malformed result dropped", zap.Error(err))
			if ackErr := msg.Ack(ctx); ackErr != nil {
				c.logger.Warn("result ack failed", zap.Error(ackErr))
			}
			continue
		}

		norm := crawl.NormalizeURL(res.URL)
		if c.tracker.MarkDone(norm) {
			metrics.ObserveDone()
			c.logger.Info("task done",
				zap.String("url", norm),
				zap.Int("links", len(res.Links)),
			)
		}
		if len(res.Links) > 0 && res.Depth+1 <= res.DepthLimit {
			c.frontier.SubmitAt(ctx, res.Links, res.Depth+1, res.DepthLimit, res.RestrictDomain)
		}
		if err := msg.Ack(ctx); err != nil {
			c.logger.Warn("result ack failed", zap.Error(err))
		}
	}
}

func (c *Coordinator) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tracker.Sweep(ctx)
		}
	}
}

func (c *Coordinator) livenessLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.LivenessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts := c.liveness.Classify()
			for role, rc := range counts {
				metrics.SetWorkerCounts(string(role), rc.Active, rc.Inactive)
			}
		}
	}
}

func (c *Coordinator) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.tracker.Stats()
			for status, n := range stats.Counts {
				metrics.SetTaskCount(string(status), n)
			}
			c.logger.Info("tracker stats",
				zap.Int("total", stats.Total),
				zap.Int64("requeued", stats.Requeued),
				zap.Int("queued", stats.Counts[crawl.TaskQueued]),
				zap.Int("done", stats.Counts[crawl.TaskDone]),
			)
		}
	}
}

func (c *Coordinator) backoff(ctx context.Context) {
	timer := time.NewTimer(c.cfg.ErrorBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
