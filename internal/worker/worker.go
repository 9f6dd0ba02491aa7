// Package worker implements the crawl worker's fetch pipeline.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/fetch"
	"github.com/crawlfleet/crawlfleet/internal/robots"
)

const receiveBackoff = 5 * time.Second

// Config controls Worker behavior.
type Config struct {
	// WorkerID defaults to a generated crawler-<uuid> identity.
	WorkerID          string
	CrawlDelay        time.Duration
	HeartbeatInterval time.Duration
	ContentType       string
}

// Worker consumes work queue items and runs each through the fetch pipeline:
// robots gate, retrying fetch, crawl-delay pause, extraction, blob upload,
// and result publish. One URL is in flight at a time; scale-out means more
// worker processes against the same queue.
type Worker struct {
	id      string
	work    crawl.Queue
	results crawl.Queue
	beats   crawl.Queue
	blobs   crawl.BlobStore
	robots  *robots.Cache
	fetcher *fetch.Client
	clock   crawl.Clock
	cfg     Config
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration)

	mu       sync.Mutex
	crawled  int64
	uploaded int64
	failed   int64
	delay    time.Duration
}

// New constructs a Worker.
func New(
	work crawl.Queue,
	results crawl.Queue,
	beats crawl.Queue,
	blobs crawl.BlobStore,
	robotsCache *robots.Cache,
	fetcher *fetch.Client,
	clock crawl.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.WorkerID == "" {
		cfg.WorkerID = "crawler-" + uuid.NewString()[:8]
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 60 * time.Second
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	return &Worker{
		id:      cfg.WorkerID,
		work:    work,
		results: results,
		beats:   beats,
		blobs:   blobs,
		robots:  robotsCache,
		fetcher: fetcher,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With(zap.String("worker_id", cfg.WorkerID)),
		sleep:   sleepWithContext,
		delay:   cfg.CrawlDelay,
	}
}

// ID returns the worker's identity as reported in heartbeats.
func (w *Worker) ID() string { return w.id }

// Run blocks, consuming work items until the context finishes. On interrupt
// the current item is finished, a final heartbeat is sent, and Run returns.
func (w *Worker) Run(ctx context.Context) {
	hbCtx, stopBeats := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.heartbeatLoop(hbCtx)
	}()

	w.logger.Info("worker started")
	for {
		msg, err := w.work.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.logger.Error("work receive failed", zap.Error(err))
			w.sleep(ctx, receiveBackoff)
			continue
		}

		var item crawl.WorkMessage
		if err := crawl.DecodeJSON(msg.Body(), &item); err != nil {
			w.logger.Warn("malformed work item dropped", zap.Error(err))
			w.ack(msg)
			continue
		}

		// The item in flight is finished even if ctx is canceled under it.
		w.process(context.WithoutCancel(ctx), item)
		w.ack(msg)
	}

	stopBeats()
	wg.Wait()
	w.sendHeartbeat(context.Background())
	w.logger.Info("worker stopped")
}

// ack deletes the message once the pipeline has run to success or definitive
// failure. A fresh context lets the ack succeed during shutdown.
func (w *Worker) ack(msg crawl.Message) {
	if err := msg.Ack(context.Background()); err != nil {
		w.logger.Warn("work ack failed", zap.Error(err))
	}
}

func (w *Worker) process(ctx context.Context, item crawl.WorkMessage) {
	logger := w.logger.With(zap.String("url", item.URL))

	verdict := w.robots.Check(ctx, item.URL)
	if !verdict.Allowed {
		logger.Info("skipped: disallowed by robots")
		return
	}
	w.raiseDelay(verdict.CrawlDelay)

	res, err := w.fetcher.Get(ctx, item.URL)
	if err != nil {
		w.addFailed()
		logger.Error("fetch failed", zap.Error(err))
		return
	}
	w.addCrawled()
	logger.Debug("page fetched", zap.Int("status", res.StatusCode), zap.Int("bytes", len(res.Body)))

	w.sleep(ctx, w.currentDelay())

	title := crawl.ExtractTitle(res.Body)
	text := crawl.ExtractText(res.Body)
	links := crawl.ExtractLinks(res.Body, item.URL, item.RestrictDomain)

	key := crawl.ContentKey(item.URL)
	err = w.blobs.Put(ctx, key, res.Body, w.cfg.ContentType, map[string]string{
		crawl.MetadataOriginalURL: item.URL,
	})
	if err != nil {
		// Extraction results are still worth reporting.
		w.addFailed()
		logger.Error("blob upload failed", zap.String("key", key), zap.Error(err))
	} else {
		w.addUploaded()
	}

	body, err := crawl.EncodeJSON(crawl.ResultMessage{
		URL:            item.URL,
		Depth:          item.Depth,
		DepthLimit:     item.DepthLimit,
		RestrictDomain: item.RestrictDomain,
		Title:          title,
		Text:           text,
		Links:          links,
	})
	if err != nil {
		w.addFailed()
		logger.Error("encode result", zap.Error(err))
		return
	}
	if err := w.results.Send(ctx, body); err != nil {
		w.addFailed()
		logger.Error("result send failed", zap.Error(err))
		return
	}
	logger.Info("page processed", zap.Int("links", len(links)))
}

// raiseDelay lifts the crawl delay to the robots Crawl-delay directive when
// it is larger. The delay only ever goes up.
func (w *Worker) raiseDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if d > w.delay {
		w.logger.Info("crawl delay raised", zap.Duration("delay", d))
		w.delay = d
	}
}

func (w *Worker) currentDelay() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.delay
}

func (w *Worker) addCrawled() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.crawled++
}

func (w *Worker) addUploaded() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.uploaded++
}

func (w *Worker) addFailed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failed++
}

func (w *Worker) counters() (crawled, uploaded, failed int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.crawled, w.uploaded, w.failed
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
