// Package indexer implements the index worker, which sweeps the blob store
// for crawled pages and feeds them into the search index.
package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

// Config controls Indexer behavior.
type Config struct {
	// IndexerID defaults to a generated indexer-<uuid> identity.
	IndexerID         string
	SweepInterval     time.Duration
	HeartbeatInterval time.Duration
}

// Indexer periodically lists the blob store, pulls objects it has not seen
// yet, extracts title and text, and upserts each into the search index. Keys
// are remembered in-process; a restart re-indexes, which the upsert absorbs.
type Indexer struct {
	id     string
	blobs  crawl.BlobStore
	index  crawl.Index
	beats  crawl.Queue
	clock  crawl.Clock
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	seen    map[string]struct{}
	indexed int64
	failed  int64
}

// New constructs an Indexer.
func New(blobs crawl.BlobStore, index crawl.Index, beats crawl.Queue, clock crawl.Clock, cfg Config, logger *zap.Logger) *Indexer {
	if cfg.IndexerID == "" {
		cfg.IndexerID = "indexer-" + uuid.NewString()[:8]
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 60 * time.Second
	}
	return &Indexer{
		id:     cfg.IndexerID,
		blobs:  blobs,
		index:  index,
		beats:  beats,
		clock:  clock,
		cfg:    cfg,
		logger: logger.With(zap.String("indexer_id", cfg.IndexerID)),
		seen:   make(map[string]struct{}),
	}
}

// ID returns the indexer's identity as reported in heartbeats.
func (ix *Indexer) ID() string { return ix.id }

// Run blocks, sweeping the blob store until the context finishes. A final
// heartbeat is sent on the way out.
func (ix *Indexer) Run(ctx context.Context) {
	ix.logger.Info("indexer started")

	sweep := time.NewTicker(ix.cfg.SweepInterval)
	defer sweep.Stop()
	beat := time.NewTicker(ix.cfg.HeartbeatInterval)
	defer beat.Stop()

	ix.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			ix.sendHeartbeat(context.Background())
			ix.logger.Info("indexer stopped")
			return
		case <-sweep.C:
			ix.Sweep(ctx)
		case <-beat.C:
			ix.sendHeartbeat(ctx)
		}
	}
}

// Sweep indexes every blob not yet seen by this process and returns how many
// documents were upserted.
func (ix *Indexer) Sweep(ctx context.Context) int {
	keys, err := ix.blobs.List(ctx)
	if err != nil {
		ix.logger.Error("blob list failed", zap.Error(err))
		return 0
	}

	upserted := 0
	for _, key := range keys {
		if ix.alreadySeen(key) {
			continue
		}
		if err := ix.indexOne(ctx, key); err != nil {
			ix.addFailed()
			ix.logger.Error("index blob failed", zap.String("key", key), zap.Error(err))
			continue
		}
		ix.markSeen(key)
		ix.addIndexed()
		upserted++
	}
	if upserted > 0 {
		ix.logger.Info("sweep indexed new pages", zap.Int("count", upserted))
	}
	return upserted
}

func (ix *Indexer) indexOne(ctx context.Context, key string) error {
	obj, err := ix.blobs.Get(ctx, key)
	if err != nil {
		return err
	}
	// The blob key is a digest; the page URL lives in the object metadata.
	pageURL := obj.Metadata[crawl.MetadataOriginalURL]
	if pageURL == "" {
		pageURL = key
	}
	return ix.index.Upsert(ctx, crawl.Document{
		URL:     pageURL,
		Title:   crawl.ExtractTitle(obj.Data),
		Content: crawl.ExtractText(obj.Data),
	})
}

func (ix *Indexer) alreadySeen(key string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.seen[key]
	return ok
}

func (ix *Indexer) markSeen(key string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.seen[key] = struct{}{}
}

func (ix *Indexer) addIndexed() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.indexed++
}

func (ix *Indexer) addFailed() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.failed++
}

func (ix *Indexer) counters() (indexed, failed int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.indexed, ix.failed
}

func (ix *Indexer) sendHeartbeat(ctx context.Context) {
	indexed, failed := ix.counters()
	body, err := crawl.EncodeJSON(crawl.HeartbeatMessage{
		IndexerID: ix.id,
		Timestamp: ix.clock.Now().Unix(),
		Status:    "alive",
		Indexed:   indexed,
		Failed:    failed,
	})
	if err != nil {
		ix.logger.Error("encode heartbeat", zap.Error(err))
		return
	}
	if err := ix.beats.Send(ctx, body); err != nil {
		ix.logger.Warn("heartbeat send failed", zap.Error(err))
		return
	}
	ix.logger.Debug("heartbeat sent", zap.Int64("indexed", indexed))
}
