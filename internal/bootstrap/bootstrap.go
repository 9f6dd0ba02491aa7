// Package bootstrap builds the configured transport, storage, and index
// providers for the service binaries.
package bootstrap

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	gcpstorage "cloud.google.com/go/storage"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/config"
	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/index"
	queuememory "github.com/crawlfleet/crawlfleet/internal/queue/memory"
	queuepubsub "github.com/crawlfleet/crawlfleet/internal/queue/pubsub"
	queueredis "github.com/crawlfleet/crawlfleet/internal/queue/redis"
	storagegcs "github.com/crawlfleet/crawlfleet/internal/storage/gcs"
	storagememory "github.com/crawlfleet/crawlfleet/internal/storage/memory"
)

// Queues bundles the four logical queues every binary draws from. A process
// that only sends on a queue still gets a fully wired instance.
type Queues struct {
	Work         crawl.Queue
	Results      crawl.Queue
	CrawlerBeats crawl.Queue
	IndexerBeats crawl.Queue
}

// NewQueues builds the configured queue transport. The returned close
// function releases broker connections and is safe to call once.
func NewQueues(ctx context.Context, cfg config.QueueConfig, logger *zap.Logger) (Queues, func(), error) {
	switch cfg.Provider {
	case "memory":
		work := queuememory.NewQueue(cfg.Depth)
		results := queuememory.NewQueue(cfg.Depth)
		crawlerBeats := queuememory.NewQueue(cfg.Depth)
		indexerBeats := queuememory.NewQueue(cfg.Depth)
		closeAll := func() {
			work.Close()
			results.Close()
			crawlerBeats.Close()
			indexerBeats.Close()
		}
		return Queues{Work: work, Results: results, CrawlerBeats: crawlerBeats, IndexerBeats: indexerBeats}, closeAll, nil

	case "pubsub":
		client, err := gcppubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return Queues{}, nil, fmt.Errorf("pubsub client: %w", err)
		}
		work, err := queuepubsub.NewQueue(client, cfg.WorkTopic, cfg.WorkSubscription, logger)
		if err != nil {
			return Queues{}, nil, err
		}
		results, err := queuepubsub.NewQueue(client, cfg.ResultsTopic, cfg.ResultsSubscription, logger)
		if err != nil {
			return Queues{}, nil, err
		}
		crawlerBeats, err := queuepubsub.NewQueue(client, cfg.CrawlerBeatsTopic, cfg.CrawlerBeatsSub, logger)
		if err != nil {
			return Queues{}, nil, err
		}
		indexerBeats, err := queuepubsub.NewQueue(client, cfg.IndexerBeatsTopic, cfg.IndexerBeatsSub, logger)
		if err != nil {
			return Queues{}, nil, err
		}
		closeAll := func() {
			work.Close()
			results.Close()
			crawlerBeats.Close()
			indexerBeats.Close()
			if err := client.Close(); err != nil {
				logger.Warn("pubsub client close failed", zap.Error(err))
			}
		}
		return Queues{Work: work, Results: results, CrawlerBeats: crawlerBeats, IndexerBeats: indexerBeats}, closeAll, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		work, err := queueredis.NewQueue(client, cfg.WorkTopic)
		if err != nil {
			return Queues{}, nil, err
		}
		results, err := queueredis.NewQueue(client, cfg.ResultsTopic)
		if err != nil {
			return Queues{}, nil, err
		}
		crawlerBeats, err := queueredis.NewQueue(client, cfg.CrawlerBeatsTopic)
		if err != nil {
			return Queues{}, nil, err
		}
		indexerBeats, err := queueredis.NewQueue(client, cfg.IndexerBeatsTopic)
		if err != nil {
			return Queues{}, nil, err
		}
		closeAll := func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis client close failed", zap.Error(err))
			}
		}
		return Queues{Work: work, Results: results, CrawlerBeats: crawlerBeats, IndexerBeats: indexerBeats}, closeAll, nil

	default:
		return Queues{}, nil, fmt.Errorf("unknown queue provider %q", cfg.Provider)
	}
}

// NewBlobStore builds the configured blob store.
func NewBlobStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (crawl.BlobStore, func(), error) {
	switch cfg.Provider {
	case "memory":
		return storagememory.NewBlobStore(), func() {}, nil

	case "gcs":
		client, err := gcpstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("storage client: %w", err)
		}
		store, err := storagegcs.New(client, storagegcs.Config{Bucket: cfg.GCSBucket})
		if err != nil {
			return nil, nil, err
		}
		closeAll := func() {
			if err := client.Close(); err != nil {
				logger.Warn("storage client close failed", zap.Error(err))
			}
		}
		return store, closeAll, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// NewIndex builds the configured search index.
func NewIndex(ctx context.Context, cfg config.IndexConfig) (crawl.Index, func(), error) {
	switch cfg.Provider {
	case "memory":
		return index.NewMemory(), func() {}, nil

	case "postgres":
		idx, err := index.NewPostgres(ctx, index.PostgresConfig{
			DSN:   cfg.DSN,
			Table: cfg.Table,
		})
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown index provider %q", cfg.Provider)
	}
}
