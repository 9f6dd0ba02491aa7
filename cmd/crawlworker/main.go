// Package main runs one crawl worker against the shared work queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/bootstrap"
	"github.com/crawlfleet/crawlfleet/internal/config"
	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/fetch"
	"github.com/crawlfleet/crawlfleet/internal/logging"
	"github.com/crawlfleet/crawlfleet/internal/robots"
	"github.com/crawlfleet/crawlfleet/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	workerID := flag.String("id", "", "Worker identity (default: generated)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queues, closeQueues, err := bootstrap.NewQueues(ctx, cfg.Queue, logger.Named("queue"))
	if err != nil {
		logger.Fatal("queue init failed", zap.Error(err))
	}
	defer closeQueues()

	blobs, closeBlobs, err := bootstrap.NewBlobStore(ctx, cfg.Storage, logger.Named("storage"))
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}
	defer closeBlobs()

	clock := crawl.SystemClock{}
	robotsCache := robots.NewCache(
		time.Duration(cfg.Worker.RobotsTimeoutSeconds)*time.Second,
		cfg.Worker.UserAgent,
		clock,
		logger.Named("robots"),
	)
	fetcher := fetch.NewClient(
		time.Duration(cfg.Worker.FetchTimeoutSeconds)*time.Second,
		cfg.Worker.UserAgent,
		cfg.Worker.MaxRetries,
		logger.Named("fetch"),
	)

	w := worker.New(
		queues.Work,
		queues.Results,
		queues.CrawlerBeats,
		blobs,
		robotsCache,
		fetcher,
		clock,
		worker.Config{
			WorkerID:          *workerID,
			CrawlDelay:        time.Duration(cfg.Worker.CrawlDelaySeconds) * time.Second,
			HeartbeatInterval: time.Duration(cfg.Worker.HeartbeatIntervalSeconds) * time.Second,
			ContentType:       cfg.Worker.ContentType,
		},
		logger.Named("worker"),
	)

	w.Run(ctx)
}
