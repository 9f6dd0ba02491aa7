// Package main runs one index worker, draining the blob store into the
// search index.
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
	"github.com/crawlfleet/crawlfleet/internal/indexer"
	"github.com/crawlfleet/crawlfleet/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	indexerID := flag.String("id", "", "Indexer identity (default: generated)")
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

	idx, closeIndex, err := bootstrap.NewIndex(ctx, cfg.Index)
	if err != nil {
		logger.Fatal("index init failed", zap.Error(err))
	}
	defer closeIndex()

	ix := indexer.New(
		blobs,
		idx,
		queues.IndexerBeats,
		crawl.SystemClock{},
		indexer.Config{
			IndexerID:         *indexerID,
			SweepInterval:     time.Duration(cfg.Worker.IndexIntervalSeconds) * time.Second,
			HeartbeatInterval: time.Duration(cfg.Worker.HeartbeatIntervalSeconds) * time.Second,
		},
		logger.Named("indexer"),
	)

	ix.Run(ctx)
}
