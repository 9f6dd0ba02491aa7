// Package main runs the crawl coordinator: frontier, task tracker, liveness
// monitor, and the status HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/api"
	"github.com/crawlfleet/crawlfleet/internal/bootstrap"
	"github.com/crawlfleet/crawlfleet/internal/config"
	"github.com/crawlfleet/crawlfleet/internal/coordinator"
	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/logging"
	"github.com/crawlfleet/crawlfleet/internal/metrics"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
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
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queues, closeQueues, err := bootstrap.NewQueues(ctx, cfg.Queue, logger.Named("queue"))
	if err != nil {
		logger.Fatal("queue init failed", zap.Error(err))
	}
	defer closeQueues()

	clock := crawl.SystemClock{}
	tracker := coordinator.NewTracker(queues.Work, clock, cfg.TaskTimeout(), logger.Named("tracker"))
	frontier := coordinator.NewFrontier(queues.Work, tracker, logger.Named("frontier"))
	liveness := coordinator.NewLiveness(
		clock,
		time.Duration(cfg.Coordinator.InactiveAfterSeconds)*time.Second,
		time.Duration(cfg.Coordinator.ForgetAfterSeconds)*time.Second,
		logger.Named("liveness"),
	)
	coord := coordinator.New(
		frontier,
		tracker,
		liveness,
		queues.Results,
		queues.CrawlerBeats,
		queues.IndexerBeats,
		coordinator.Config{
			SweepInterval:    cfg.SweepInterval(),
			LivenessInterval: time.Duration(cfg.Coordinator.LivenessIntervalSeconds) * time.Second,
			StatsInterval:    time.Duration(cfg.Coordinator.StatsIntervalSeconds) * time.Second,
			ErrorBackoff:     time.Duration(cfg.Coordinator.ErrorBackoffSeconds) * time.Second,
		},
		logger.Named("coordinator"),
	)

	if len(cfg.Coordinator.Seeds) > 0 {
		accepted := frontier.Submit(ctx, cfg.Coordinator.Seeds, cfg.Coordinator.DepthLimit, cfg.Coordinator.RestrictDomain)
		logger.Info("seeds submitted",
			zap.Int("submitted", len(cfg.Coordinator.Seeds)),
			zap.Int("accepted", accepted),
		)
	}

	apiServer := api.NewServer(coord, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("coordinator started")
		coord.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
