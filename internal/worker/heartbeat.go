package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sendHeartbeat(ctx)
		}
	}
}

func (w *Worker) sendHeartbeat(ctx context.Context) {
	crawled, uploaded, failed := w.counters()
	body, err := crawl.EncodeJSON(crawl.HeartbeatMessage{
		WorkerID:  w.id,
		Timestamp: w.clock.Now().Unix(),
		Status:    "alive",
		Crawled:   crawled,
		Uploaded:  uploaded,
		Failed:    failed,
	})
	if err != nil {
		w.logger.Error("encode heartbeat", zap.Error(err))
		return
	}
	if err := w.beats.Send(ctx, body); err != nil {
		w.logger.Warn("heartbeat send failed", zap.Error(err))
		return
	}
	w.logger.Debug("heartbeat sent",
		zap.Int64("crawled", crawled),
		zap.Int64("uploaded", uploaded),
		zap.Int64("failed", failed))
}
