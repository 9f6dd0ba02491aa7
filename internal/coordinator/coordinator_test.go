package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
	queuememory "github.com/crawlfleet/crawlfleet/internal/queue/memory"
)

func newRunningCoordinator(t *testing.T) (*Coordinator, *queuememory.Queue, *queuememory.Queue, *queuememory.Queue, context.CancelFunc) {
	t.Helper()

	work := queuememory.NewQueue(64)
	results := queuememory.NewQueue(64)
	crawlerBeats := queuememory.NewQueue(64)
	indexerBeats := queuememory.NewQueue(64)

	clock := crawl.SystemClock{}
	tracker := NewTracker(work, clock, 180*time.Second, zap.NewNop())
	frontier := NewFrontier(work, tracker, zap.NewNop())
	liveness := NewLiveness(clock, 90*time.Second, 300*time.Second, zap.NewNop())

	coord := New(frontier, tracker, liveness, results, crawlerBeats, indexerBeats, Config{
		SweepInterval:    10 * time.Millisecond,
		LivenessInterval: 10 * time.Millisecond,
		StatsInterval:    10 * time.Millisecond,
		ErrorBackoff:     10 * time.Millisecond,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go coord.Run(ctx)
	t.Cleanup(cancel)
	return coord, work, results, crawlerBeats, cancel
}

func TestCoordinatorDrainsHeartbeats(t *testing.T) {
	t.Parallel()

	coord, _, _, crawlerBeats, _ := newRunningCoordinator(t)

	body, err := crawl.EncodeJSON(crawl.HeartbeatMessage{
		WorkerID:  "crawler-1",
		Timestamp: time.Now().Unix(),
		Status:    "alive",
		Crawled:   2,
	})
	require.NoError(t, err)
	require.NoError(t, crawlerBeats.Send(context.Background(), body))

	require.Eventually(t, func() bool {
		workers := coord.Liveness().Workers()
		return len(workers) == 1 && workers[0].Crawled == 2
	}, time.Second, 10*time.Millisecond)
}

func TestCoordinatorToleratesMalformedHeartbeat(t *testing.T) {
	t.Parallel()

	coord, _, _, crawlerBeats, _ := newRunningCoordinator(t)

	require.NoError(t, crawlerBeats.Send(context.Background(), []byte("{not json")))
	body, err := crawl.EncodeJSON(crawl.HeartbeatMessage{WorkerID: "crawler-2", Status: "alive"})
	require.NoError(t, err)
	require.NoError(t, crawlerBeats.Send(context.Background(), body))

	require.Eventually(t, func() bool {
		return len(coord.Liveness().Workers()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCoordinatorResultMarksDoneAndExpandsLinks(t *testing.T) {
	t.Parallel()

	coord, work, results, _, _ := newRunningCoordinator(t)

	accepted := coord.Frontier().Submit(context.Background(), []string{"example.com/a"}, 1, true)
	require.Equal(t, 1, accepted)

	// The worker's side of the exchange: consume the work item, report back.
	msg, err := work.Receive(context.Background())
	require.NoError(t, err)
	var item crawl.WorkMessage
	require.NoError(t, crawl.DecodeJSON(msg.Body(), &item))
	require.Equal(t, "http://example.com/a", item.URL)

	body, err := crawl.EncodeJSON(crawl.ResultMessage{
		URL:            item.URL,
		Depth:          item.Depth,
		DepthLimit:     item.DepthLimit,
		RestrictDomain: item.RestrictDomain,
		Title:          "A",
		Text:           "text",
		Links:          []string{"http://example.com/b"},
	})
	require.NoError(t, err)
	require.NoError(t, results.Send(context.Background(), body))

	require.Eventually(t, func() bool {
		done, ok := coord.Tracker().Get("http://example.com/a")
		if !ok || done.Status != crawl.TaskDone {
			return false
		}
		// The discovered link re-entered the frontier at depth 1.
		next, ok := coord.Tracker().Get("http://example.com/b")
		return ok && next.Depth == 1 && next.Status == crawl.TaskQueued
	}, time.Second, 10*time.Millisecond)
}

func TestCoordinatorResultAtDepthLimitStops(t *testing.T) {
	t.Parallel()

	coord, _, results, _, _ := newRunningCoordinator(t)

	coord.Frontier().SubmitAt(context.Background(), []string{"http://example.com/deep"}, 1, 1, false)

	body, err := crawl.EncodeJSON(crawl.ResultMessage{
		URL:        "http://example.com/deep",
		Depth:      1,
		DepthLimit: 1,
		Links:      []string{"http://example.com/deeper"},
	})
	require.NoError(t, err)
	require.NoError(t, results.Send(context.Background(), body))

	require.Eventually(t, func() bool {
		item, ok := coord.Tracker().Get("http://example.com/deep")
		return ok && item.Status == crawl.TaskDone
	}, time.Second, 10*time.Millisecond)

	_, ok := coord.Tracker().Get("http://example.com/deeper")
	require.False(t, ok, "links past the depth limit must not be scheduled")
}
