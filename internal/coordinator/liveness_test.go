package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

const (
	inactiveAfter = 90 * time.Second
	forgetAfter   = 300 * time.Second
)

func newTestLiveness(clock crawl.Clock) *Liveness {
	return NewLiveness(clock, inactiveAfter, forgetAfter, zap.NewNop())
}

func TestClassifyActiveWithinThreshold(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	l := newTestLiveness(clock)

	l.Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{WorkerID: "c1", Status: "alive", Crawled: 3})

	clock.Advance(inactiveAfter)
	counts := l.Classify()
	require.Equal(t, crawl.RoleCounts{Active: 1}, counts[crawl.RoleCrawler])

	clock.Advance(time.Second)
	counts = l.Classify()
	require.Equal(t, crawl.RoleCounts{Inactive: 1}, counts[crawl.RoleCrawler])
}

func TestHeartbeatRevivesInactiveWorker(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	l := newTestLiveness(clock)

	l.Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{WorkerID: "c1"})
	clock.Advance(inactiveAfter + time.Second)
	require.Equal(t, crawl.RoleCounts{Inactive: 1}, l.Classify()[crawl.RoleCrawler])

	l.Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{WorkerID: "c1"})
	require.Equal(t, crawl.RoleCounts{Active: 1}, l.Classify()[crawl.RoleCrawler])
}

func TestClassifyForgetsLongSilentWorkers(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	l := newTestLiveness(clock)

	l.Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{WorkerID: "c1"})
	l.Observe(crawl.RoleIndexer, crawl.HeartbeatMessage{IndexerID: "i1", Indexed: 7})

	clock.Advance(forgetAfter + time.Second)
	counts := l.Classify()
	require.Empty(t, counts)
	require.Empty(t, l.Workers())
}

func TestObserveUpsertsCounters(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	l := newTestLiveness(clock)

	l.Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{WorkerID: "c1", Crawled: 1, Uploaded: 1})
	l.Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{WorkerID: "c1", Crawled: 5, Uploaded: 4, Failed: 1})

	workers := l.Workers()
	require.Len(t, workers, 1)
	require.Equal(t, int64(5), workers[0].Crawled)
	require.Equal(t, int64(4), workers[0].Uploaded)
	require.Equal(t, int64(1), workers[0].Failed)
}

func TestObserveIgnoresMissingID(t *testing.T) {
	t.Parallel()

	l := newTestLiveness(newFakeClock(time.Unix(1000, 0)))
	l.Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{Status: "alive"})
	require.Empty(t, l.Workers())
}

func TestClassifyAggregatesPerRole(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Unix(1000, 0))
	l := newTestLiveness(clock)

	l.Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{WorkerID: "c1"})
	clock.Advance(inactiveAfter + time.Second)
	l.Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{WorkerID: "c2"})
	l.Observe(crawl.RoleIndexer, crawl.HeartbeatMessage{IndexerID: "i1"})

	counts := l.Classify()
	require.Equal(t, crawl.RoleCounts{Active: 1, Inactive: 1}, counts[crawl.RoleCrawler])
	require.Equal(t, crawl.RoleCounts{Active: 1}, counts[crawl.RoleIndexer])
}
