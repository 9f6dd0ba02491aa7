package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/coordinator"
	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/metrics"
	queuememory "github.com/crawlfleet/crawlfleet/internal/queue/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func newTestServer(t *testing.T) (*Server, *coordinator.Coordinator) {
	t.Helper()

	work := queuememory.NewQueue(16)
	results := queuememory.NewQueue(16)
	crawlerBeats := queuememory.NewQueue(16)
	indexerBeats := queuememory.NewQueue(16)

	clock := crawl.SystemClock{}
	tracker := coordinator.NewTracker(work, clock, 180*time.Second, zap.NewNop())
	frontier := coordinator.NewFrontier(work, tracker, zap.NewNop())
	liveness := coordinator.NewLiveness(clock, 90*time.Second, 300*time.Second, zap.NewNop())
	coord := coordinator.New(frontier, tracker, liveness, results, crawlerBeats, indexerBeats,
		coordinator.Config{}, zap.NewNop())

	return NewServer(coord, zap.NewNop()), coord
}

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestGetFleet(t *testing.T) {
	t.Parallel()

	srv, coord := newTestServer(t)
	coord.Liveness().Observe(crawl.RoleCrawler, crawl.HeartbeatMessage{WorkerID: "c1", Crawled: 4})
	coord.Liveness().Observe(crawl.RoleIndexer, crawl.HeartbeatMessage{IndexerID: "i1", Indexed: 2})
	coord.Liveness().Classify()

	rec := doGet(t, srv, "/v1/fleet")
	require.Equal(t, http.StatusOK, rec.Code)

	var body fleetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, crawl.RoleCounts{Active: 1}, body.Counts[crawl.RoleCrawler])
	require.Equal(t, crawl.RoleCounts{Active: 1}, body.Counts[crawl.RoleIndexer])
	require.Len(t, body.Workers, 2)
	require.Equal(t, "c1", body.Workers[0].WorkerID)
	require.Equal(t, int64(4), body.Workers[0].Crawled)
}

func TestGetTasks(t *testing.T) {
	t.Parallel()

	srv, coord := newTestServer(t)
	coord.Tracker().Record("http://example.com/a", 0, 1, false)
	coord.Tracker().Record("http://example.com/b", 0, 1, false)
	coord.Tracker().MarkDone("http://example.com/a")

	rec := doGet(t, srv, "/v1/tasks")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats coordinator.TrackerStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.Counts[crawl.TaskDone])
	require.Equal(t, 1, stats.Counts[crawl.TaskQueued])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := doGet(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
