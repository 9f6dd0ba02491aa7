package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestCheckDisallowedPath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/robots.txt", r.URL.Path)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\nCrawl-delay: 2\n"))
	}))
	defer srv.Close()

	cache := NewCache(time.Second, "test-bot", &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	v := cache.Check(context.Background(), srv.URL+"/private/page")
	require.False(t, v.Allowed)

	v = cache.Check(context.Background(), srv.URL+"/public/page")
	require.True(t, v.Allowed)
	require.Equal(t, 2*time.Second, v.CrawlDelay)
}

func TestCheckFailsOpenOnFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := NewCache(time.Second, "test-bot", &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	for _, path := range []string{"/a", "/private/b", "/"} {
		v := cache.Check(context.Background(), srv.URL+path)
		require.True(t, v.Allowed, "fail-open must allow %s", path)
	}
}

func TestCheckCachesUntilTTL(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow:\n"))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	cache := NewCache(time.Second, "test-bot", clock, zap.NewNop())

	cache.Check(context.Background(), srv.URL+"/a")
	cache.Check(context.Background(), srv.URL+"/b")
	require.Equal(t, int64(1), fetches.Load())

	// Expiry forces a wholesale re-fetch.
	clock.now = clock.now.Add(DefaultTTL)
	cache.Check(context.Background(), srv.URL+"/c")
	require.Equal(t, int64(2), fetches.Load())
}

func TestCheckErrorEntryCachedForTTL(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cache := NewCache(time.Second, "test-bot", &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	cache.Check(context.Background(), srv.URL+"/a")
	cache.Check(context.Background(), srv.URL+"/b")
	require.Equal(t, int64(1), fetches.Load(), "failed fetch must be cached, not retried per check")
}

func TestCheckMalformedURLAllowed(t *testing.T) {
	t.Parallel()

	cache := NewCache(time.Second, "test-bot", crawl.SystemClock{}, zap.NewNop())
	v := cache.Check(context.Background(), "http://[broken")
	require.True(t, v.Allowed)
}
