// Package robots caches and enforces robots.txt policy per origin.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

// DefaultTTL is how long a cached rule set stays valid.
const DefaultTTL = time.Hour

const maxRobotsBody = 1 << 20

// Verdict is the outcome of a policy check for one URL.
type Verdict struct {
	Allowed bool
	// CrawlDelay is the origin's Crawl-delay directive, zero when absent.
	CrawlDelay time.Duration
}

type entry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool
}

// Cache holds per-origin robots rules with a TTL. Fetch failures and non-200
// responses are cached as allow-all entries for the same TTL, so a broken
// origin does not trigger a re-fetch storm.
type Cache struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	clock     crawl.Clock
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// NewCache builds a Cache with the given robots fetch timeout.
func NewCache(timeout time.Duration, userAgent string, clock crawl.Clock, logger *zap.Logger) *Cache {
	return &Cache{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		ttl:       DefaultTTL,
		clock:     clock,
		entries:   make(map[string]*entry),
		logger:    logger,
	}
}

// Check consults the cached rules for rawURL's origin, fetching robots.txt
// on a miss or after expiry. It fails open: a malformed URL or an origin
// whose robots.txt cannot be fetched is always allowed.
func (c *Cache) Check(ctx context.Context, rawURL string) Verdict {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return Verdict{Allowed: true}
	}
	origin := parsed.Scheme + "://" + parsed.Host

	e := c.lookup(origin)
	if e == nil {
		e = c.fetch(ctx, origin)
		c.store(origin, e)
	}

	if e.allowAll {
		return Verdict{Allowed: true}
	}
	group := e.data.FindGroup("*")
	if group == nil {
		return Verdict{Allowed: true}
	}
	p := parsed.Path
	if p == "" {
		p = "/"
	}
	return Verdict{
		Allowed:    group.Test(p),
		CrawlDelay: group.CrawlDelay,
	}
}

func (c *Cache) lookup(origin string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[origin]
	if !ok {
		return nil
	}
	if c.clock.Now().Sub(e.fetchedAt) >= c.ttl {
		return nil
	}
	return e
}

func (c *Cache) store(origin string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[origin] = e
}

func (c *Cache) fetch(ctx context.Context, origin string) *entry {
	now := c.clock.Now()
	data, err := c.fetchRules(ctx, origin)
	if err != nil {
		c.logger.Warn("robots fetch failed; failing open",
			zap.String("origin", origin),
			zap.Error(err),
		)
		return &entry{fetchedAt: now, allowAll: true}
	}
	return &entry{data: data, fetchedAt: now}
}

func (c *Cache) fetchRules(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close robots response body", zap.Error(cerr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("robots status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}
