package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
	"github.com/crawlfleet/crawlfleet/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeQueue records sends and can be primed to fail.
type fakeQueue struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
}

func (q *fakeQueue) Send(_ context.Context, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sendErr != nil {
		return q.sendErr
	}
	q.sent = append(q.sent, append([]byte(nil), body...))
	return nil
}

func (q *fakeQueue) Receive(context.Context) (crawl.Message, error) {
	return nil, errors.New("not implemented")
}

func (q *fakeQueue) sentBodies() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]byte, len(q.sent))
	copy(out, q.sent)
	return out
}

func (q *fakeQueue) failWith(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sendErr = err
}
