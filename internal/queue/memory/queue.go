// Package memory provides a queue implementation for local development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

// Queue is a bounded in-memory queue with context-aware operations. Delivery
// is effectively at-most-once (a popped message is gone), which is fine for
// the dev transport; the durable transports carry the at-least-once contract.
type Queue struct {
	ch      chan []byte
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan []byte, capacity),
	}
}

// Send pushes a message body into the queue or returns if the context ends.
func (q *Queue) Send(ctx context.Context, body []byte) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("send canceled: %w", ctx.Err())
	case q.ch <- body:
		return nil
	}
}

// Receive pops the next message, respecting context cancellation.
func (q *Queue) Receive(ctx context.Context) (crawl.Message, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("receive canceled: %w", ctx.Err())
	case body, ok := <-q.ch:
		if !ok {
			return nil, errors.New("queue closed")
		}
		return message{body: body}, nil
	}
}

// Len reports the number of buffered messages (queue depth telemetry).
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}

type message struct {
	body []byte
}

func (m message) Body() []byte { return m.body }

// Ack is a no-op; popping from the channel already removed the message.
func (m message) Ack(context.Context) error { return nil }
