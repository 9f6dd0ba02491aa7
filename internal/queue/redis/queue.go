// Package redis provides a queue backed by Redis lists.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

const pollTimeout = 5 * time.Second

// Queue is a Redis list queue using the reliable-queue pattern: Receive
// moves a message onto a per-queue processing list, and Ack removes it
// there. Messages left on the processing list after a consumer crash can be
// recovered by an external sweep.
type Queue struct {
	client *goredis.Client
	key    string
}

// NewQueue builds a Queue over the given list key.
func NewQueue(client *goredis.Client, key string) (*Queue, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("queue key is required")
	}
	return &Queue{client: client, key: key}, nil
}

// Send pushes a message body onto the list.
func (q *Queue) Send(ctx context.Context, body []byte) error {
	if err := q.client.LPush(ctx, q.key, body).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

// Receive blocks until a message arrives, long-polling in bounded windows so
// context cancellation is honored promptly.
func (q *Queue) Receive(ctx context.Context) (crawl.Message, error) {
	processing := q.key + ":processing"
	for {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("receive canceled: %w", ctx.Err())
		}
		body, err := q.client.BLMove(ctx, q.key, processing, "RIGHT", "LEFT", pollTimeout).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("blmove %s: %w", q.key, err)
		}
		return message{client: q.client, processing: processing, body: []byte(body)}, nil
	}
}

// Len reports the queue depth.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", q.key, err)
	}
	return n, nil
}

type message struct {
	client     *goredis.Client
	processing string
	body       []byte
}

func (m message) Body() []byte { return m.body }

// Ack removes the message from the processing list.
func (m message) Ack(ctx context.Context) error {
	if err := m.client.LRem(ctx, m.processing, 1, m.body).Err(); err != nil {
		return fmt.Errorf("lrem %s: %w", m.processing, err)
	}
	return nil
}
