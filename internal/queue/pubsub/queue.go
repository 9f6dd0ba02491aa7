// Package pubsub provides a queue backed by Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/crawlfleet/crawlfleet/internal/crawl"
)

// Queue adapts one Pub/Sub topic/subscription pair to the crawl.Queue
// contract. Pub/Sub redelivers unacked messages, which carries the
// at-least-once guarantee the consumers are written against.
type Queue struct {
	topic  *gcppubsub.Topic
	sub    *gcppubsub.Subscription
	logger *zap.Logger

	startOnce  sync.Once
	stop       context.CancelFunc
	deliveries chan *gcppubsub.Message
}

// NewQueue wires a Queue to an existing Pub/Sub client. The subscription may
// be empty for send-only queues (workers publishing heartbeats or results).
func NewQueue(client *gcppubsub.Client, topicID, subscriptionID string, logger *zap.Logger) (*Queue, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicID == "" {
		return nil, fmt.Errorf("topic id is required")
	}
	q := &Queue{
		topic:      client.Topic(topicID),
		logger:     logger,
		deliveries: make(chan *gcppubsub.Message),
	}
	if subscriptionID != "" {
		q.sub = client.Subscription(subscriptionID)
	}
	return q, nil
}

// Send publishes a message and waits for the server acknowledgement, so a
// broker failure surfaces to the caller instead of disappearing into a
// background batch.
func (q *Queue) Send(ctx context.Context, body []byte) error {
	result := q.topic.Publish(ctx, &gcppubsub.Message{Data: body})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", q.topic.ID(), err)
	}
	return nil
}

// Receive returns the next delivery from the subscription. The streaming
// pull is started on first use and runs until Close.
func (q *Queue) Receive(ctx context.Context) (crawl.Message, error) {
	if q.sub == nil {
		return nil, fmt.Errorf("queue %s has no subscription configured", q.topic.ID())
	}
	q.startOnce.Do(q.startPull)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("receive canceled: %w", ctx.Err())
	case msg := <-q.deliveries:
		return message{msg: msg}, nil
	}
}

func (q *Queue) startPull() {
	pullCtx, cancel := context.WithCancel(context.Background())
	q.stop = cancel
	go func() {
		err := q.sub.Receive(pullCtx, func(_ context.Context, msg *gcppubsub.Message) {
			select {
			case q.deliveries <- msg:
			case <-pullCtx.Done():
				msg.Nack()
			}
		})
		if err != nil && pullCtx.Err() == nil {
			q.logger.Error("pubsub receive stopped", zap.String("subscription", q.sub.ID()), zap.Error(err))
		}
	}()
}

// Close stops the streaming pull and the topic's publish goroutines.
func (q *Queue) Close() {
	if q.stop != nil {
		q.stop()
	}
	q.topic.Stop()
}

type message struct {
	msg *gcppubsub.Message
}

func (m message) Body() []byte { return m.msg.Data }

func (m message) Ack(context.Context) error {
	m.msg.Ack()
	return nil
}
