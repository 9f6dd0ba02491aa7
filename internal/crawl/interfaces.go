package crawl

import (
	"context"
	"time"
)

// Queue is an at-least-once message transport. Consumers must tolerate
// duplicate delivery and only Ack a message once it has been fully handled.
type Queue interface {
	Send(ctx context.Context, body []byte) error
	// Receive blocks until a message arrives or the context ends.
	Receive(ctx context.Context) (Message, error)
}

// Message is a single queue delivery. Ack removes it from the transport;
// an unacked message is eventually redelivered.
type Message interface {
	Body() []byte
	Ack(ctx context.Context) error
}

// BlobStore is a key/value byte store with per-object metadata.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (Object, error)
	List(ctx context.Context) ([]string, error)
}

// Index is the document upsert + query surface of the search collaborator.
type Index interface {
	Upsert(ctx context.Context, doc Document) error
	Query(ctx context.Context, text string, limit int) ([]Hit, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }
