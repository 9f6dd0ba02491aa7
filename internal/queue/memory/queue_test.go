package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueSendReceive(t *testing.T) {
	t.Parallel()

	q := NewQueue(4)
	require.NoError(t, q.Send(context.Background(), []byte("one")))
	require.NoError(t, q.Send(context.Background(), []byte("two")))
	require.Equal(t, 2, q.Len())

	msg, err := q.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("one"), msg.Body())
	require.NoError(t, msg.Ack(context.Background()))
}

func TestQueueReceiveHonorsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueSendBlocksWhenFull(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	require.NoError(t, q.Send(context.Background(), []byte("fill")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Send(ctx, []byte("overflow"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
