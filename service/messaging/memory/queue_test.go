package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testPayload struct {
	ID    string
	Kind  string
	Count int
}

func TestQueue(t *testing.T) {
	config := DefaultConfig()
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[testPayload](config)

	ctx := context.Background()
	payload := testPayload{ID: "op-1", Kind: "shipping.place", Count: 3}

	err := queue.Publish(ctx, &payload)
	assert.NoError(t, err)
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, message)
	assert.Equal(t, 0, queue.Size())

	data := message.T()
	assert.Equal(t, payload.ID, data.ID)
	assert.Equal(t, payload.Kind, data.Kind)
	assert.Equal(t, payload.Count, data.Count)

	err = message.Ack()
	assert.NoError(t, err)

	// double ack is rejected
	err = message.Ack()
	assert.Error(t, err)
}

func TestQueueRetries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 1
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[testPayload](config)

	ctx := context.Background()
	payload := testPayload{ID: "op-retry", Kind: "shipping.place"}

	err := queue.Publish(ctx, &payload)
	assert.NoError(t, err)

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, message.Nack(nil))

	// the retry is requeued after the delay
	time.Sleep(20 * time.Millisecond)
	message, err = queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, message)

	// a second failure exceeds the limit and the message is dead-lettered
	assert.NoError(t, message.Nack(nil))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
}

func TestQueueContextCancellation(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := testPayload{ID: "op-ctx"}
	err := queue.Publish(ctx, &payload)
	assert.Error(t, err)

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelTimeout()
	_, err = queue.Consume(timeoutCtx)
	assert.Error(t, err)

	// queue remains usable after cancellation
	err = queue.Publish(context.Background(), &payload)
	assert.NoError(t, err)
	message, err := queue.Consume(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, message)
}
