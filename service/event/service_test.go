package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateflow/gateflow/service/messaging/memory"
)

type orderPlaced struct {
	OrderID string `json:"orderId"`
}

func newMemoryService(t *testing.T) *Service {
	t.Helper()
	svc, err := New("memory", WithNewMemoryQueueConfig(func(name string) memory.Config {
		return memory.DefaultConfig()
	}))
	require.NoError(t, err)
	return svc
}

func TestNew_Validation(t *testing.T) {
	_, err := New("memory")
	assert.Error(t, err)

	_, err = New("fs")
	assert.Error(t, err)

	_, err = New("kafka")
	assert.Error(t, err)
}

func TestPublisherOf_RoundTrip(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	publisher, err := PublisherOf[orderPlaced](svc)
	require.NoError(t, err)

	sent := NewEvent(&Context{EventType: "order.placed", Service: "shipping"}, orderPlaced{OrderID: "ORD-3-AUTO"})
	require.NoError(t, publisher.Publish(ctx, sent))

	received, err := publisher.Consume(ctx)
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Equal(t, "ORD-3-AUTO", received.Data.OrderID)
	assert.Equal(t, "order.placed", received.Context.EventType)

	// the same type reuses the same publisher
	again, err := PublisherOf[orderPlaced](svc)
	require.NoError(t, err)
	assert.Same(t, publisher, again)
}

func TestSetListenerOf(t *testing.T) {
	svc := newMemoryService(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	err := SetListenerOf(svc, func(e *Event[orderPlaced]) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Data.OrderID)
	})
	require.NoError(t, err)

	publisher, err := PublisherOf[orderPlaced](svc)
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, NewEvent(nil, orderPlaced{OrderID: "ORD-10-HUMAN"})))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == "ORD-10-HUMAN"
	}, time.Second, 10*time.Millisecond)
}
