package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub1, err := b.Subscribe(ctx)
	require.NoError(t, err)
	sub2, err := b.Subscribe(ctx)
	require.NoError(t, err)

	b.Publish(Event{Type: EventHeartbeat})

	select {
	case ev := <-sub1.C():
		assert.Equal(t, EventHeartbeat, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("sub1 never received event")
	}
	select {
	case ev := <-sub2.C():
		assert.Equal(t, EventHeartbeat, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("sub2 never received event")
	}
}

func TestBroadcasterDropsOnFullBufferRatherThanBlocking(t *testing.T) {
	b := NewBroadcaster(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		b.Publish(Event{Type: EventHeartbeat})
		b.Publish(Event{Type: EventStopped}) // buffer full: dropped, not blocked
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}

	ev := <-sub.C()
	assert.Equal(t, EventHeartbeat, ev.Type)
}

func TestBroadcasterCloseClosesSubscriptions(t *testing.T) {
	b := NewBroadcaster(1)
	sub, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, b.Close())

	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	b := NewBroadcaster(1)
	sub, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
}
