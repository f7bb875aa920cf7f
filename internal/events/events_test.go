package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHub_PublishToItemSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub(4)
	lamp := hub.Subscribe("lamp")
	chair := hub.Subscribe("chair")
	defer chair.Cancel()

	event := BidEvent{Type: TypeBidAccepted, ItemID: "lamp", BidderID: "a@example.com", Amount: 150, Timestamp: time.Now()}
	require.NoError(t, hub.Publish(context.Background(), event))

	select {
	case got := <-lamp.C:
		require.Equal(t, event, got)
	case <-time.After(time.Second):
		t.Fatal("expected event on lamp subscription")
	}

	select {
	case got := <-chair.C:
		t.Fatalf("unexpected event for chair: %+v", got)
	default:
	}

	lamp.Cancel()
	lamp.Cancel()
	_, open := <-lamp.C
	require.False(t, open)
	require.Equal(t, 0, hub.SubscriberCount("lamp"))
	require.Equal(t, 1, hub.SubscriberCount("chair"))
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	t.Parallel()

	hub := NewHub(2)
	sub := hub.Subscribe("lamp")
	defer sub.Cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(context.Background(), BidEvent{Type: TypeBidAccepted, ItemID: "lamp", Amount: float64(100 + i)}))
	}

	require.Len(t, sub.C, 2)
	first := <-sub.C
	require.Equal(t, 100.0, first.Amount)
}
