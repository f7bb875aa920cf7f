package events

import (
	"bidbot/utils"
	"context"
	"sync"
	"time"
)

// Event types carried on the live feed
const (
	TypeBidAccepted   = "bid_accepted"
	TypeAuctionClosed = "auction_closed"
)

// BidEvent is one change to an item's bidding state
type BidEvent struct {
	Type      string    `json:"type"`
	ItemID    string    `json:"item_id"`
	BidderID  string    `json:"bidder_id,omitempty"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events to live subscribers
type Publisher interface {
	Publish(ctx context.Context, event BidEvent) error
}

// Subscription receives events for one item until cancelled
type Subscription struct {
	C      <-chan BidEvent
	ch     chan BidEvent
	itemID string
	hub    *Hub
	once   sync.Once
}

// Cancel detaches the subscription and closes its channel
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub fans events out to in-process subscribers, keyed by item.
// A subscriber that falls behind loses events rather than stalling publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{} // itemID -> subscriptions
	buffer int
}

// NewHub creates a hub whose subscriptions buffer up to buffer events
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers interest in an item's events
func (h *Hub) Subscribe(itemID string) *Subscription {
	ch := make(chan BidEvent, h.buffer)
	sub := &Subscription{C: ch, ch: ch, itemID: itemID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[itemID] == nil {
		h.subs[itemID] = make(map[*Subscription]struct{})
	}
	h.subs[itemID][sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[sub.itemID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.itemID)
		}
	}
	close(sub.ch)
}

// Publish delivers event to every subscriber of its item without blocking
func (h *Hub) Publish(_ context.Context, event BidEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.ItemID] {
		select {
		case sub.ch <- event:
		default:
			utils.Warn("Dropping live event for slow subscriber", map[string]any{
				"item_id": event.ItemID,
				"type":    event.Type,
			})
		}
	}
	return nil
}

// SubscriberCount returns the number of live subscriptions for an item
func (h *Hub) SubscriberCount(itemID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[itemID])
}
