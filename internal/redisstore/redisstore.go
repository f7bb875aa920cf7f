// Package redisstore keeps shared state in Redis so several server instances
// can run side by side: sessions, settlement markers and the live bid feed.
package redisstore

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/events"
	"bidbot/internal/session"
	"bidbot/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	settledKeyPrefix = "settled:"
	settledKeyTTL    = 30 * 24 * time.Hour

	// EventsChannel is the pub/sub channel carrying bid events
	EventsChannel = "auction_events"
)

// Connect creates a client and verifies the server answers
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return client, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("redis: %s: %w: %w", op, biddingerrors.ErrInternal, err)
}

// SessionStore implements session.Store with one key per token that expires
// together with the session
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a session store on client
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Save stores s until its expiry
func (r *SessionStore) Save(ctx context.Context, s session.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis: encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+s.Token, data, ttl).Err(); err != nil {
		return storageErr("save session", err)
	}
	return nil
}

// Get returns the session for token
func (r *SessionStore) Get(ctx context.Context, token string) (session.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Session{}, biddingerrors.ErrSessionNotFound
	}
	if err != nil {
		return session.Session{}, storageErr("get session", err)
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return session.Session{}, fmt.Errorf("redis: decode session: %w", err)
	}
	return s, nil
}

// Delete removes the session for token
func (r *SessionStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return storageErr("delete session", err)
	}
	return nil
}

// SettlementMarker records which items have been settled, shared across instances
type SettlementMarker struct {
	client *redis.Client
}

// NewSettlementMarker creates a marker on client
func NewSettlementMarker(client *redis.Client) *SettlementMarker {
	return &SettlementMarker{client: client}
}

// MarkSettled claims the settlement of itemID. It returns true for exactly one caller.
func (m *SettlementMarker) MarkSettled(ctx context.Context, itemID string) (bool, error) {
	ok, err := m.client.SetNX(ctx, settledKeyPrefix+itemID, 1, settledKeyTTL).Result()
	if err != nil {
		return false, storageErr("mark settled", err)
	}
	return ok, nil
}

// EventPublisher publishes bid events on the shared channel
type EventPublisher struct {
	client *redis.Client
}

// NewEventPublisher creates a publisher on client
func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// Publish sends event to every subscribed instance
func (p *EventPublisher) Publish(ctx context.Context, event events.BidEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: encode event: %w", err)
	}
	if err := p.client.Publish(ctx, EventsChannel, data).Err(); err != nil {
		return storageErr("publish event", err)
	}
	return nil
}

// EventRelay forwards events from the shared channel to a local publisher,
// typically the instance's websocket hub
type EventRelay struct {
	client *redis.Client
	local  events.Publisher
}

// NewEventRelay creates a relay delivering into local
func NewEventRelay(client *redis.Client, local events.Publisher) *EventRelay {
	return &EventRelay{client: client, local: local}
}

// Run relays events until ctx is cancelled
func (r *EventRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, EventsChannel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed before relaying
	if _, err := pubsub.Receive(ctx); err != nil {
		return storageErr("subscribe", err)
	}
	ch := pubsub.Channel()

	utils.Info("Subscribed to auction events", map[string]any{"channel": EventsChannel})

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis: subscription to %s closed", EventsChannel)
			}
			var event events.BidEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				utils.Error("Failed to parse event", map[string]any{"payload": msg.Payload, "error": err.Error()})
				continue
			}
			if err := r.local.Publish(ctx, event); err != nil {
				utils.Error("Failed to relay event", map[string]any{"item_id": event.ItemID, "error": err.Error()})
			}

		case <-ctx.Done():
			utils.Info("Event relay stopped", nil)
			return ctx.Err()
		}
	}
}
