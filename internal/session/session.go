package session

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/clock"
	"bidbot/utils"
	"context"
	"fmt"
	"sync"
	"time"
)

// Session binds an opaque token to a user identity until ExpiresAt
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions by token
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Save stores or replaces a session
func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

// Get returns the session for token
func (m *MemoryStore) Get(_ context.Context, token string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, biddingerrors.ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session; deleting an unknown token is not an error
func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// Manager issues and resolves sessions against a Store
type Manager struct {
	store Store
	clock clock.Clock
	ttl   time.Duration
}

// NewManager creates a manager whose sessions live for ttl
func NewManager(store Store, clk clock.Clock, ttl time.Duration) *Manager {
	return &Manager{store: store, clock: clk, ttl: ttl}
}

// Issue creates a new session for userID
func (m *Manager) Issue(ctx context.Context, userID string) (Session, error) {
	s := Session{
		Token:     utils.GenerateToken(),
		UserID:    userID,
		ExpiresAt: m.clock.Now().Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return Session{}, fmt.Errorf("session: failed to save session for %s: %w", userID, err)
	}
	return s, nil
}

// Resolve returns the live session for token. Expired sessions are removed.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, fmt.Errorf("session: %w - empty token", biddingerrors.ErrSessionNotFound)
	}

	s, err := m.store.Get(ctx, token)
	if err != nil {
		return Session{}, fmt.Errorf("session: resolve: %w", err)
	}

	if s.Expired(m.clock.Now()) {
		if err := m.store.Delete(ctx, token); err != nil {
			utils.Warn("Failed to delete expired session", map[string]any{"user_id": s.UserID, "error": err.Error()})
		}
		return Session{}, fmt.Errorf("session: %w", biddingerrors.ErrSessionExpired)
	}
	return s, nil
}

// Revoke ends the session for token
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if err := m.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}
	return nil
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
