package repository

import (
	"bidbot/internal/biddingerrors"
	model "bidbot/internal/models"
	"context"
	"fmt"
	"strings"
	"sync"
)

// UserStore persists registered accounts keyed by email
type UserStore interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// MemoryUserRepo is a concurrency-safe in-memory implementation of UserStore
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byEmail map[string]model.User // key: normalized email -> value: user
	byID    map[string]string     // key: userID -> value: normalized email
}

// NewMemoryUserRepo creates an empty user repository
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byEmail: make(map[string]model.User),
		byID:    make(map[string]string),
	}
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user, rejecting duplicate emails
func (r *MemoryUserRepo) CreateUser(_ context.Context, user model.User) (model.User, error) {
	key := NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[key]; exists {
		return model.User{}, fmt.Errorf("create user %s: %w", key, biddingerrors.ErrEmailExists)
	}
	user.Email = key
	r.byEmail[key] = user
	r.byID[user.UserID] = key
	return user, nil
}

// GetUserByEmail looks a user up by email
func (r *MemoryUserRepo) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	key := NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[key]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", key, biddingerrors.ErrUserNotFound)
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash
func (r *MemoryUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byID[userID]
	if !ok {
		return fmt.Errorf("update password for user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	user := r.byEmail[key]
	user.PasswordHash = passwordHash
	r.byEmail[key] = user
	return nil
}
