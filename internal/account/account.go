package account

import (
	"bidbot/internal/biddingerrors"
	"bidbot/internal/clock"
	model "bidbot/internal/models"
	"bidbot/internal/notify"
	"bidbot/internal/repository"
	"bidbot/internal/session"
	"bidbot/utils"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// SignupRequest carries the details of a new account
type SignupRequest struct {
	Username string
	Email    string
	Password string
}

// Service registers users and manages their sessions
type Service struct {
	users    repository.UserStore
	sessions *session.Manager
	notifier notify.Notifier
	clock    clock.Clock
	cost     int
}

// Option configures a Service
type Option func(*Service)

// WithBcryptCost overrides the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock sets the time source for account creation timestamps
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// NewService creates an account service
func NewService(users repository.UserStore, sessions *session.Manager, notifier notify.Notifier, opts ...Option) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		notifier: notifier,
		clock:    clock.Real{},
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates an account and sends a welcome notification
func (s *Service) Signup(ctx context.Context, req SignupRequest) (model.User, error) {
	email := repository.NormalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	if username == "" || !strings.Contains(email, "@") {
		return model.User{}, fmt.Errorf("account: %w - username and a valid email are required", biddingerrors.ErrInvalidAccount)
	}
	if len(req.Password) < minPasswordLength {
		return model.User{}, fmt.Errorf("account: %w - password must have at least %d characters", biddingerrors.ErrInvalidAccount, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("account: failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, model.User{
		UserID:       utils.GenerateID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		return model.User{}, fmt.Errorf("account: failed to create user %s: %w", email, err)
	}

	if err := s.notifier.NotifyWelcome(ctx, user.Email); err != nil {
		utils.Warn("Welcome notification failed", map[string]any{"user": user.Email, "error": err.Error()})
	}

	utils.Info("User signed up", map[string]any{"user_id": user.UserID, "email": user.Email})
	return user, nil
}

// Login checks credentials and issues a session whose identity is the user's email
func (s *Service) Login(ctx context.Context, email, password string) (session.Session, model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, biddingerrors.ErrUserNotFound) {
		return session.Session{}, model.User{}, fmt.Errorf("account: %w", biddingerrors.ErrInvalidCredentials)
	}
	if err != nil {
		return session.Session{}, model.User{}, fmt.Errorf("account: failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return session.Session{}, model.User{}, fmt.Errorf("account: %w", biddingerrors.ErrInvalidCredentials)
	}

	sess, err := s.sessions.Issue(ctx, user.Email)
	if err != nil {
		return session.Session{}, model.User{}, fmt.Errorf("account: %w", err)
	}
	return sess, user, nil
}

// Logout revokes the session identified by token
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("account: %w", err)
	}
	return nil
}

// ResetPassword replaces the user's password with a random one and mails it
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account: failed to reset password: %w", err)
	}

	password, err := generatePassword()
	if err != nil {
		return fmt.Errorf("account: failed to generate password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("account: failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.UserID, string(hash)); err != nil {
		return fmt.Errorf("account: failed to store password: %w", err)
	}

	if err := s.notifier.NotifyPasswordReset(ctx, user.Email, password); err != nil {
		utils.Warn("Password reset notification failed", map[string]any{"user": user.Email, "error": err.Error()})
	}
	return nil
}

// generatePassword returns 16 random hex characters
func generatePassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
