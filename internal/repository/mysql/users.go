package mysql

import (
	"bidbot/internal/biddingerrors"
	model "bidbot/internal/models"
	"bidbot/internal/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	_ repository.AuctionDB = (*AuctionRepository)(nil)
	_ repository.UserStore = (*UserRepository)(nil)
)

// UserRepository implements repository.UserStore on MySQL
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a user repository over an open connection pool
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser stores a new user, rejecting duplicate emails
func (r *UserRepository) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	user.Email = repository.NormalizeEmail(user.Email)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.UserID, user.Username, user.Email, user.PasswordHash, user.CreatedAt.UTC(),
	)
	if mysqlErrNumber(err) == errDuplicateEntry {
		return model.User{}, fmt.Errorf("create user %s: %w", user.Email, biddingerrors.ErrEmailExists)
	}
	if err != nil {
		return model.User{}, storageErr("create user "+user.Email, err)
	}
	return user, nil
}

// GetUserByEmail looks a user up by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	key := repository.NormalizeEmail(email)

	var user model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?`, key,
	).Scan(&user.UserID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user %s: %w", key, biddingerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, storageErr("get user "+key, err)
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return storageErr("update password for user "+userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr("update password for user "+userID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update password for user %s: %w", userID, biddingerrors.ErrUserNotFound)
	}
	return nil
}
