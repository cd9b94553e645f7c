package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/9ooDa/mopic/internal/apierr"
)

//go:generate mockgen -source=repository.go -destination=../mocks/user/mock_repository.go -package=mock_user

// Repository defines operations for managing users.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	// RecordSessionCompletion applies the completion side effects for date
	// within tx, locking the user row.
	RecordSessionCompletion(ctx context.Context, tx *sqlx.Tx, userID int64, date time.Time) (*User, error)
	// ResetDone clears the done flag of users who have not completed today.
	ResetDone(ctx context.Context, today time.Time) (int64, error)
}

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// FindByID returns the user with id.
func (r *DBRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.Errorf(apierr.ErrNotFound, "user %d not found", id)
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &u, nil
}

// FindByEmail returns the user registered with email.
func (r *DBRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, "SELECT * FROM users WHERE email = ?", email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.Errorf(apierr.ErrNotFound, "user %s not found", email)
		}
		return nil, fmt.Errorf("load user by email: %w", err)
	}
	return &u, nil
}

// Create inserts u and sets its ID.
func (r *DBRepository) Create(ctx context.Context, u *User) error {
	result, err := r.db.ExecContext(ctx, "INSERT INTO users (email, name) VALUES (?, ?)", u.Email, u.Name)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get user insert ID: %w", err)
	}
	u.ID = id
	return nil
}

// RecordSessionCompletion locks the user row, applies CompleteSession and
// persists the result. A completion already recorded for date is left as is.
func (r *DBRepository) RecordSessionCompletion(ctx context.Context, tx *sqlx.Tx, userID int64, date time.Time) (*User, error) {
	var u User
	if err := tx.GetContext(ctx, &u, "SELECT * FROM users WHERE id = ? FOR UPDATE", userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.Errorf(apierr.ErrNotFound, "user %d not found", userID)
		}
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}
	if !u.CompleteSession(date) {
		return &u, nil
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET streak = ?, done = ?, last_completed_on = ? WHERE id = ?",
		u.Streak, u.Done, u.LastCompletedOn, u.ID); err != nil {
		return nil, fmt.Errorf("update user %d: %w", userID, err)
	}
	return &u, nil
}

// ResetDone clears stale done flags and returns the number of users reset.
func (r *DBRepository) ResetDone(ctx context.Context, today time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET done = FALSE WHERE done = TRUE AND (last_completed_on IS NULL OR last_completed_on < ?)",
		today)
	if err != nil {
		return 0, fmt.Errorf("reset done flags: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count reset users: %w", err)
	}
	return n, nil
}
