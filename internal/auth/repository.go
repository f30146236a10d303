package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrDuplicateEmail is returned by CreateUser when the store's email
// uniqueness constraint fires. The resolver retries it as a lookup.
var ErrDuplicateEmail = errors.New("email already registered")

// Repository defines the interface for user and session persistence.
type Repository interface {
	// User operations
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	// CreateUser inserts the user and its notification-preference row as a
	// single logical operation; neither survives without the other.
	CreateUser(ctx context.Context, user User, prefs NotificationPreferences) (User, error)
	UpdateUser(ctx context.Context, user User) error

	// Session operations
	CreateSession(ctx context.Context, session Session) error
	FindSession(ctx context.Context, id, userID uuid.UUID) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}
