package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// pqUniqueViolation is the Postgres error code for a unique constraint hit.
const pqUniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindUserByEmail looks up a user by email, case-insensitively.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, first_name, last_name, avatar_url, auth_provider, provider_user_id,
		       COALESCE(password_hash, '') AS password_hash, is_verified, created_at, updated_at, last_login_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toUser(), nil
}

// FindUserByID looks up a user by primary key.
func (r *PostgresRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const query = `
		SELECT id, email, first_name, last_name, avatar_url, auth_provider, provider_user_id,
		       COALESCE(password_hash, '') AS password_hash, is_verified, created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toUser(), nil
}

// CreateUser inserts the user and its notification preferences in one
// transaction. A unique-index hit on email maps to ErrDuplicateEmail.
func (r *PostgresRepository) CreateUser(ctx context.Context, user User, prefs NotificationPreferences) (User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertUser = `
		INSERT INTO users (id, email, first_name, last_name, avatar_url, auth_provider, provider_user_id,
		                   password_hash, is_verified, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12)
	`
	if _, err := tx.ExecContext(ctx, insertUser,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.AvatarURL,
		user.AuthProvider,
		user.ProviderUserID,
		user.PasswordHash,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLoginAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}

	const insertPrefs = `
		INSERT INTO notification_preferences (user_id, push_enabled, email_enabled, price_alerts, social_activity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, insertPrefs,
		prefs.UserID,
		prefs.PushEnabled,
		prefs.EmailEnabled,
		prefs.PriceAlerts,
		prefs.SocialActivity,
		prefs.CreatedAt,
		prefs.UpdatedAt,
	); err != nil {
		return User{}, err
	}

	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("commit: %w", err)
	}
	return user, nil
}

// UpdateUser writes back all mutable user fields.
func (r *PostgresRepository) UpdateUser(ctx context.Context, user User) error {
	const query = `
		UPDATE users
		SET first_name = $2, last_name = $3, avatar_url = $4, auth_provider = $5,
		    provider_user_id = $6, password_hash = NULLIF($7, ''), is_verified = $8,
		    updated_at = $9, last_login_at = $10
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.AvatarURL,
		user.AuthProvider,
		user.ProviderUserID,
		user.PasswordHash,
		user.IsVerified,
		user.UpdatedAt,
		user.LastLoginAt,
	)
	return err
}

// CreateSession inserts a new session row.
func (r *PostgresRepository) CreateSession(ctx context.Context, session Session) error {
	const query = `
		INSERT INTO user_sessions (id, user_id, opaque_token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.OpaqueToken,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

// FindSession looks up a session by its id and owning user.
func (r *PostgresRepository) FindSession(ctx context.Context, id, userID uuid.UUID) (*Session, error) {
	const query = `
		SELECT id, user_id, opaque_token, expires_at, created_at
		FROM user_sessions
		WHERE id = $1 AND user_id = $2
	`

	var row sessionRow
	if err := r.db.GetContext(ctx, &row, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toSession(), nil
}

// DeleteSession removes a session row.
func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM user_sessions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteSessionsForUser removes every session owned by the user.
func (r *PostgresRepository) DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE user_id = $1`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteExpiredSessions removes all expired sessions.
func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// userRow is a database row representation of User.
type userRow struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	FirstName      string    `db:"first_name"`
	LastName       string    `db:"last_name"`
	AvatarURL      string    `db:"avatar_url"`
	AuthProvider   string    `db:"auth_provider"`
	ProviderUserID string    `db:"provider_user_id"`
	PasswordHash   string    `db:"password_hash"`
	IsVerified     bool      `db:"is_verified"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	LastLoginAt    time.Time `db:"last_login_at"`
}

func (r *userRow) toUser() *User {
	return &User{
		ID:             r.ID,
		Email:          r.Email,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		AvatarURL:      r.AvatarURL,
		AuthProvider:   r.AuthProvider,
		ProviderUserID: r.ProviderUserID,
		PasswordHash:   r.PasswordHash,
		IsVerified:     r.IsVerified,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		LastLoginAt:    r.LastLoginAt,
	}
}

// sessionRow is a database row representation of Session.
type sessionRow struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	OpaqueToken string    `db:"opaque_token"`
	ExpiresAt   time.Time `db:"expires_at"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *sessionRow) toSession() *Session {
	return &Session{
		ID:          r.ID,
		UserID:      r.UserID,
		OpaqueToken: r.OpaqueToken,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
	}
}
