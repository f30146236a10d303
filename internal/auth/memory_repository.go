package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository stores users and sessions in process memory, ideal for
// local development or tests. It enforces the same email uniqueness the
// Postgres schema does.
type InMemoryRepository struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]User
	byEmail  map[string]uuid.UUID
	sessions map[uuid.UUID]Session
	prefs    map[uuid.UUID]NotificationPreferences
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:    make(map[uuid.UUID]User),
		byEmail:  make(map[string]uuid.UUID),
		sessions: make(map[uuid.UUID]Session),
		prefs:    make(map[uuid.UUID]NotificationPreferences),
	}
}

// FindUserByEmail returns the user for an email, matched case-insensitively.
func (r *InMemoryRepository) FindUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	user := r.users[id]
	return &user, nil
}

// FindUserByID returns the user for an id.
func (r *InMemoryRepository) FindUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// CreateUser stores the user and preferences atomically under the lock.
func (r *InMemoryRepository) CreateUser(_ context.Context, user User, prefs NotificationPreferences) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return User{}, ErrDuplicateEmail
	}

	r.users[user.ID] = user
	r.byEmail[key] = user.ID
	r.prefs[user.ID] = prefs
	return user, nil
}

// UpdateUser replaces the stored user.
func (r *InMemoryRepository) UpdateUser(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.ID] = user
	return nil
}

// NotificationPreferencesFor returns the stored preferences row; used by
// tests to assert the create-user transaction wrote both rows.
func (r *InMemoryRepository) NotificationPreferencesFor(userID uuid.UUID) (NotificationPreferences, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefs, ok := r.prefs[userID]
	return prefs, ok
}

// CreateSession stores a session.
func (r *InMemoryRepository) CreateSession(_ context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	return nil
}

// FindSession returns the session matching both id and owner.
func (r *InMemoryRepository) FindSession(_ context.Context, id, userID uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok || session.UserID != userID {
		return nil, nil
	}
	return &session, nil
}

// DeleteSession removes a session.
func (r *InMemoryRepository) DeleteSession(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// DeleteSessionsForUser removes every session owned by the user.
func (r *InMemoryRepository) DeleteSessionsForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
			count++
		}
	}
	return count, nil
}

// DeleteExpiredSessions removes all expired sessions.
func (r *InMemoryRepository) DeleteExpiredSessions(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var count int64
	for id, session := range r.sessions {
		if now.After(session.ExpiresAt) {
			delete(r.sessions, id)
			count++
		}
	}
	return count, nil
}
