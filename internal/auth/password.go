package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned on a failed password login. The message
// is identical for unknown emails and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLength = 8

// demoEmail identifies the shared demo account issued by the demo login.
const demoEmail = "demo@vestly.app"

// Register creates a password-based account. Unlike social sign-ups the
// email is unverified until confirmed.
func (r *Resolver) Register(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: string(hash),
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  now,
	}

	created, err := r.repo.CreateUser(ctx, user, DefaultNotificationPreferences(user.ID, now))
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &created, nil
}

// Login verifies a password against the stored hash.
func (r *Resolver) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := r.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user.LastLoginAt = time.Now()
	user.UpdatedAt = user.LastLoginAt
	if err := r.repo.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	return user, nil
}

// Demo finds or creates the shared demo account used by app-store review
// and product walkthroughs.
func (r *Resolver) Demo(ctx context.Context) (*User, error) {
	user, err := r.repo.FindUserByEmail(ctx, demoEmail)
	if err != nil {
		return nil, fmt.Errorf("find demo user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	now := time.Now()
	demo := User{
		ID:          uuid.New(),
		Email:       demoEmail,
		FirstName:   "Demo",
		LastName:    "Investor",
		IsVerified:  true,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	created, err := r.repo.CreateUser(ctx, demo, DefaultNotificationPreferences(demo.ID, now))
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return r.repo.FindUserByEmail(ctx, demoEmail)
		}
		return nil, fmt.Errorf("create demo user: %w", err)
	}
	return &created, nil
}
