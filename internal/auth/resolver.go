package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Resolver merges verified provider identities into the local user store.
type Resolver struct {
	repo Repository
}

// NewResolver creates a Resolver backed by repo.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve finds or creates the user for a verified identity and returns it
// together with whether it was newly created.
//
// Emails are matched case-insensitively. Returning users get their provider
// linkage and last login refreshed; profile fields are overwritten only
// when the new identity actually supplies them. Two racing callbacks for
// the same new email are settled by the store's uniqueness constraint: the
// loser of the insert retries as a lookup-and-update.
func (r *Resolver) Resolve(ctx context.Context, identity Identity) (*User, bool, error) {
	email := normalizeEmail(identity.Email)
	if email == "" {
		return nil, false, NewError(KindIdentityUnresolvable, "identity has no email")
	}
	identity.Email = email

	existing, err := r.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		updated, err := r.applyIdentity(ctx, existing, identity)
		return updated, false, err
	}

	now := time.Now()
	newUser := User{
		ID:             uuid.New(),
		Email:          email,
		FirstName:      identity.FirstName,
		LastName:       identity.LastName,
		AvatarURL:      identity.AvatarURL,
		AuthProvider:   identity.Provider,
		ProviderUserID: identity.ExternalID,
		IsVerified:     true,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastLoginAt:    now,
	}

	created, err := r.repo.CreateUser(ctx, newUser, DefaultNotificationPreferences(newUser.ID, now))
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost the insert race; the winner's row is authoritative.
			winner, findErr := r.repo.FindUserByEmail(ctx, email)
			if findErr != nil {
				return nil, false, fmt.Errorf("find user after duplicate insert: %w", findErr)
			}
			if winner == nil {
				return nil, false, fmt.Errorf("duplicate insert but user not found for %s", email)
			}
			updated, updateErr := r.applyIdentity(ctx, winner, identity)
			return updated, false, updateErr
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}

	return &created, true, nil
}

// applyIdentity refreshes provider linkage and overwrites profile fields
// the identity supplies. Absent fields never blank out stored data.
func (r *Resolver) applyIdentity(ctx context.Context, user *User, identity Identity) (*User, error) {
	now := time.Now()
	user.AuthProvider = identity.Provider
	user.ProviderUserID = identity.ExternalID
	user.IsVerified = true
	user.LastLoginAt = now
	user.UpdatedAt = now
	if identity.FirstName != "" {
		user.FirstName = identity.FirstName
	}
	if identity.LastName != "" {
		user.LastName = identity.LastName
	}
	if identity.AvatarURL != "" {
		user.AvatarURL = identity.AvatarURL
	}

	if err := r.repo.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user login: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a client-initiated profile patch. Nil fields are
// left untouched.
func (r *Resolver) UpdateProfile(ctx context.Context, userID uuid.UUID, firstName, lastName, avatarURL *string) (*User, error) {
	user, err := r.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userID)
	}

	if firstName != nil {
		user.FirstName = strings.TrimSpace(*firstName)
	}
	if lastName != nil {
		user.LastName = strings.TrimSpace(*lastName)
	}
	if avatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*avatarURL)
	}
	user.UpdatedAt = time.Now()

	if err := r.repo.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
