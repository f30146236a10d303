package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is a Vestly account. Social sign-ins and password registrations share
// the same record; PasswordHash is empty for social-only accounts.
type User struct {
	ID             uuid.UUID
	Email          string
	FirstName      string
	LastName       string
	AvatarURL      string
	AuthProvider   string
	ProviderUserID string
	PasswordHash   string
	IsVerified     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    time.Time
}

// PublicUser is the client-facing projection of a User.
type PublicUser struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	IsVerified bool      `json:"isVerified"`
}

// Public returns the projection of the user safe to hand to clients.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		AvatarURL:  u.AvatarURL,
		IsVerified: u.IsVerified,
	}
}

// Session is a server-side login record. The bearer credential embeds the
// session id; deleting the row revokes the credential before its own expiry.
type Session struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	OpaqueToken string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// NotificationPreferences holds the per-user defaults created alongside a
// new account.
type NotificationPreferences struct {
	UserID         uuid.UUID
	PushEnabled    bool
	EmailEnabled   bool
	PriceAlerts    bool
	SocialActivity bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultNotificationPreferences returns the row written for a freshly
// created user.
func DefaultNotificationPreferences(userID uuid.UUID, now time.Time) NotificationPreferences {
	return NotificationPreferences{
		UserID:         userID,
		PushEnabled:    true,
		EmailEnabled:   true,
		PriceAlerts:    true,
		SocialActivity: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
