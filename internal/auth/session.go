package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionIssuer creates session rows and mints the signed bearer
// credentials bound to them. A bearer is only as alive as its session row:
// both the credential's own expiry and the row must hold for a request to
// authenticate.
type SessionIssuer struct {
	repo       Repository
	signingKey []byte
	sessionTTL time.Duration
	bearerTTL  time.Duration
}

// NewSessionIssuer creates a SessionIssuer. Zero TTLs default to 30 days.
func NewSessionIssuer(repo Repository, signingSecret string, sessionTTL, bearerTTL time.Duration) *SessionIssuer {
	if sessionTTL == 0 {
		sessionTTL = 30 * 24 * time.Hour
	}
	if bearerTTL == 0 {
		bearerTTL = sessionTTL
	}
	key := []byte(signingSecret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("session issuer: cannot read random secret: " + err.Error())
		}
	}
	return &SessionIssuer{
		repo:       repo,
		signingKey: key,
		sessionTTL: sessionTTL,
		bearerTTL:  bearerTTL,
	}
}

type bearerClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Issue creates a session row and returns it with a signed bearer token.
func (s *SessionIssuer) Issue(ctx context.Context, userID uuid.UUID) (string, *Session, error) {
	opaque, err := randomToken(32)
	if err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}

	now := time.Now()
	session := Session{
		ID:          uuid.New(),
		UserID:      userID,
		OpaqueToken: opaque,
		ExpiresAt:   now.Add(s.sessionTTL),
		CreatedAt:   now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	claims := bearerClaims{
		SessionID: session.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.bearerTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign bearer token: %w", err)
	}

	return token, &session, nil
}

// Authenticate resolves a bearer token to its user. Any failure — bad
// signature, expiry, revoked session, vanished user — yields (nil, nil):
// callers get a clean pass/fail signal and decide whether anonymous access
// is acceptable.
func (s *SessionIssuer) Authenticate(ctx context.Context, bearerToken string) (*User, error) {
	session, ok := s.parseBearer(bearerToken)
	if !ok {
		return nil, nil
	}

	row, err := s.repo.FindSession(ctx, session.id, session.userID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	if time.Now().After(row.ExpiresAt) {
		_ = s.repo.DeleteSession(ctx, row.ID)
		return nil, nil
	}

	user, err := s.repo.FindUserByID(ctx, session.userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// Revoke deletes the session behind the bearer token. Revoking an invalid
// or already revoked token is a no-op.
func (s *SessionIssuer) Revoke(ctx context.Context, bearerToken string) error {
	session, ok := s.parseBearer(bearerToken)
	if !ok {
		return nil
	}
	return s.repo.DeleteSession(ctx, session.id)
}

// RevokeAll deletes every session for the user.
func (s *SessionIssuer) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.DeleteSessionsForUser(ctx, userID)
}

// CleanupExpiredSessions removes expired rows; useful as a periodic job.
func (s *SessionIssuer) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx)
}

type bearerRef struct {
	id     uuid.UUID
	userID uuid.UUID
}

func (s *SessionIssuer) parseBearer(bearerToken string) (bearerRef, bool) {
	if bearerToken == "" {
		return bearerRef{}, false
	}

	var claims bearerClaims
	token, err := jwt.ParseWithClaims(bearerToken, &claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return bearerRef{}, false
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return bearerRef{}, false
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return bearerRef{}, false
	}
	return bearerRef{id: sessionID, userID: userID}, true
}
