package auth

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	appleIssuer  = "https://appleid.apple.com"
	appleKeysURL = "https://appleid.apple.com/auth/keys"
)

// AppleVerifier validates Apple identity tokens. Apple hands the token to
// the client directly, so there is no code exchange; the backend only
// checks the signature against Apple's published keys, the fixed issuer,
// and an audience allow-list (web bundle, mobile bundle, Expo proxy).
type AppleVerifier struct {
	verifier  *oidc.IDTokenVerifier
	audiences map[string]struct{}
}

// NewAppleVerifier builds a verifier backed by Apple's remote JWKS. The
// remote key set caches keys and refetches on an unknown kid, which covers
// Apple's key rotation without restarts.
func NewAppleVerifier(ctx context.Context, clientIDs []string) *AppleVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, appleKeysURL)
	return newAppleVerifier(keySet, appleIssuer, clientIDs)
}

func newAppleVerifier(keySet oidc.KeySet, issuer string, clientIDs []string) *AppleVerifier {
	audiences := make(map[string]struct{}, len(clientIDs))
	for _, id := range clientIDs {
		if id != "" {
			audiences[id] = struct{}{}
		}
	}
	verifier := oidc.NewVerifier(issuer, keySet, &oidc.Config{SkipClientIDCheck: true})
	return &AppleVerifier{verifier: verifier, audiences: audiences}
}

// Verify checks the identity token and returns the normalized identity.
// Apple omits name and picture on repeat logins, so those come from the
// client-supplied fallback; the email claim always wins when present.
func (a *AppleVerifier) Verify(ctx context.Context, identityToken string, fallback Identity) (Identity, error) {
	token, err := a.verifier.Verify(ctx, identityToken)
	if err != nil {
		return Identity{}, WrapError(KindTokenInvalid, "apple identity token verification failed", err)
	}

	audOK := false
	for _, aud := range token.Audience {
		if _, ok := a.audiences[aud]; ok {
			audOK = true
			break
		}
	}
	if !audOK {
		return Identity{}, NewError(KindTokenInvalid, "apple identity token audience not allowed")
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return Identity{}, WrapError(KindTokenInvalid, "parse apple claims", err)
	}

	email := claims.Email
	if email == "" {
		email = fallback.Email
	}
	if email == "" {
		return Identity{}, NewError(KindIdentityUnresolvable, "apple identity has no email")
	}

	return Identity{
		Provider:   ProviderApple,
		ExternalID: token.Subject,
		Email:      email,
		FirstName:  fallback.FirstName,
		LastName:   fallback.LastName,
		AvatarURL:  fallback.AvatarURL,
	}, nil
}
