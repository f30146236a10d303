package auth

import (
	"context"
	"errors"
	"fmt"
)

// Provider names accepted by the start and callback routes.
const (
	ProviderGoogle   = "google"
	ProviderGitHub   = "github"
	ProviderFacebook = "facebook"
	ProviderApple    = "apple"
)

// Flow identifies which UI surface initiated a login. It decides how the
// callback result is delivered back to the caller.
type Flow string

const (
	FlowLanding Flow = "landing"
	FlowPopup   Flow = "popup"
	FlowMobile  Flow = "mobile"
)

// ParseFlow maps a query value onto the closed Flow enum.
func ParseFlow(s string) (Flow, bool) {
	switch Flow(s) {
	case FlowLanding, FlowPopup, FlowMobile:
		return Flow(s), true
	case "":
		return FlowLanding, true
	}
	return "", false
}

// Identity is the provider-agnostic shape every adapter normalizes into.
// Email is the only field the broker requires; the rest are best effort.
type Identity struct {
	Provider   string
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	AvatarURL  string
}

// Provider abstracts a code-exchange OAuth provider. Implementations keep
// all protocol quirks internal and surface only normalized identities and
// kinded errors.
type Provider interface {
	Name() string

	// AuthURL builds the consent-screen URL carrying the signed state.
	AuthURL(state string, flow Flow) string

	// Exchange trades an authorization code for an access token. The flow is
	// passed through so providers with per-surface credential pairs (GitHub)
	// can pick the right one.
	Exchange(ctx context.Context, code string, flow Flow) (string, error)

	// Identity fetches the provider's user record and normalizes it.
	Identity(ctx context.Context, accessToken string) (Identity, error)
}

// ErrorKind classifies authentication failures. The HTTP layer maps kinds
// to statuses and user-facing messages; adapters never leak provider shapes.
type ErrorKind string

const (
	KindInvalidRequest       ErrorKind = "invalid_request"
	KindInvalidState         ErrorKind = "invalid_state"
	KindProviderDeclined     ErrorKind = "provider_declined"
	KindProviderUnavailable  ErrorKind = "provider_unavailable"
	KindProviderRejected     ErrorKind = "provider_rejected"
	KindIdentityUnresolvable ErrorKind = "identity_unresolvable"
	KindTokenInvalid         ErrorKind = "token_invalid"
	KindConfigurationMissing ErrorKind = "configuration_missing"
	KindInternal             ErrorKind = "internal_error"
)

// Error carries a failure kind plus a loggable message. The message may
// include provider diagnostics but never codes, tokens, or secrets.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a kinded authentication error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds a kinded error preserving the underlying cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the kind from err, defaulting to internal_error for
// unclassified failures so callers always have a kind to act on.
func KindOf(err error) ErrorKind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInternal
}
