package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider exchanges authorization codes and fetches identities from
// Google's userinfo endpoint.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
	http        *http.Client
}

// NewGoogleProvider creates a Google adapter with the fixed callback URI.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoEndpoint,
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GoogleProvider) Name() string { return ProviderGoogle }

// AuthURL generates the Google consent URL carrying the signed state.
func (g *GoogleProvider) AuthURL(state string, _ Flow) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the authorization code for an access token.
func (g *GoogleProvider) Exchange(ctx context.Context, code string, _ Flow) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.http)
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return "", WrapError(KindProviderRejected, fmt.Sprintf("google rejected code exchange: %s %s", re.ErrorCode, re.ErrorDescription), err)
		}
		return "", WrapError(KindProviderUnavailable, "google token endpoint unreachable", err)
	}
	if token.AccessToken == "" {
		return "", NewError(KindProviderRejected, "google returned no access token")
	}
	return token.AccessToken, nil
}

// Identity fetches the userinfo record for the access token.
func (g *GoogleProvider) Identity(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Identity{}, WrapError(KindProviderUnavailable, "build userinfo request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		return Identity{}, WrapError(KindProviderUnavailable, "google userinfo unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, NewError(KindProviderRejected, fmt.Sprintf("google userinfo status %d", resp.StatusCode))
	}

	var info struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, WrapError(KindProviderRejected, "decode google userinfo", err)
	}
	if info.Email == "" {
		return Identity{}, NewError(KindIdentityUnresolvable, "google profile has no email")
	}

	return Identity{
		Provider:   ProviderGoogle,
		ExternalID: info.ID,
		Email:      info.Email,
		FirstName:  info.GivenName,
		LastName:   info.FamilyName,
		AvatarURL:  info.Picture,
	}, nil
}
