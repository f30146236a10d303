package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	facebookAuthEndpoint  = "https://www.facebook.com/v12.0/dialog/oauth"
	facebookTokenEndpoint = "https://graph.facebook.com/v12.0/oauth/access_token"
	facebookMeEndpoint    = "https://graph.facebook.com/me"
)

// FacebookProvider authenticates against Facebook's Graph API. The token
// exchange is a GET with query parameters, not a form POST; that quirk is
// Facebook's, not ours.
type FacebookProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	endpoints    facebookEndpoints
	http         *http.Client
}

type facebookEndpoints struct {
	auth  string
	token string
	me    string
}

// NewFacebookProvider creates a Facebook adapter with the fixed callback URI.
func NewFacebookProvider(clientID, clientSecret, redirectURL string) *FacebookProvider {
	return &FacebookProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		endpoints: facebookEndpoints{
			auth:  facebookAuthEndpoint,
			token: facebookTokenEndpoint,
			me:    facebookMeEndpoint,
		},
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *FacebookProvider) Name() string { return ProviderFacebook }

// AuthURL builds the Facebook consent dialog URL.
func (f *FacebookProvider) AuthURL(state string, _ Flow) string {
	u, _ := url.Parse(f.endpoints.auth)
	q := u.Query()
	q.Set("client_id", f.clientID)
	q.Set("redirect_uri", f.redirectURL)
	q.Set("scope", "email,public_profile")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

// Exchange trades the authorization code for an access token.
func (f *FacebookProvider) Exchange(ctx context.Context, code string, _ Flow) (string, error) {
	u, _ := url.Parse(f.endpoints.token)
	q := u.Query()
	q.Set("client_id", f.clientID)
	q.Set("client_secret", f.clientSecret)
	q.Set("redirect_uri", f.redirectURL)
	q.Set("code", code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", WrapError(KindProviderUnavailable, "build token request", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", WrapError(KindProviderUnavailable, "facebook token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	var tr struct {
		AccessToken string `json:"access_token"`
		Error       *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", WrapError(KindProviderRejected, "decode facebook token response", err)
	}
	if tr.Error != nil {
		return "", NewError(KindProviderRejected, fmt.Sprintf("facebook rejected code exchange: %s (%s %d)", tr.Error.Message, tr.Error.Type, tr.Error.Code))
	}
	if tr.AccessToken == "" {
		return "", NewError(KindProviderRejected, "facebook returned no access token")
	}
	return tr.AccessToken, nil
}

// Identity fetches the Graph /me record with a large profile picture.
func (f *FacebookProvider) Identity(ctx context.Context, accessToken string) (Identity, error) {
	u, _ := url.Parse(f.endpoints.me)
	q := u.Query()
	q.Set("fields", "id,email,first_name,last_name,picture.width(400)")
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Identity{}, WrapError(KindProviderUnavailable, "build graph request", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return Identity{}, WrapError(KindProviderUnavailable, "facebook graph unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, NewError(KindProviderRejected, fmt.Sprintf("facebook graph status %d", resp.StatusCode))
	}

	var info struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Picture   struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, WrapError(KindProviderRejected, "decode facebook profile", err)
	}
	if info.Email == "" {
		return Identity{}, NewError(KindIdentityUnresolvable, "facebook profile has no email")
	}

	return Identity{
		Provider:   ProviderFacebook,
		ExternalID: info.ID,
		Email:      info.Email,
		FirstName:  info.FirstName,
		LastName:   info.LastName,
		AvatarURL:  info.Picture.Data.URL,
	}, nil
}
