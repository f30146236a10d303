package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// State is the routing information round-tripped through a provider redirect.
// It exists only as a signed string; nothing is persisted server-side.
type State struct {
	Provider       string `json:"p"`
	Flow           Flow   `json:"f"`
	RedirectTarget string `json:"r,omitempty"`
	Nonce          string `json:"n"`
}

// StateCodec signs and verifies the OAuth state parameter. The encoded form
// is base64url(payload) + "." + base64url(mac); "." is outside the base64url
// alphabet, so the last separator is unambiguous.
type StateCodec struct {
	secret []byte
}

// NewStateCodec builds a codec keyed with secret. An empty secret yields a
// random process-lifetime key: in-flight states die on restart, which is an
// accepted cold-start cost. Callers should warn when that happens.
func NewStateCodec(secret string) *StateCodec {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("state codec: cannot read random secret: " + err.Error())
		}
	}
	return &StateCodec{secret: key}
}

// Encode serializes and signs the state. A missing nonce is filled in.
func (c *StateCodec) Encode(s State) (string, error) {
	if s.Nonce == "" {
		nonce, err := randomToken(16)
		if err != nil {
			return "", err
		}
		s.Nonce = nonce
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), nil
}

// Decode verifies the signature and returns the state. Any structural or
// signature failure yields ok=false; a partially trusted state is never
// returned.
func (c *StateCodec) Decode(value string) (State, bool) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 || idx == len(value)-1 {
		return State{}, false
	}

	encoded, mac := value[:idx], value[idx+1:]
	if !hmac.Equal([]byte(mac), []byte(c.sign(encoded))) {
		return State{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return State{}, false
	}

	var s State
	if err := json.Unmarshal(payload, &s); err != nil {
		return State{}, false
	}
	switch s.Flow {
	case FlowLanding, FlowPopup, FlowMobile:
	default:
		return State{}, false
	}
	if s.Provider == "" {
		return State{}, false
	}
	return s, true
}

func (c *StateCodec) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// randomToken returns n random bytes base64url-encoded.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
