package hosted

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// OAuthConfig wires the OIDC issuer used for third-party identity sign-in.
type OAuthConfig struct {
	Provider *oidc.Provider
	OAuth2   *oauth2.Config
}

// NewOAuthConfig discovers the issuer and prepares the code-exchange config.
func NewOAuthConfig(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string) (*OAuthConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewOAuthConfig] issuer discovery")
	}
	return &OAuthConfig{
		Provider: provider,
		OAuth2: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}, nil
}

// flowState is the per-redirect CSRF state, held until the callback returns.
type flowState struct {
	Nonce     string
	CreatedAt time.Time
}

const stateTimeout = 15 * time.Minute

// stateStore keeps pending OAuth flows in memory. States are single-use:
// Take removes on read so a replayed callback fails.
type stateStore struct {
	mu     sync.Mutex
	states map[string]flowState
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[string]flowState)}
}

func (s *stateStore) Put(state string, fs flowState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Opportunistically drop stale flows so abandoned redirects don't pile up.
	for k, v := range s.states {
		if time.Since(v.CreatedAt) > stateTimeout {
			delete(s.states, k)
		}
	}
	s.states[state] = fs
}

func (s *stateStore) Take(state string) (flowState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs, ok := s.states[state]
	if !ok {
		return flowState{}, false
	}
	delete(s.states, state)
	if time.Since(fs.CreatedAt) > stateTimeout {
		return flowState{}, false
	}
	return fs, true
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
