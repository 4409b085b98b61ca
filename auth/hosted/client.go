// Package hosted adapts an external GoTrue-style authentication provider to
// the Backend contract. All credential storage, hashing, and token issuance
// happen on the provider's side; this package translates its REST surface and
// error shapes into the shared taxonomy so no call site ever sees a
// provider-specific structure.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/racanlabs/go-auth-service/auth"
)

// providerUser mirrors the provider's user resource.
type providerUser struct {
	ID               string            `json:"id"`
	Email            string            `json:"email"`
	UserMetadata     map[string]string `json:"user_metadata"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	EmailConfirmedAt *time.Time        `json:"email_confirmed_at"`
}

func (u *providerUser) view() *auth.UserView {
	return &auth.UserView{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.UserMetadata["name"],
		AvatarURL:        u.UserMetadata["avatar_url"],
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
		EmailConfirmedAt: u.EmailConfirmedAt,
	}
}

// providerSession mirrors the provider's token grant response.
type providerSession struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int           `json:"expires_in"`
	User        *providerUser `json:"user"`
}

// Client is a minimal HTTP client for the provider's auth API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// configured reports whether provider credentials are present. Calls on an
// unconfigured client fail with ServiceUnavailable instead of leaking what is
// missing.
func (c *Client) configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

type signUpRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Data     map[string]string `json:"data,omitempty"`
}

// signUpResponse covers both provider behaviours: autoconfirm returns a full
// session, confirmation-required returns just the user.
type signUpResponse struct {
	providerSession
	providerUser
}

// SignUp registers the account; the provider emails a verification link when
// it is configured to require confirmation.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*auth.SignUpResult, error) {
	var data map[string]string
	if name != "" {
		data = map[string]string{"name": name}
	}
	var resp signUpResponse
	if err := c.do(ctx, http.MethodPost, "/signup", "", signUpRequest{Email: email, Password: password, Data: data}, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		// A grant without its user is a malformed provider response.
		if resp.providerSession.User == nil {
			return nil, auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
		}
		return &auth.SignUpResult{
			User: resp.providerSession.User.view(),
			Session: &auth.Session{
				Token:     resp.AccessToken,
				ExpiresAt: time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
			},
		}, nil
	}
	// Provider withheld the session: account awaits email verification.
	return &auth.SignUpResult{User: resp.providerUser.view(), PendingVerification: true}, nil
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword exchanges credentials for a provider session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*auth.SignInResult, error) {
	var resp providerSession
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", passwordGrantRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}
	return &auth.SignInResult{
		User: resp.User.view(),
		Session: &auth.Session{
			Token:     resp.AccessToken,
			ExpiresAt: time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		},
	}, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*auth.UserView, error) {
	var u providerUser
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return u.view(), nil
}

type updateUserRequest struct {
	Password string            `json:"password,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

func (c *Client) UpdateUser(ctx context.Context, accessToken string, req updateUserRequest) (*auth.UserView, error) {
	var u providerUser
	if err := c.do(ctx, http.MethodPut, "/user", accessToken, req, &u); err != nil {
		return nil, err
	}
	return u.view(), nil
}

type emailRequest struct {
	Email string `json:"email"`
	Type  string `json:"type,omitempty"`
}

func (c *Client) Recover(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/recover", "", emailRequest{Email: email}, nil)
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/resend", "", emailRequest{Email: email, Type: "signup"}, nil)
}

type verifyRequest struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// VerifyRecovery consumes a password-recovery token and returns the session
// the provider grants for completing the reset.
func (c *Client) VerifyRecovery(ctx context.Context, token string) (*providerSession, error) {
	var resp providerSession
	if err := c.do(ctx, http.MethodPost, "/verify", "", verifyRequest{Type: "recovery", Token: token}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}
	return &resp, nil
}

// AuthorizeURL builds the provider redirect that starts an OAuth sign-in
// handled entirely by the provider.
func (c *Client) AuthorizeURL(provider, state string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("state", state)
	return c.baseURL + "/authorize?" + q.Encode()
}

// do performs one JSON round trip. Every failure path is converted into an
// *auth.Error before returning.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	if !c.configured() {
		return auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return classifyResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}
	return nil
}
