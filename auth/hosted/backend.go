package hosted

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"github.com/racanlabs/go-auth-service/auth"
	"github.com/racanlabs/go-auth-service/internal/utils"
	"github.com/racanlabs/go-auth-service/tokenstore"
	"github.com/rs/zerolog/log"
)

// Backend delegates every operation to the hosted provider. It owns no
// credential data; its job is translation and client-token bookkeeping.
type Backend struct {
	client   *Client
	store    tokenstore.Store
	notifier *auth.Notifier
	oauth    *OAuthConfig
	states   *stateStore
	nowFunc  func() time.Time
}

var _ auth.Backend = (*Backend)(nil)

type BackendOption func(*Backend)

// WithOAuth enables third-party identity sign-in through the given issuer.
func WithOAuth(cfg *OAuthConfig) BackendOption {
	return func(b *Backend) {
		b.oauth = cfg
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) BackendOption {
	return func(b *Backend) {
		b.nowFunc = now
	}
}

func New(client *Client, store tokenstore.Store, options ...BackendOption) (*Backend, error) {
	if client == nil {
		return nil, errors.New("[hosted.New] client is required")
	}
	if store == nil {
		return nil, errors.New("[hosted.New] token store is required")
	}
	b := &Backend{
		client:   client,
		store:    store,
		notifier: auth.NewNotifier(),
		states:   newStateStore(),
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

func (b *Backend) StateChanges() *auth.Notifier {
	return b.notifier
}

// SignUp delegates registration. Password policy and uniqueness are the
// provider's to enforce; only the email shape is checked locally so obvious
// typos never leave the process.
func (b *Backend) SignUp(ctx context.Context, emailAddr, password, name string) (*auth.SignUpResult, error) {
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return nil, err
	}
	result, err := b.client.SignUp(ctx, auth.NormalizeEmail(emailAddr), password, name)
	if err != nil {
		return nil, auth.AsError(err)
	}
	if result.Session != nil {
		b.adoptSession(result.Session, result.User)
	}
	return result, nil
}

func (b *Backend) SignIn(ctx context.Context, emailAddr, password string) (*auth.SignInResult, error) {
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return nil, err
	}
	result, err := b.client.SignInWithPassword(ctx, auth.NormalizeEmail(emailAddr), password)
	if err != nil {
		return nil, auth.AsError(err)
	}
	b.adoptSession(result.Session, result.User)
	return result, nil
}

// SignOut asks the provider to invalidate the session and clears local state.
// A token the provider no longer recognises still counts as signed out.
func (b *Backend) SignOut(ctx context.Context, token string) error {
	if token == "" {
		token, _ = b.store.Get()
	}
	if token == "" {
		return nil
	}
	if err := b.client.SignOut(ctx, token); err != nil {
		kind := auth.KindOf(err)
		if kind == auth.KindServiceUnavailable || kind == auth.KindRateLimited {
			return auth.AsError(err)
		}
		log.Debug().Err(err).Msg("provider sign-out rejected token; treating as signed out")
	}
	_ = b.store.Clear()
	b.notifier.Publish(auth.Event{User: nil})
	return nil
}

// CurrentUser resolves the stored token through the provider. A rejected
// token clears local state and reports no user; only transport-level trouble
// surfaces as an error.
func (b *Backend) CurrentUser(ctx context.Context, token string) (*auth.UserView, error) {
	fromStore := token == ""
	if fromStore {
		token, _ = b.store.Get()
	}
	if token == "" {
		return nil, nil
	}
	user, err := b.client.GetUser(ctx, token)
	if err != nil {
		kind := auth.KindOf(err)
		if kind == auth.KindServiceUnavailable || kind == auth.KindRateLimited {
			return nil, auth.AsError(err)
		}
		// Only discard the persisted token when it is the one the provider
		// rejected; an explicit dead token says nothing about the stored one.
		if fromStore {
			_ = b.store.Clear()
		}
		return nil, nil
	}
	return user, nil
}

func (b *Backend) UpdateProfile(ctx context.Context, token string, upd auth.ProfileUpdate) (*auth.UserView, error) {
	if token == "" {
		token, _ = b.store.Get()
	}
	data := map[string]string{}
	if upd.Name != nil {
		data["name"] = *upd.Name
	}
	if upd.AvatarURL != nil {
		data["avatar_url"] = *upd.AvatarURL
	}
	user, err := b.client.UpdateUser(ctx, token, updateUserRequest{Data: data})
	if err != nil {
		return nil, auth.AsError(err)
	}
	return user, nil
}

// RequestPasswordReset delegates the whole flow to the provider. A provider
// "user not found" is swallowed so the response never reveals whether the
// account exists.
func (b *Backend) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return err
	}
	if err := b.client.Recover(ctx, auth.NormalizeEmail(emailAddr)); err != nil {
		if auth.KindOf(err) == auth.KindNotFound {
			return nil
		}
		return auth.AsError(err)
	}
	return nil
}

// CompletePasswordReset consumes the provider's recovery token and sets the
// new password through the session it grants.
func (b *Backend) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	session, err := b.client.VerifyRecovery(ctx, resetToken)
	if err != nil {
		if auth.KindOf(err) == auth.KindInvalidInput {
			return auth.NewError(auth.KindInvalidInput, "This password reset link is invalid or has expired.")
		}
		return auth.AsError(err)
	}
	if _, err := b.client.UpdateUser(ctx, session.AccessToken, updateUserRequest{Password: newPassword}); err != nil {
		return auth.AsError(err)
	}
	return nil
}

func (b *Backend) ResendVerification(ctx context.Context, emailAddr string) error {
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return err
	}
	if err := b.client.ResendVerification(ctx, auth.NormalizeEmail(emailAddr)); err != nil {
		return auth.AsError(err)
	}
	return nil
}

// OAuthSignInURL starts a third-party identity sign-in. With an OIDC issuer
// configured the exchange happens here; otherwise the provider's own
// authorize endpoint drives the whole dance.
func (b *Backend) OAuthSignInURL(_ context.Context, provider string) (string, error) {
	state, err := randomToken()
	if err != nil {
		return "", auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}

	if b.oauth != nil {
		nonce, err := randomToken()
		if err != nil {
			return "", auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
		}
		b.states.Put(state, flowState{Nonce: nonce, CreatedAt: b.nowFunc()})
		return b.oauth.OAuth2.AuthCodeURL(state, oidc.Nonce(nonce)), nil
	}

	if !b.client.configured() {
		return "", auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}
	b.states.Put(state, flowState{CreatedAt: b.nowFunc()})
	return b.client.AuthorizeURL(provider, state), nil
}

// OAuthCallback validates state, exchanges the code, and verifies the ID
// token (signature and nonce) before adopting the session.
func (b *Backend) OAuthCallback(ctx context.Context, code, state string) (*auth.SignInResult, error) {
	if code == "" || state == "" {
		return nil, auth.NewError(auth.KindInvalidInput, "Missing code or state parameter.")
	}
	fs, ok := b.states.Take(state)
	if !ok {
		return nil, auth.NewError(auth.KindInvalidInput, "Invalid or expired sign-in state.")
	}
	if b.oauth == nil {
		return nil, auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}

	oauth2Token, err := b.oauth.OAuth2.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("oauth code exchange failed")
		return nil, auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}

	idToken, err := b.oauth.Provider.Verifier(&oidc.Config{
		ClientID: b.oauth.OAuth2.ClientID,
	}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, auth.NewError(auth.KindInvalidCredentials, auth.MsgInvalidCredentials)
	}

	var claims struct {
		Nonce   string `json:"nonce"`
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
	}
	if claims.Nonce != fs.Nonce {
		return nil, auth.NewError(auth.KindInvalidCredentials, auth.MsgInvalidCredentials)
	}

	now := b.nowFunc()
	user := &auth.UserView{
		ID:               claims.Sub,
		Email:            auth.NormalizeEmail(claims.Email),
		Name:             claims.Name,
		AvatarURL:        claims.Picture,
		CreatedAt:        now,
		UpdatedAt:        now,
		EmailConfirmedAt: utils.Ptr(now),
	}
	session := &auth.Session{Token: oauth2Token.AccessToken, ExpiresAt: oauth2Token.Expiry}
	b.adoptSession(session, user)
	return &auth.SignInResult{User: user, Session: session}, nil
}

// adoptSession persists the provider token client-side and announces the
// signed-in state.
func (b *Backend) adoptSession(session *auth.Session, user *auth.UserView) {
	if err := b.store.Set(session.Token); err != nil {
		log.Error().Err(err).Msg("failed to persist session token")
	}
	b.notifier.Publish(auth.Event{User: user})
}
