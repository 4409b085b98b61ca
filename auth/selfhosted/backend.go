// Package selfhosted implements the credential-store authentication backend:
// users and sessions in the document database, bcrypt password hashes, and
// locally minted session tokens.
package selfhosted

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/racanlabs/go-auth-service/auth"
	"github.com/racanlabs/go-auth-service/internal/email"
	"github.com/racanlabs/go-auth-service/resettokens"
	"github.com/racanlabs/go-auth-service/sessions"
	"github.com/racanlabs/go-auth-service/token"
	"github.com/racanlabs/go-auth-service/tokenstore"
	"github.com/racanlabs/go-auth-service/users"
	"github.com/rs/zerolog/log"
)

// Repos holds all repository dependencies for the Backend.
type Repos struct {
	Users       users.Repo
	Sessions    sessions.Repo
	ResetTokens resettokens.Repo
}

type Backend struct {
	repos         Repos
	tokens        *token.Manager
	store         tokenstore.Store
	mail          email.Sender
	notifier      *auth.Notifier
	resetLinkBase string
	nowFunc       func() time.Time
}

var _ auth.Backend = (*Backend)(nil)

type BackendOption func(*Backend)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) BackendOption {
	return func(b *Backend) {
		b.nowFunc = now
	}
}

// WithResetLinkBase sets the base URL embedded in password-reset emails.
func WithResetLinkBase(base string) BackendOption {
	return func(b *Backend) {
		b.resetLinkBase = base
	}
}

func New(repos Repos, tokens *token.Manager, store tokenstore.Store, mail email.Sender, options ...BackendOption) (*Backend, error) {
	if repos.Users == nil {
		return nil, errors.New("[selfhosted.New] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[selfhosted.New] Sessions repo is required")
	}
	if repos.ResetTokens == nil {
		return nil, errors.New("[selfhosted.New] ResetTokens repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[selfhosted.New] token manager is required")
	}
	if store == nil {
		return nil, errors.New("[selfhosted.New] token store is required")
	}
	if mail == nil {
		return nil, errors.New("[selfhosted.New] email sender is required")
	}

	b := &Backend{
		repos:         repos,
		tokens:        tokens,
		store:         store,
		mail:          mail,
		notifier:      auth.NewNotifier(),
		resetLinkBase: "http://localhost:8080",
		nowFunc:       time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

func (b *Backend) StateChanges() *auth.Notifier {
	return b.notifier
}

// SignUp creates the account and establishes a session immediately. No
// verification email is sent on this path; the account is confirmed at
// creation.
func (b *Backend) SignUp(ctx context.Context, emailAddr, password, name string) (*auth.SignUpResult, error) {
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}
	emailAddr = auth.NormalizeEmail(emailAddr)

	_, err := b.repos.Users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return nil, auth.NewError(auth.KindDuplicateAccount, auth.MsgDuplicateAccount)
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, b.failure("SignUp.GetByEmail", err)
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, b.failure("SignUp.HashPassword", err)
	}

	now := b.nowFunc().UTC()
	user := &users.User{
		ID:               uuid.New().String(),
		Email:            emailAddr,
		PasswordHash:     hash,
		Name:             name,
		CreatedAt:        now,
		UpdatedAt:        now,
		EmailConfirmedAt: &now,
	}
	if err := b.repos.Users.Insert(ctx, user); err != nil {
		// The unique index closes the check-then-insert race.
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, auth.NewError(auth.KindDuplicateAccount, auth.MsgDuplicateAccount)
		}
		return nil, b.failure("SignUp.Insert", err)
	}

	session, err := b.establishSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &auth.SignUpResult{User: user.View(), Session: session}, nil
}

// SignIn verifies credentials and mints a fresh session without invalidating
// prior ones. Unknown email and wrong password produce the same error so the
// response does not reveal whether an account exists.
func (b *Backend) SignIn(ctx context.Context, emailAddr, password string) (*auth.SignInResult, error) {
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return nil, err
	}
	emailAddr = auth.NormalizeEmail(emailAddr)

	user, err := b.repos.Users.GetByEmail(ctx, emailAddr)
	if errors.Is(err, users.ErrNotFound) {
		return nil, auth.NewError(auth.KindInvalidCredentials, auth.MsgInvalidCredentials)
	}
	if err != nil {
		return nil, b.failure("SignIn.GetByEmail", err)
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, auth.NewError(auth.KindInvalidCredentials, auth.MsgInvalidCredentials)
	}

	session, err := b.establishSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &auth.SignInResult{User: user.View(), Session: session}, nil
}

// SignOut deletes the session behind rawToken. Idempotent: a missing, bad, or
// expired token still clears client state and succeeds.
func (b *Backend) SignOut(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		rawToken, _ = b.store.Get()
	}
	if rawToken == "" {
		return nil
	}

	claims, err := b.tokens.Verify(rawToken)
	if err != nil {
		_ = b.store.Clear()
		return nil
	}
	if err := b.repos.Sessions.Delete(ctx, claims.TokenID); err != nil {
		return b.failure("SignOut.Delete", err)
	}
	_ = b.store.Clear()
	b.notifier.Publish(auth.Event{User: nil})
	return nil
}

// CurrentUser resolves rawToken to its user. Every verification failure is
// the normal "no user" state: the persisted token is cleared and (nil, nil)
// is returned.
func (b *Backend) CurrentUser(ctx context.Context, rawToken string) (*auth.UserView, error) {
	fromStore := rawToken == ""
	if fromStore {
		rawToken, _ = b.store.Get()
	}
	if rawToken == "" {
		return nil, nil
	}

	user, _, err := b.resolveSession(ctx, rawToken)
	if err != nil {
		return nil, b.failure("CurrentUser.resolveSession", err)
	}
	if user == nil {
		// Only discard the persisted token when it is the one that failed;
		// an explicit dead token says nothing about the stored session.
		if fromStore {
			_ = b.store.Clear()
		}
		return nil, nil
	}
	return user.View(), nil
}

// UpdateProfile applies profile edits for the session's user.
func (b *Backend) UpdateProfile(ctx context.Context, rawToken string, upd auth.ProfileUpdate) (*auth.UserView, error) {
	user, _, err := b.resolveSession(ctx, rawToken)
	if err != nil {
		return nil, b.failure("UpdateProfile.resolveSession", err)
	}
	if user == nil {
		return nil, auth.NewError(auth.KindInvalidCredentials, "Your session has expired. Please sign in again.")
	}

	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = *upd.AvatarURL
	}
	user.UpdatedAt = b.nowFunc().UTC()
	if err := b.repos.Users.Update(ctx, user); err != nil {
		return nil, b.failure("UpdateProfile.Update", err)
	}
	return user.View(), nil
}

// RequestPasswordReset starts the reset flow. The caller gets the same answer
// whether or not an account exists; delivery problems are logged, not leaked.
func (b *Backend) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return err
	}
	emailAddr = auth.NormalizeEmail(emailAddr)

	user, err := b.repos.Users.GetByEmail(ctx, emailAddr)
	if errors.Is(err, users.ErrNotFound) {
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("password reset lookup failed")
		return nil
	}

	raw, hash, err := resettokens.Generate()
	if err != nil {
		return b.failure("RequestPasswordReset.Generate", err)
	}
	now := b.nowFunc().UTC()
	if err := b.repos.ResetTokens.Create(ctx, &resettokens.ResetToken{
		TokenHash: hash,
		UserID:    user.ID,
		ExpiresAt: now.Add(resettokens.TTL),
		CreatedAt: now,
	}); err != nil {
		return b.failure("RequestPasswordReset.Create", err)
	}

	link := b.resetLinkBase + "/reset-password?token=" + raw
	subject := "Reset your password"
	body := fmt.Sprintf(
		`<p>Click the link below to reset your password (expires in 15 minutes):</p><p><a href="%s">%s</a></p>`,
		link, link,
	)
	if err := b.mail.Send(ctx, emailAddr, subject, body); err != nil {
		log.Error().Err(err).Msg("password reset email delivery failed")
	}
	return nil
}

// CompletePasswordReset consumes a reset token exactly once and stores the
// new password hash.
func (b *Backend) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}

	t, err := b.repos.ResetTokens.Claim(ctx, resettokens.Hash(resetToken))
	if errors.Is(err, resettokens.ErrInvalid) {
		return auth.NewError(auth.KindInvalidInput, "This password reset link is invalid or has expired.")
	}
	if err != nil {
		return b.failure("CompletePasswordReset.Claim", err)
	}

	user, err := b.repos.Users.GetByID(ctx, t.UserID)
	if err != nil {
		return b.failure("CompletePasswordReset.GetByID", err)
	}

	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return b.failure("CompletePasswordReset.HashPassword", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = b.nowFunc().UTC()
	if err := b.repos.Users.Update(ctx, user); err != nil {
		return b.failure("CompletePasswordReset.Update", err)
	}
	return nil
}

// ResendVerification is a no-op on this path: accounts are confirmed at
// sign-up, so there is never anything to resend.
func (b *Backend) ResendVerification(_ context.Context, emailAddr string) error {
	return auth.ValidateEmail(emailAddr)
}

func (b *Backend) OAuthSignInURL(_ context.Context, _ string) (string, error) {
	return "", auth.NewError(auth.KindNotImplemented, "Third-party sign-in is not supported by this backend.")
}

func (b *Backend) OAuthCallback(_ context.Context, _, _ string) (*auth.SignInResult, error) {
	return nil, auth.NewError(auth.KindNotImplemented, "Third-party sign-in is not supported by this backend.")
}

// establishSession mints a token, persists the session row, stores the token
// client-side, and announces the signed-in state.
func (b *Backend) establishSession(ctx context.Context, user *users.User) (*auth.Session, error) {
	minted, err := b.tokens.Mint(user.ID, user.Email)
	if err != nil {
		return nil, b.failure("establishSession.Mint", err)
	}
	if err := b.repos.Sessions.Insert(ctx, &sessions.Session{
		TokenID:   minted.TokenID,
		UserID:    user.ID,
		ExpiresAt: minted.ExpiresAt,
		CreatedAt: b.nowFunc().UTC(),
	}); err != nil {
		return nil, b.failure("establishSession.Insert", err)
	}
	if err := b.store.Set(minted.Token); err != nil {
		return nil, b.failure("establishSession.Set", err)
	}
	b.notifier.Publish(auth.Event{User: user.View()})
	return &auth.Session{Token: minted.Token, ExpiresAt: minted.ExpiresAt}, nil
}

// resolveSession maps a raw token to its user and session row. A nil user
// with nil error means the token did not resolve; only storage faults return
// an error.
func (b *Backend) resolveSession(ctx context.Context, rawToken string) (*users.User, *sessions.Session, error) {
	claims, err := b.tokens.Verify(rawToken)
	if err != nil {
		return nil, nil, nil
	}

	session, err := b.repos.Sessions.Get(ctx, claims.TokenID)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "[resolveSession] Sessions.Get")
	}
	if session.Expired(b.nowFunc()) {
		return nil, nil, nil
	}

	user, err := b.repos.Users.GetByID(ctx, session.UserID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "[resolveSession] Users.GetByID")
	}
	return user, session, nil
}

// failure logs the underlying cause and returns the generic unavailable
// error; internal details never reach the caller.
func (b *Backend) failure(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("auth backend failure")
	return auth.NewError(auth.KindServiceUnavailable, auth.MsgServiceUnavailable)
}
