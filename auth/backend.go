package auth

import (
	"context"
	"time"
)

// UserView is the public projection of a user record. It never carries the
// password hash.
type UserView struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name,omitempty"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
}

// SignUpResult is returned by Backend.SignUp. When the backend establishes a
// session immediately, Session is populated; a hosted provider that requires
// email verification first leaves Session nil and sets PendingVerification.
type SignUpResult struct {
	User                *UserView `json:"user"`
	Session             *Session  `json:"session,omitempty"`
	PendingVerification bool      `json:"pending_verification,omitempty"`
}

// SignInResult is returned by Backend.SignIn and Backend.OAuthCallback.
type SignInResult struct {
	User    *UserView `json:"user"`
	Session *Session  `json:"session"`
}

// Session is the bearer proof of authentication handed to the client.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProfileUpdate carries optional profile edits. Nil fields are untouched.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Backend is the single authentication capability the rest of the application
// depends on. Exactly one implementation is selected at process start and
// never mixed per request. Every method converts internal failures into
// *Error; nothing else crosses this boundary.
type Backend interface {
	// SignUp validates input, creates the account, and (self-hosted path)
	// establishes a session immediately.
	SignUp(ctx context.Context, email, password, name string) (*SignUpResult, error)

	// SignIn verifies credentials and mints a new session. Prior sessions
	// stay valid.
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)

	// SignOut invalidates the session behind token. Idempotent: a missing or
	// already-dead session is not an error.
	SignOut(ctx context.Context, token string) error

	// CurrentUser resolves token to its user. Any verification failure
	// (malformed, expired, unknown, user gone) yields (nil, nil): "no user"
	// is a normal state, not an error.
	CurrentUser(ctx context.Context, token string) (*UserView, error)

	// UpdateProfile applies profile edits for the session's user.
	UpdateProfile(ctx context.Context, token string, upd ProfileUpdate) (*UserView, error)

	// RequestPasswordReset starts the reset flow. The answer is identical
	// whether or not an account exists for email.
	RequestPasswordReset(ctx context.Context, email string) error

	// CompletePasswordReset consumes a single-use reset token and sets the
	// new password.
	CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error

	// ResendVerification asks for another verification email.
	ResendVerification(ctx context.Context, email string) error

	// OAuthSignInURL returns the provider redirect URL that starts a
	// third-party identity sign-in. Backends without OAuth support return a
	// NotImplemented error.
	OAuthSignInURL(ctx context.Context, provider string) (string, error)

	// OAuthCallback exchanges the redirect parameters for a session.
	OAuthCallback(ctx context.Context, code, state string) (*SignInResult, error)

	// StateChanges exposes the auth-state notifier for UI consumers.
	StateChanges() *Notifier
}
