// Package token mints and verifies the signed, time-limited bearer tokens
// that back sessions.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SessionClaims is what a verified token resolves to.
type SessionClaims struct {
	TokenID   string // jti, the session row key
	UserID    string // sub
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Minted bundles a freshly signed token with its identifiers.
type Minted struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

type Manager struct {
	signer     Signer
	issuer     string
	sessionTTL time.Duration
	nowFunc    func() time.Time
}

type ManagerOption func(*Manager)

// WithSessionTTL sets how long minted tokens stay valid.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.sessionTTL = ttl
	}
}

// WithNowFunc overrides the clock (primarily for testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:     signer,
		issuer:     "racan-auth",
		sessionTTL: 24 * time.Hour,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Mint signs a new session token for the given user.
func (m *Manager) Mint(userID, email string) (*Minted, error) {
	now := m.nowFunc()
	expiresAt := now.Add(m.sessionTTL)
	jti := uuid.New().String()

	claims := jwt.MapClaims{
		"iss":   m.issuer,
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"jti":   jti,
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Mint] sign")
	}
	return &Minted{Token: signed, TokenID: jti, ExpiresAt: expiresAt}, nil
}

// Verify checks signature and expiry and returns the claims. Callers must not
// distinguish between the failure modes; a bad token is a bad token.
func (m *Manager) Verify(rawToken string) (*SessionClaims, error) {
	parsed, err := jwt.Parse(rawToken, m.signer.GetVerificationKey,
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, errors.Wrap(err, "[Manager.Verify] invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("[Manager.Verify] error extracting claims")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	if sub == "" || jti == "" {
		return nil, errors.New("[Manager.Verify] token missing subject or jti")
	}

	return &SessionClaims{
		TokenID:   jti,
		UserID:    sub,
		Email:     email,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}

// SessionTTL exposes the configured token lifetime.
func (m *Manager) SessionTTL() time.Duration {
	return m.sessionTTL
}
