// Package sessions persists the server-side row behind each bearer token.
// A session is valid while now < ExpiresAt; expired rows are rejected at read
// time rather than swept in the background.
package sessions

import "time"

type Session struct {
	TokenID   string    `json:"token_id" bson:"_id"` // jti of the signed token
	UserID    string    `json:"user_id" bson:"user_id"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
