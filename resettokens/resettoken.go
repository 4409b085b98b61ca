// Package resettokens implements single-use, time-limited password-reset
// tokens. Only the sha256 of the token is stored; the raw value travels to
// the user out-of-band and is claimed atomically exactly once.
package resettokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const TTL = 15 * time.Minute

type ResetToken struct {
	TokenHash string     `bson:"_id"`
	UserID    string     `bson:"user_id"`
	ExpiresAt time.Time  `bson:"expires_at"`
	UsedAt    *time.Time `bson:"used_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at"`
}

// Generate returns a fresh raw token and its storage hash.
func Generate() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, Hash(raw), nil
}

// Hash maps a raw token to its at-rest form.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
