package resettokens

import (
	"context"
	"errors"
)

// ErrInvalid covers every way a claim can fail: unknown hash, already used,
// expired. Callers get no more detail than that.
var ErrInvalid = errors.New("reset token is invalid or expired")

type Repo interface {
	Create(ctx context.Context, token *ResetToken) error
	// Claim marks the token used and returns it. The mark must be atomic so
	// two concurrent completions cannot both succeed.
	Claim(ctx context.Context, tokenHash string) (*ResetToken, error)
}
