package sessions

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

type Repo interface {
	Insert(ctx context.Context, session *Session) error
	Get(ctx context.Context, tokenID string) (*Session, error)
	// Delete removes the session. Deleting a missing session is not an error;
	// sign-out is idempotent.
	Delete(ctx context.Context, tokenID string) error
}
