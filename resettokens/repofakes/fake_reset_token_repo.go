package repofakes

import (
	"context"
	"sync"
	"time"

	"github.com/racanlabs/go-auth-service/resettokens"
)

var _ resettokens.Repo = (*FakeResetTokenRepo)(nil)

type FakeResetTokenRepo struct {
	mu   sync.Mutex
	rows map[string]*resettokens.ResetToken

	// NowFunc is injectable for expiry tests.
	NowFunc func() time.Time
}

func NewFakeResetTokenRepo() *FakeResetTokenRepo {
	return &FakeResetTokenRepo{
		rows:    make(map[string]*resettokens.ResetToken),
		NowFunc: time.Now,
	}
}

func (r *FakeResetTokenRepo) Create(_ context.Context, token *resettokens.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.rows[token.TokenHash] = &cp
	return nil
}

func (r *FakeResetTokenRepo) Claim(_ context.Context, tokenHash string) (*resettokens.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[tokenHash]
	if !ok || t.UsedAt != nil || !r.NowFunc().Before(t.ExpiresAt) {
		return nil, resettokens.ErrInvalid
	}
	now := r.NowFunc()
	t.UsedAt = &now
	cp := *t
	return &cp, nil
}
