package repofakes

import (
	"context"
	"sync"

	"github.com/racanlabs/go-auth-service/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	mu   sync.RWMutex
	rows map[string]*sessions.Session
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{rows: make(map[string]*sessions.Session)}
}

func (r *FakeSessionRepo) Insert(_ context.Context, session *sessions.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.rows[session.TokenID] = &cp
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, tokenID string) (*sessions.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rows[tokenID]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *FakeSessionRepo) Delete(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, tokenID)
	return nil
}

// Count reports stored sessions. Test helper.
func (r *FakeSessionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}
