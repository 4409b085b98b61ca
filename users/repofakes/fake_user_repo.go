package repofakes

import (
	"context"
	"sync"
	"time"

	"github.com/racanlabs/go-auth-service/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*users.User
	byEmail map[string]string // email -> id
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byID:    make(map[string]*users.User),
		byEmail: make(map[string]string),
	}
}

func (r *FakeUserRepo) Insert(_ context.Context, user *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return users.ErrDuplicateEmail
	}
	cp := *user
	r.byID[user.ID] = &cp
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *FakeUserRepo) Update(_ context.Context, user *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[user.ID]
	if !ok {
		return users.ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	if old.Email != user.Email {
		delete(r.byEmail, old.Email)
		r.byEmail[user.Email] = user.ID
	}
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

// Count reports the number of stored users. Test helper.
func (r *FakeUserRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
