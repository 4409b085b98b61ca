package users

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no user matches the lookup.
// ErrDuplicateEmail is returned when an insert collides with the unique email
// index; the storage layer enforces uniqueness even when two sign-ups race.
var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Repo interface {
	Insert(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
}
