package users

import (
	"time"

	"github.com/racanlabs/go-auth-service/auth"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost 12: slow enough to resist offline brute force on leaked hashes.
const hashCost = 12

type User struct {
	ID               string     `json:"id" bson:"_id"`
	Email            string     `json:"email" bson:"email"` // stored lowercased
	PasswordHash     string     `json:"-" bson:"password_hash"`
	Name             string     `json:"name,omitempty" bson:"name,omitempty"`
	AvatarURL        string     `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" bson:"updated_at"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty" bson:"email_confirmed_at,omitempty"`
}

// View returns the public projection of the user.
func (u *User) View() *auth.UserView {
	return &auth.UserView{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		AvatarURL:        u.AvatarURL,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
		EmailConfirmedAt: u.EmailConfirmedAt,
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	return string(bytes), err
}

// CheckPasswordHash compares a candidate password against a stored hash.
// bcrypt's comparison is constant time with respect to the candidate.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
