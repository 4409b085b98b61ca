package mongorepo

import (
	"context"
	"errors"
	"time"

	"github.com/racanlabs/go-auth-service/users"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ users.Repo = (*Repo)(nil)

// Repo stores users in the "users" collection. Email uniqueness is enforced
// by a unique index so concurrent sign-ups with the same address cannot both
// win; the application-level duplicate check only exists for the friendly
// error message.
type Repo struct {
	col *mongo.Collection
}

func New(db *mongo.Database) *Repo {
	return &Repo{col: db.Collection("users")}
}

// EnsureIndexes creates the unique email index. Call once at startup.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *Repo) Insert(ctx context.Context, user *users.User) error {
	_, err := r.col.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return users.ErrDuplicateEmail
	}
	return err
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *Repo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *Repo) Update(ctx context.Context, user *users.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return users.ErrNotFound
	}
	return nil
}

func (r *Repo) findOne(ctx context.Context, filter bson.M) (*users.User, error) {
	var u users.User
	err := r.col.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
