package mongorepo

import (
	"context"
	"errors"
	"time"

	"github.com/racanlabs/go-auth-service/resettokens"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var _ resettokens.Repo = (*Repo)(nil)

type Repo struct {
	col *mongo.Collection
}

func New(db *mongo.Database) *Repo {
	return &Repo{col: db.Collection("reset_tokens")}
}

func (r *Repo) Create(ctx context.Context, token *resettokens.ResetToken) error {
	_, err := r.col.InsertOne(ctx, token)
	return err
}

// Claim flips used_at in a single findAndModify so a token can be consumed at
// most once even under concurrent completion attempts.
func (r *Repo) Claim(ctx context.Context, tokenHash string) (*resettokens.ResetToken, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":        tokenHash,
		"used_at":    bson.M{"$exists": false},
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"used_at": now}}

	var t resettokens.ResetToken
	err := r.col.FindOneAndUpdate(ctx, filter, update).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, resettokens.ErrInvalid
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
