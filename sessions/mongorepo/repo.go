package mongorepo

import (
	"context"
	"errors"

	"github.com/racanlabs/go-auth-service/sessions"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	col *mongo.Collection
}

func New(db *mongo.Database) *Repo {
	return &Repo{col: db.Collection("sessions")}
}

func (r *Repo) Insert(ctx context.Context, session *sessions.Session) error {
	_, err := r.col.InsertOne(ctx, session)
	return err
}

func (r *Repo) Get(ctx context.Context, tokenID string) (*sessions.Session, error) {
	var s sessions.Session
	err := r.col.FindOne(ctx, bson.M{"_id": tokenID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) Delete(ctx context.Context, tokenID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": tokenID})
	return err
}
