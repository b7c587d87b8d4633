package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/printdesk/printdesk/internal/authn"
)

type UserRepo struct {
	collection *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{
		collection: db.Collection("users"),
	}
}

func (r *UserRepo) Create(ctx context.Context, user *authn.User) error {
	if user == nil {
		return fmt.Errorf("user is nil")
	}

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("cannot create user: %w", err)
	}

	return nil
}

func (r *UserRepo) GetByEmailLookup(ctx context.Context, lookup []byte) (*authn.User, error) {
	var user authn.User
	err := r.collection.FindOne(ctx, bson.M{"email_lookup": lookup}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get user: %w", err)
	}
	return &user, nil
}
