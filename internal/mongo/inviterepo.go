package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/printdesk/printdesk/internal/invite"
)

// InviteRepo stores invite codes with the code itself as the document id.
type InviteRepo struct {
	collection *mongo.Collection
}

func NewInviteRepo(db *mongo.Database) *InviteRepo {
	return &InviteRepo{
		collection: db.Collection("invites"),
	}
}

func (r *InviteRepo) Create(ctx context.Context, inv *invite.Invite) error {
	if inv == nil {
		return fmt.Errorf("invite is nil")
	}

	if _, err := r.collection.InsertOne(ctx, inv); err != nil {
		return fmt.Errorf("cannot create invite: %w", err)
	}

	return nil
}

func (r *InviteRepo) List(ctx context.Context) ([]*invite.Invite, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list invites: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*invite.Invite
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode invites: %w", err)
	}

	return result, nil
}

func (r *InviteRepo) Delete(ctx context.Context, code string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": code})
	if err != nil {
		return fmt.Errorf("cannot delete invite: %w", err)
	}

	if result.DeletedCount == 0 {
		return fmt.Errorf("invite not found")
	}

	return nil
}

// Claim atomically removes and returns the invite, so a code can only
// ever be consumed by one registration. A missing code returns nil.
func (r *InviteRepo) Claim(ctx context.Context, code string) (*invite.Invite, error) {
	var inv invite.Invite
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": code}).Decode(&inv)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot claim invite: %w", err)
	}
	return &inv, nil
}
