package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
)

// ClearDemo removes all seeded demo data from the printdesk database.
func ClearDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo data cleanup...")

	client, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	db := client.Database(databaseName)

	ordersResult, err := db.Collection("orders").DeleteMany(ctx, bson.M{"createdBy": "demo-seed"})
	if err != nil {
		return fmt.Errorf("delete demo orders: %w", err)
	}
	logger.Info("Deleted demo orders", "count", ordersResult.DeletedCount)

	invitesResult, err := db.Collection("invites").DeleteMany(ctx, bson.M{"createdBy": "demo-seed"})
	if err != nil {
		return fmt.Errorf("delete demo invites: %w", err)
	}
	logger.Info("Deleted demo invites", "count", invitesResult.DeletedCount)

	trackerResult, err := db.Collection("_seeds").DeleteOne(ctx, bson.M{"_id": "demo_board_v1"})
	if err != nil {
		return fmt.Errorf("delete seed tracker: %w", err)
	}
	logger.Info("Cleared seed tracker", "deleted", trackerResult.DeletedCount)

	return nil
}
