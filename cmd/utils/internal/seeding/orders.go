package seeding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SeedOrders creates demo print orders. The set deliberately mixes the
// current document shape with the legacy field names and date encodings
// still found in old records, so a seeded board exercises the same
// normalization paths production data does.
func SeedOrders(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("orders")
	now := time.Now().UTC()

	docs := []bson.M{
		// Current shape, one per stage.
		{
			"_id":          uuid.NewString(),
			"orderNumber":  "1021",
			"clientName":   "Aurora Verlag",
			"currentStage": "studio",
			"isCompleted":  false,
			"isUrgent":     true,
			"printType":    []string{"digital"},
			"deliveryDate": now.AddDate(0, 0, 3).Format("2006-01-02"),
			"notes":        "Hardcover sample approved by client",
			"createdAt":    now.Add(-48 * time.Hour),
			"updatedAt":    now.Add(-2 * time.Hour),
			"createdBy":    "demo-seed",
		},
		{
			"_id":          uuid.NewString(),
			"orderNumber":  "1022",
			"clientName":   "Bruckmann & Sons",
			"currentStage": "print",
			"isCompleted":  false,
			"isUrgent":     false,
			"printType":    []string{"offset", "digital"},
			"deliveryDate": now.AddDate(0, 0, 7).Format("2006-01-02"),
			"notes":        "",
			"createdAt":    now.Add(-72 * time.Hour),
			"updatedAt":    now.Add(-24 * time.Hour),
			"createdBy":    "demo-seed",
		},
		{
			"_id":          uuid.NewString(),
			"orderNumber":  "1019",
			"clientName":   "Città Futura",
			"currentStage": "bookbinding",
			"isCompleted":  false,
			"isUrgent":     false,
			"printType":    []string{"offset"},
			"deliveryDate": now.AddDate(0, 0, 1).Format("2006-01-02"),
			"notes":        "Thread stitching, foil on spine",
			"createdAt":    now.Add(-120 * time.Hour),
			"updatedAt":    now.Add(-6 * time.Hour),
			"createdBy":    "demo-seed",
		},
		{
			"_id":          uuid.NewString(),
			"orderNumber":  "1007",
			"clientName":   "Haus am See Hotel",
			"currentStage": "completed",
			"isCompleted":  true,
			"isUrgent":     false,
			"printType":    []string{"digital"},
			"deliveryDate": now.AddDate(0, 0, -2).Format("2006-01-02"),
			"notes":        "Picked up by courier",
			"createdAt":    now.Add(-240 * time.Hour),
			"updatedAt":    now.Add(-30 * time.Hour),
			"createdBy":    "demo-seed",
		},

		// Legacy shape: old field names and a split client name.
		{
			"_id":           uuid.NewString(),
			"jobId":         "882",
			"customer":      "Galerie Nord",
			"jobName":       "Vernissage Catalog",
			"trackingStage": "print",
			"technology":    "offset",
			"deliveryDate":  now.AddDate(0, 0, 5).Format("2006-01-02") + "T00:00:00Z",
			"createdAt":     now.Add(-96 * time.Hour),
			"createdBy":     "demo-seed",
		},
		// Legacy shape with an epoch-seconds delivery date and no stage.
		{
			"_id":          uuid.NewString(),
			"jobId":        751,
			"customer":     "Stadtwerke",
			"jobName":      "Annual Report",
			"technology":   "digital",
			"deliveryDate": bson.M{"seconds": now.AddDate(0, 0, 10).Unix()},
			"createdAt":    now.Add(-10 * time.Hour),
			"createdBy":    "demo-seed",
		},
		// Sparse record: everything falls back to placeholders.
		{
			"_id":       uuid.NewString(),
			"notes":     "Walk-in request, details to follow",
			"createdAt": now.Add(-1 * time.Hour),
			"createdBy": "demo-seed",
		},
	}

	for _, doc := range docs {
		_, err := collection.UpdateOne(ctx, bson.M{"_id": doc["_id"]}, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("cannot create demo order %v: %w", doc["_id"], err)
		}
	}

	return nil
}

// SeedInvites creates a couple of open invite codes.
func SeedInvites(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("invites")
	now := time.Now().UTC()

	for _, code := range []string{"DEMO0001", "DEMO0002"} {
		doc := bson.M{
			"_id":       code,
			"createdAt": now,
			"createdBy": "demo-seed",
		}
		_, err := collection.UpdateOne(ctx, bson.M{"_id": code}, bson.M{"$setOnInsert": doc}, options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("cannot create demo invite %s: %w", code, err)
		}
	}

	return nil
}
