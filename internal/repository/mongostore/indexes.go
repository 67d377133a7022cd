package mongostore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func productIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "product_code", Value: 1}, {Key: "online_mag", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("products_code_shop_unique"),
		},
		{Keys: bson.D{{Key: "views", Value: -1}}, Options: options.Index().SetName("products_views")},
		{Keys: bson.D{{Key: "manufacturer", Value: 1}, {Key: "price", Value: 1}}, Options: options.Index().SetName("products_manufacturer_price")},
		{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetName("products_created_at")},
	}
}

func userIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(emailCollation).SetName("users_email_unique"),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("users_token"),
		},
	}
}

// EnsureIndexes creates the indexes both stores rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	if _, err := db.Collection(productsCollection).Indexes().CreateMany(ctx, productIndexes()); err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}
	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, userIndexes()); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	log.Info().Str("database", db.Name()).Msg("mongo indexes ready")
	return nil
}
