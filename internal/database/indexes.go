package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func EnsureOrderIndexes(db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("userId_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "requestId", Value: 1}},
			Options: options.Index().
				SetName("userId_requestId_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"requestId": bson.M{"$type": "string"},
				}),
		},
	}

	logger.Info("creating order indexes", zap.Int("count", len(models)))
	names, err := indexes.CreateMany(ctx, models)
	if err != nil {
		logger.Error("order index error", zap.Error(err))
		return err
	}
	logger.Info("order indexes ready", zap.Strings("indexes", names))
	return nil
}

func EnsureMenuIndexes(db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	categoryIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetName("category_name"),
	}

	if _, err := db.Collection("menu").Indexes().CreateOne(ctx, categoryIndex); err != nil {
		logger.Error("menu index error", zap.Error(err))
		return err
	}
	logger.Info("menu indexes ready")
	return nil
}

func EnsureCartIndexes(db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	staleIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "updatedAt", Value: 1}},
		Options: options.Index().SetName("updatedAt_index"),
	}

	if _, err := db.Collection("carts").Indexes().CreateOne(ctx, staleIndex); err != nil {
		logger.Error("cart index error", zap.Error(err))
		return err
	}
	logger.Info("cart indexes ready")
	return nil
}
