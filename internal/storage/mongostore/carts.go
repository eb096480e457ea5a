package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CartStorage stores each owner's cart snapshot as one document.
type CartStorage struct {
	carts *mongo.Collection
}

type cartDocument struct {
	Owner     string    `bson:"_id"`
	Snapshot  string    `bson:"snapshot"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewCartStorage(db *mongo.Database) *CartStorage {
	return &CartStorage{carts: db.Collection(cartsCollection)}
}

func (s *CartStorage) Load(ctx context.Context, owner string) ([]byte, error) {
	var doc cartDocument
	err := s.carts.FindOne(ctx, bson.M{"_id": owner}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc.Snapshot), nil
}

func (s *CartStorage) Save(ctx context.Context, owner string, snapshot []byte) error {
	update := bson.M{"$set": bson.M{"snapshot": string(snapshot), "updatedAt": time.Now()}}
	_, err := s.carts.UpdateOne(ctx, bson.M{"_id": owner}, update, options.Update().SetUpsert(true))
	return err
}

func (s *CartStorage) Delete(ctx context.Context, owner string) error {
	_, err := s.carts.DeleteOne(ctx, bson.M{"_id": owner})
	return err
}
