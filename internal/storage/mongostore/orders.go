// Package mongostore persists orders, menu items and cart snapshots in
// MongoDB.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"canteen/internal/models"
	"canteen/internal/orders"
)

const (
	ordersCollection = "orders"
	menuCollection   = "menu"
	cartsCollection  = "carts"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

type OrderStore struct {
	db     *mongo.Database
	orders *mongo.Collection
	menu   *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{
		db:     db,
		orders: db.Collection(ordersCollection),
		menu:   db.Collection(menuCollection),
	}
}

// Insert runs the idempotency check, the stock reservation and the insert in
// one transaction.
func (s *OrderStore) Insert(ctx context.Context, order models.Order, reserveStock bool) (models.Order, bool, error) {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return models.Order{}, false, err
	}
	defer session.EndSession(ctx)

	var stored models.Order
	created := false
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		created = false
		if order.RequestID != "" {
			existing, err := s.findByRequestID(sessCtx, order.UserID, order.RequestID)
			if err == nil {
				stored = existing
				return nil, nil
			}
			if !errors.Is(err, orders.ErrNotFound) {
				return nil, err
			}
		}

		if reserveStock {
			for _, line := range order.Lines {
				if err := s.reserve(sessCtx, line); err != nil {
					return nil, err
				}
			}
		}

		doc := order
		if doc.ID.IsZero() {
			doc.ID = primitive.NewObjectID()
		}
		if _, err := s.orders.InsertOne(sessCtx, doc); err != nil {
			return nil, err
		}
		stored = doc
		created = true
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) && order.RequestID != "" {
			existing, findErr := s.findByRequestID(ctx, order.UserID, order.RequestID)
			if findErr != nil {
				return models.Order{}, false, findErr
			}
			return existing, false, nil
		}
		return models.Order{}, false, err
	}
	return stored, created, nil
}

func (s *OrderStore) reserve(ctx context.Context, line models.CartLine) error {
	filter := bson.M{
		"_id":   line.ItemID,
		"stock": bson.M{"$gte": line.Quantity},
	}
	update := bson.M{"$inc": bson.M{"stock": -line.Quantity}}

	res, err := s.menu.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	available := 0
	var raw bson.M
	if err := s.menu.FindOne(ctx, bson.M{"_id": line.ItemID}).Decode(&raw); err == nil {
		if item, err := normalizeMenuDocument(raw); err == nil {
			available = item.Stock
		}
	}
	return orders.OutOfStockError{ItemID: line.ItemID, Available: available, Requested: line.Quantity}
}

// findByRequestID looks the key up within one user's orders; the unique index
// is on {userId, requestId}.
func (s *OrderStore) findByRequestID(ctx context.Context, userID primitive.ObjectID, requestID string) (models.Order, error) {
	var order models.Order
	err := s.orders.FindOne(ctx, bson.M{"userId": userID, "requestId": requestID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, orders.ErrNotFound
	}
	return order, err
}

func (s *OrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	var order models.Order
	err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, orders.ErrNotFound
	}
	return order, err
}

// CompareAndSetStatus filters on the expected current status so the check and
// the write are a single FindOneAndUpdate.
func (s *OrderStore) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) (models.Order, bool, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err := s.orders.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, false, nil
	}
	if err != nil {
		return models.Order{}, false, err
	}
	return order, true, nil
}

func (s *OrderStore) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.find(ctx, bson.M{"userId": userID}, options.Find().SetSort(newestFirst))
}

func (s *OrderStore) LatestByUser(ctx context.Context, userID primitive.ObjectID) (models.Order, error) {
	var order models.Order
	opts := options.FindOne().SetSort(newestFirst)
	err := s.orders.FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, orders.ErrNotFound
	}
	return order, err
}

func (s *OrderStore) List(ctx context.Context, skip, limit int64) ([]models.Order, int64, error) {
	total, err := s.orders.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSkip(skip).
		SetLimit(limit).
		SetSort(newestFirst)
	list, err := s.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (s *OrderStore) All(ctx context.Context) ([]models.Order, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(newestFirst))
}

func (s *OrderStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Order, error) {
	cursor, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := make([]models.Order, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ItemDemand counts, per item name, the orders that contained it.
func (s *OrderStore) ItemDemand(ctx context.Context) ([]models.ItemDemand, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$items.name"},
			{Key: "order_count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "item", Value: "$_id"},
			{Key: "order_count", Value: 1},
			{Key: "_id", Value: 0},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "item", Value: 1}}}},
	}

	cursor, err := s.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]models.ItemDemand, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DailyOrderCounts counts orders per UTC creation day.
func (s *OrderStore) DailyOrderCounts(ctx context.Context) ([]models.DailyOrderCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$createdAt"},
			}}}},
			{Key: "order_count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "date", Value: "$_id"},
			{Key: "order_count", Value: 1},
			{Key: "_id", Value: 0},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: 1}}}},
	}

	cursor, err := s.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]models.DailyOrderCount, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
