package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"canteen/internal/models"
	"canteen/internal/orders"
)

type Menu struct {
	items *mongo.Collection
}

func NewMenu(db *mongo.Database) *Menu {
	return &Menu{items: db.Collection(menuCollection)}
}

func (m *Menu) Create(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	item.ID = primitive.NewObjectID()
	if _, err := m.items.InsertOne(ctx, item); err != nil {
		return models.MenuItem{}, err
	}
	item.InStock = item.Stock > 0
	return item, nil
}

func (m *Menu) MenuItem(ctx context.Context, id primitive.ObjectID) (models.MenuItem, error) {
	var raw bson.M
	err := m.items.FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MenuItem{}, orders.ErrNotFound
	}
	if err != nil {
		return models.MenuItem{}, err
	}
	return normalizeMenuDocument(raw)
}

func (m *Menu) List(ctx context.Context) ([]models.MenuItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := m.items.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeMenuItems(ctx, cursor)
}

func (m *Menu) SetStock(ctx context.Context, id primitive.ObjectID, stock int) (models.MenuItem, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var raw bson.M
	err := m.items.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"stock": stock}}, opts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.MenuItem{}, orders.ErrNotFound
	}
	if err != nil {
		return models.MenuItem{}, err
	}
	return normalizeMenuDocument(raw)
}

// normalizeMenuDocument tolerates menu documents written by older tooling,
// where stock and price were stored with mixed numeric types and category
// could be an array.
func normalizeMenuDocument(raw bson.M) (models.MenuItem, error) {
	if cats, ok := raw["category"].(primitive.A); ok {
		raw["category"] = ""
		if len(cats) > 0 {
			if first, ok := cats[0].(string); ok {
				raw["category"] = first
			}
		}
	}

	raw["stock"] = asInt(raw["stock"])
	raw["price"] = asFloat(raw["price"])

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.MenuItem{}, err
	}

	var item models.MenuItem
	if err := bson.Unmarshal(data, &item); err != nil {
		return models.MenuItem{}, err
	}
	item.InStock = item.Stock > 0
	return item, nil
}

func asInt(value interface{}) int {
	switch typed := value.(type) {
	case int32:
		return int(typed)
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case int:
		return typed
	default:
		return 0
	}
}

func asFloat(value interface{}) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case int32:
		return float64(typed)
	case int64:
		return float64(typed)
	case int:
		return float64(typed)
	case primitive.Decimal128:
		f, err := parseDecimal128(typed)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func decodeMenuItems(ctx context.Context, cursor *mongo.Cursor) ([]models.MenuItem, error) {
	items := make([]models.MenuItem, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		item, err := normalizeMenuDocument(raw)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
