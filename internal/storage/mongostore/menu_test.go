package mongostore

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalizeMenuDocumentMixedTypes(t *testing.T) {
	id := primitive.NewObjectID()
	item, err := normalizeMenuDocument(bson.M{
		"_id":      id,
		"name":     "Samosa",
		"category": primitive.A{"Snacks", "Fried"},
		"type":     "veg",
		"price":    int32(20),
		"stock":    int64(4),
	})
	if err != nil {
		t.Fatalf("normalizeMenuDocument returned error: %v", err)
	}
	if item.ID != id || item.Category != "Snacks" || item.Price != 20 || item.Stock != 4 {
		t.Fatalf("unexpected item %+v", item)
	}
	if !item.InStock {
		t.Fatal("expected InStock to be true")
	}
}

func TestNormalizeMenuDocumentMissingStock(t *testing.T) {
	price, _ := primitive.ParseDecimal128("12.50")
	item, err := normalizeMenuDocument(bson.M{
		"name":     "Tea",
		"category": "Drinks",
		"price":    price,
	})
	if err != nil {
		t.Fatalf("normalizeMenuDocument returned error: %v", err)
	}
	if item.Stock != 0 || item.InStock {
		t.Fatalf("expected empty stock, got %+v", item)
	}
	if item.Price != 12.5 {
		t.Fatalf("expected price 12.5, got %v", item.Price)
	}
}
