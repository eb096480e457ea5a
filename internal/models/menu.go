package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type MenuItem struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Category string             `bson:"category" json:"category"`
	Type     string             `bson:"type" json:"type"`
	Price    float64            `bson:"price" json:"price"`
	Stock    int                `bson:"stock" json:"stock"`
	InStock  bool               `bson:"-" json:"inStock"`
}

// Line snapshots the item into a cart line with the given quantity.
func (m MenuItem) Line(quantity int) CartLine {
	return CartLine{
		ItemID:    m.ID,
		Name:      m.Name,
		UnitPrice: m.Price,
		Quantity:  quantity,
		Category:  m.Category,
	}
}
