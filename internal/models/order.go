package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartLine is a single menu item entry of a cart. Orders keep the same shape
// as an immutable snapshot taken at checkout.
type CartLine struct {
	ItemID    primitive.ObjectID `bson:"itemId" json:"itemId"`
	Name      string             `bson:"name" json:"name"`
	UnitPrice float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Category  string             `bson:"category" json:"category"`
}

// Order defines the persisted order document.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID     string             `bson:"requestId,omitempty" json:"requestId,omitempty"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Lines         []CartLine         `bson:"items" json:"items"`
	TotalAmount   float64            `bson:"totalAmount" json:"totalAmount"`
	PaymentMethod PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	Status        OrderStatus        `bson:"status" json:"status"`
	PreOrderDate  *time.Time         `bson:"preOrderDate" json:"preOrderDate"`
	DeliveryDate  time.Time          `bson:"deliveryDate" json:"deliveryDate"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ResolveDeliveryDate returns the scheduled date when one was chosen and the
// start of the following day otherwise.
func ResolveDeliveryDate(now time.Time, preOrder *time.Time) time.Time {
	if preOrder != nil {
		return *preOrder
	}
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}
