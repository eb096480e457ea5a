package checkout

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
)

// Step is the position of a session in the checkout flow.
type Step string

const (
	StepDeliveryDetails  Step = "DeliveryDetails"
	StepPaymentSelection Step = "PaymentSelection"
	StepConfirmAndPay    Step = "ConfirmAndPay"
	StepSubmitted        Step = "Submitted"
)

type Fulfillment string

const (
	FulfillmentImmediate Fulfillment = "immediate"
	FulfillmentScheduled Fulfillment = "scheduled"
)

// PaymentIntent correlates an online payment amount with the out-of-band
// confirmation that must arrive before the order can be placed.
type PaymentIntent struct {
	Amount        float64    `json:"amount"`
	CorrelationID string     `json:"correlationId"`
	QRPayload     string     `json:"qrPayload"`
	Confirmed     bool       `json:"confirmed"`
	ConfirmedAt   *time.Time `json:"confirmedAt,omitempty"`
}

// Session is a snapshot of one checkout attempt.
type Session struct {
	ID            string               `json:"id"`
	UserID        primitive.ObjectID   `json:"userId"`
	Step          Step                 `json:"step"`
	Fulfillment   Fulfillment          `json:"fulfillment"`
	PreOrderDate  *time.Time           `json:"preOrderDate"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod,omitempty"`
	Intent        *PaymentIntent       `json:"paymentIntent,omitempty"`
	RequestID     string               `json:"requestId"`
	Order         *models.Order        `json:"order,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	ExpiresAt     time.Time            `json:"expiresAt"`
}

// PaymentStatus is the status recorded on the order when it is created.
func (s Session) PaymentStatus() models.PaymentStatus {
	if s.PaymentMethod == models.PaymentOnline && s.Intent != nil && s.Intent.Confirmed {
		return models.PaymentSuccess
	}
	return models.PaymentPending
}

func (s Session) clone() Session {
	if s.PreOrderDate != nil {
		d := *s.PreOrderDate
		s.PreOrderDate = &d
	}
	if s.Intent != nil {
		intent := *s.Intent
		s.Intent = &intent
	}
	if s.Order != nil {
		order := *s.Order
		order.Lines = append([]models.CartLine(nil), order.Lines...)
		s.Order = &order
	}
	return s
}
