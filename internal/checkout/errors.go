package checkout

import (
	"errors"

	"canteen/internal/orders"
)

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrSessionClosed   = errors.New("checkout session already submitted")

	ErrEmptyCart           = orders.ValidationError{Message: "your cart is empty"}
	ErrNoPaymentMethod     = orders.ValidationError{Message: "please select a payment method"}
	ErrMissingDeliveryDate = orders.ValidationError{Message: "please select a delivery date for your pre-order"}
	ErrPastDeliveryDate    = orders.ValidationError{Message: "delivery date must be in the future"}
	ErrDeliveryFirst       = orders.ValidationError{Message: "please complete delivery details first"}
	ErrPaymentNotConfirmed = orders.ValidationError{Message: "online payment has not been confirmed"}
	ErrUnknownIntent       = orders.ValidationError{Message: "payment confirmation does not match the active payment intent"}
	ErrCartChanged         = orders.ValidationError{Message: "cart changed after payment; please choose a payment method again"}
	ErrInvalidFulfillment  = orders.ValidationError{Message: "fulfillment must be immediate or scheduled"}
)
