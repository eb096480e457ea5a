package models

import "strings"

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "CashOnDelivery"
	PaymentOnline         PaymentMethod = "OnlinePayment"
)

// ParsePaymentMethod also accepts the short labels used by older clients
// ("COD", "Online").
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cashondelivery", "cod", "cash":
		return PaymentCashOnDelivery, true
	case "onlinepayment", "online":
		return PaymentOnline, true
	default:
		return "", false
	}
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentSuccess PaymentStatus = "Success"
)

// ExpectedPaymentStatus is the payment status an order must carry at creation
// for the given method.
func ExpectedPaymentStatus(method PaymentMethod) PaymentStatus {
	if method == PaymentOnline {
		return PaymentSuccess
	}
	return PaymentPending
}
