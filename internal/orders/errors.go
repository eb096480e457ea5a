package orders

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")

	ErrPaidAmountMismatch = ValidationError{Message: "order total no longer matches the confirmed payment amount"}
	ErrRequestIDConflict  = ValidationError{Message: "requestId already used by another order"}
)

// ValidationError rejects a request before anything is written.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// TransitionError describes a rejected status change. It matches
// ErrInvalidTransition with errors.Is.
type TransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %q -> %q", e.From, e.To)
}

func (e TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// OutOfStockError is returned when stock reservation cannot cover a line.
type OutOfStockError struct {
	ItemID    primitive.ObjectID
	Available int
	Requested int
}

func (e OutOfStockError) Error() string {
	return "menu item out of stock"
}

// UpstreamError wraps a failure of the persistence layer. Callers may retry.
type UpstreamError struct {
	Op  string
	Err error
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var already UpstreamError
	if errors.As(err, &already) {
		return err
	}
	return UpstreamError{Op: op, Err: err}
}
