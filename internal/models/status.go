package models

import "strings"

// OrderStatus is a position in the fixed order lifecycle.
type OrderStatus string

const (
	StatusPending        OrderStatus = "Pending"
	StatusPreparing      OrderStatus = "Preparing"
	StatusReadyForPickup OrderStatus = "Ready for Pickup"
	StatusCompleted      OrderStatus = "Completed"
)

var statusFlow = []OrderStatus{
	StatusPending,
	StatusPreparing,
	StatusReadyForPickup,
	StatusCompleted,
}

// OrderStatuses returns the lifecycle in order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(statusFlow))
	copy(out, statusFlow)
	return out
}

// Position returns the index of s in the lifecycle, or -1 for unknown values.
func (s OrderStatus) Position() int {
	for i, candidate := range statusFlow {
		if candidate == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s.Position() >= 0
}

// Next returns the status that directly follows s.
func (s OrderStatus) Next() (OrderStatus, bool) {
	pos := s.Position()
	if pos < 0 || pos == len(statusFlow)-1 {
		return "", false
	}
	return statusFlow[pos+1], true
}

// Previous returns the status that directly precedes s.
func (s OrderStatus) Previous() (OrderStatus, bool) {
	pos := s.Position()
	if pos <= 0 {
		return "", false
	}
	return statusFlow[pos-1], true
}

// ParseOrderStatus accepts the stored wire value and its space-free spelling
// ("ReadyForPickup"), case-insensitively.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	key := compactKey(raw)
	for _, s := range statusFlow {
		if compactKey(string(s)) == key {
			return s, true
		}
	}
	return OrderStatus(strings.TrimSpace(raw)), false
}

func compactKey(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), ""))
}
