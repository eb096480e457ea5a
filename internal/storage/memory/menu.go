// Package memory keeps orders, menu items and cart snapshots in process. It
// backs STORAGE_BACKEND=memory and the tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
	"canteen/internal/orders"
)

type Menu struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]models.MenuItem
}

func NewMenu(items ...models.MenuItem) *Menu {
	m := &Menu{items: make(map[primitive.ObjectID]models.MenuItem)}
	for _, item := range items {
		m.Put(item)
	}
	return m
}

// Put inserts or replaces an item, assigning an id when missing.
func (m *Menu) Put(item models.MenuItem) models.MenuItem {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return withInStock(item)
}

func (m *Menu) Create(_ context.Context, item models.MenuItem) (models.MenuItem, error) {
	item.ID = primitive.NilObjectID
	return m.Put(item), nil
}

func (m *Menu) MenuItem(_ context.Context, id primitive.ObjectID) (models.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return models.MenuItem{}, orders.ErrNotFound
	}
	return withInStock(item), nil
}

func (m *Menu) List(_ context.Context) ([]models.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.MenuItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, withInStock(item))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Menu) SetStock(_ context.Context, id primitive.ObjectID, stock int) (models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return models.MenuItem{}, orders.ErrNotFound
	}
	item.Stock = stock
	m.items[id] = item
	return withInStock(item), nil
}

// reserve decrements stock for every line or for none of them.
func (m *Menu) reserve(lines []models.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range lines {
		item, ok := m.items[line.ItemID]
		if !ok {
			return orders.OutOfStockError{ItemID: line.ItemID, Requested: line.Quantity}
		}
		if item.Stock < line.Quantity {
			return orders.OutOfStockError{ItemID: line.ItemID, Available: item.Stock, Requested: line.Quantity}
		}
	}
	for _, line := range lines {
		item := m.items[line.ItemID]
		item.Stock -= line.Quantity
		m.items[line.ItemID] = item
	}
	return nil
}

func withInStock(item models.MenuItem) models.MenuItem {
	item.InStock = item.Stock > 0
	return item
}
