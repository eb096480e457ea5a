// Package cart holds a user's cart as a cache of item → quantity. It is never
// trusted for pricing: checkout reprices every line against the menu.
package cart

import (
	"context"
	"encoding/json"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"canteen/internal/models"
	"canteen/internal/money"
)

var ErrItemNotInCart = errors.New("item not in cart")

// Storage keeps the durable snapshot of each owner's cart. Load returns nil
// data and no error when the owner has no snapshot.
type Storage interface {
	Load(ctx context.Context, owner string) ([]byte, error)
	Save(ctx context.Context, owner string, snapshot []byte) error
	Delete(ctx context.Context, owner string) error
}

// Store is one owner's cart. Lines keep insertion order and hold at most one
// line per item id, each with quantity >= 1.
type Store struct {
	owner   string
	lines   []models.CartLine
	storage Storage
	logger  *zap.Logger
}

// Open loads the owner's snapshot. An unreadable snapshot yields an empty
// cart.
func Open(ctx context.Context, storage Storage, owner string, logger *zap.Logger) (*Store, error) {
	s := &Store{owner: owner, storage: storage, logger: logger}

	data, err := storage.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}

	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		logger.Warn("discarding corrupt cart snapshot", zap.String("owner", owner), zap.Error(err))
		return s, nil
	}
	s.lines = sanitize(lines)
	return s, nil
}

// sanitize drops lines a valid snapshot could never contain and merges
// duplicates.
func sanitize(lines []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, 0, len(lines))
	index := make(map[primitive.ObjectID]int, len(lines))
	for _, line := range lines {
		if line.ItemID.IsZero() || line.Quantity <= 0 {
			continue
		}
		if i, ok := index[line.ItemID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.ItemID] = len(out)
		out = append(out, line)
	}
	return out
}

// Add increments the item's quantity, inserting it with quantity 1 when
// absent.
func (s *Store) Add(ctx context.Context, item models.MenuItem) error {
	next := s.Lines()
	for i := range next {
		if next[i].ItemID == item.ID {
			next[i].Quantity++
			return s.commit(ctx, next)
		}
	}
	return s.commit(ctx, append(next, item.Line(1)))
}

// SetQuantity sets the quantity of a line already in the cart; n <= 0
// removes it.
func (s *Store) SetQuantity(ctx context.Context, itemID primitive.ObjectID, n int) error {
	next, found := s.withQuantity(itemID, n)
	if !found {
		if n <= 0 {
			return nil
		}
		return ErrItemNotInCart
	}
	return s.commit(ctx, next)
}

// Upsert is SetQuantity that appends item with quantity n when it is absent.
// Either way the cart is written once.
func (s *Store) Upsert(ctx context.Context, item models.MenuItem, n int) error {
	next, found := s.withQuantity(item.ID, n)
	if !found {
		if n <= 0 {
			return nil
		}
		next = append(next, item.Line(n))
	}
	return s.commit(ctx, next)
}

func (s *Store) withQuantity(itemID primitive.ObjectID, n int) ([]models.CartLine, bool) {
	current := s.Lines()
	next := make([]models.CartLine, 0, len(current)+1)
	found := false
	for _, line := range current {
		if line.ItemID != itemID {
			next = append(next, line)
			continue
		}
		found = true
		if n > 0 {
			line.Quantity = n
			next = append(next, line)
		}
	}
	return next, found
}

// Clear empties the cart and deletes its snapshot.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.owner); err != nil {
		return err
	}
	s.lines = nil
	return nil
}

// Total is the sum of unit price × quantity over all lines.
func (s *Store) Total() float64 {
	return money.Total(s.lines)
}

func (s *Store) Lines() []models.CartLine {
	return append([]models.CartLine(nil), s.lines...)
}

func (s *Store) Len() int {
	return len(s.lines)
}

// commit persists next and only then makes it the current state, so a failed
// write leaves the cart unchanged.
func (s *Store) commit(ctx context.Context, next []models.CartLine) error {
	data, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := s.storage.Save(ctx, s.owner, data); err != nil {
		return err
	}
	s.lines = next
	return nil
}
