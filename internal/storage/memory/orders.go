package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
	"canteen/internal/orders"
)

// OrderStore implements orders.Store and orders.Reader.
type OrderStore struct {
	mu        sync.RWMutex
	menu      *Menu
	byID      map[primitive.ObjectID]models.Order
	byRequest map[requestKey]primitive.ObjectID
}

// requestKey scopes idempotency keys to the user that sent them.
type requestKey struct {
	userID    primitive.ObjectID
	requestID string
}

func NewOrderStore(menu *Menu) *OrderStore {
	return &OrderStore{
		menu:      menu,
		byID:      make(map[primitive.ObjectID]models.Order),
		byRequest: make(map[requestKey]primitive.ObjectID),
	}
}

func (s *OrderStore) Insert(_ context.Context, order models.Order, reserveStock bool) (models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := requestKey{userID: order.UserID, requestID: order.RequestID}
	if order.RequestID != "" {
		if id, ok := s.byRequest[key]; ok {
			return clone(s.byID[id]), false, nil
		}
	}
	if reserveStock && s.menu != nil {
		if err := s.menu.reserve(order.Lines); err != nil {
			return models.Order{}, false, err
		}
	}

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	order = clone(order)
	s.byID[order.ID] = order
	if order.RequestID != "" {
		s.byRequest[key] = order.ID
	}
	return clone(order), true, nil
}

func (s *OrderStore) FindByID(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.byID[id]
	if !ok {
		return models.Order{}, orders.ErrNotFound
	}
	return clone(order), nil
}

func (s *OrderStore) CompareAndSetStatus(_ context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) (models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.byID[id]
	if !ok || order.Status != from {
		return models.Order{}, false, nil
	}
	order.Status = to
	order.UpdatedAt = at
	s.byID[id] = order
	return clone(order), true, nil
}

func (s *OrderStore) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, order := range s.byID {
		if order.UserID == userID {
			out = append(out, clone(order))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *OrderStore) LatestByUser(ctx context.Context, userID primitive.ObjectID) (models.Order, error) {
	list, _ := s.FindByUser(ctx, userID)
	if len(list) == 0 {
		return models.Order{}, orders.ErrNotFound
	}
	return list[0], nil
}

func (s *OrderStore) List(ctx context.Context, skip, limit int64) ([]models.Order, int64, error) {
	all, _ := s.All(ctx)
	total := int64(len(all))
	if skip < 0 {
		skip = 0
	}
	if skip >= total || limit <= 0 {
		return []models.Order{}, total, nil
	}
	end := total
	if limit < total-skip {
		end = skip + limit
	}
	return all[skip:end], total, nil
}

func (s *OrderStore) All(_ context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, 0, len(s.byID))
	for _, order := range s.byID {
		out = append(out, clone(order))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *OrderStore) ItemDemand(ctx context.Context) ([]models.ItemDemand, error) {
	all, _ := s.All(ctx)
	return orders.DemandByItem(all), nil
}

func (s *OrderStore) DailyOrderCounts(ctx context.Context) ([]models.DailyOrderCount, error) {
	all, _ := s.All(ctx)
	return orders.OrdersByDay(all), nil
}

func sortNewestFirst(list []models.Order) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID.Hex() > list[j].ID.Hex()
	})
}

// clone detaches the line slice so callers cannot mutate stored snapshots.
func clone(order models.Order) models.Order {
	order.Lines = append([]models.CartLine(nil), order.Lines...)
	if order.PreOrderDate != nil {
		d := *order.PreOrderDate
		order.PreOrderDate = &d
	}
	return order
}
