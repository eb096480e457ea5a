package cart

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"canteen/internal/models"
)

// View is the cart as returned to clients.
type View struct {
	Lines     []models.CartLine `json:"items"`
	Total     float64           `json:"total"`
	ItemCount int               `json:"itemCount"`
}

// Service serializes access to each owner's cart across requests.
type Service struct {
	storage Storage
	logger  *zap.Logger
	locks   sync.Map
}

func NewService(storage Storage, logger *zap.Logger) *Service {
	return &Service{storage: storage, logger: logger.Named("cart")}
}

func (s *Service) lock(owner string) func() {
	m, _ := s.locks.LoadOrStore(owner, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Do opens the owner's cart and runs fn while holding the owner's lock.
func (s *Service) Do(ctx context.Context, owner string, fn func(*Store) error) (View, error) {
	unlock := s.lock(owner)
	defer unlock()

	store, err := Open(ctx, s.storage, owner, s.logger)
	if err != nil {
		return View{}, err
	}
	if fn != nil {
		if err := fn(store); err != nil {
			return View{}, err
		}
	}
	return viewOf(store), nil
}

func (s *Service) Get(ctx context.Context, owner string) (View, error) {
	return s.Do(ctx, owner, nil)
}

func (s *Service) Lines(ctx context.Context, owner string) ([]models.CartLine, error) {
	view, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	return view.Lines, nil
}

func (s *Service) Clear(ctx context.Context, owner string) error {
	_, err := s.Do(ctx, owner, func(store *Store) error {
		return store.Clear(ctx)
	})
	return err
}

func viewOf(store *Store) View {
	lines := store.Lines()
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	return View{Lines: lines, Total: store.Total(), ItemCount: count}
}
