package memory

import (
	"context"
	"sync"
)

// CartStorage keeps cart snapshots keyed by owner.
type CartStorage struct {
	mu        sync.Mutex
	snapshots map[string][]byte
}

func NewCartStorage() *CartStorage {
	return &CartStorage{snapshots: make(map[string][]byte)}
}

func (s *CartStorage) Load(_ context.Context, owner string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.snapshots[owner]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *CartStorage) Save(_ context.Context, owner string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[owner] = append([]byte(nil), snapshot...)
	return nil
}

func (s *CartStorage) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, owner)
	return nil
}
