package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"canteen/internal/models"
	"canteen/internal/money"
)

type mapStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	failing bool
	saves   int
}

func newMapStorage() *mapStorage {
	return &mapStorage{data: map[string][]byte{}}
}

func (m *mapStorage) Load(_ context.Context, owner string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[owner], nil
}

func (m *mapStorage) Save(_ context.Context, owner string, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("storage unavailable")
	}
	m.data[owner] = snapshot
	m.saves++
	return nil
}

func (m *mapStorage) Delete(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, owner)
	return nil
}

func menuItem(name string, price float64) models.MenuItem {
	return models.MenuItem{ID: primitive.NewObjectID(), Name: name, Category: "Snacks", Price: price, Stock: 50}
}

func TestAddMergesRepeatedItems(t *testing.T) {
	ctx := context.Background()
	storage := newMapStorage()
	store, err := Open(ctx, storage, "u1", zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	samosa := menuItem("Samosa", 20)
	for i := 0; i < 2; i++ {
		if err := store.Add(ctx, samosa); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	lines := store.Lines()
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", lines)
	}
	if store.Total() != 40 {
		t.Fatalf("expected total 40, got %v", store.Total())
	}

	reopened, _ := Open(ctx, storage, "u1", zap.NewNop())
	if reopened.Len() != 1 || reopened.Lines()[0].Quantity != 2 {
		t.Fatalf("expected snapshot persisted after every mutation, got %+v", reopened.Lines())
	}
}

func TestSetQuantityRemovesAtZero(t *testing.T) {
	ctx := context.Background()
	store, _ := Open(ctx, newMapStorage(), "u1", zap.NewNop())
	tea := menuItem("Tea", 10)
	store.Add(ctx, tea)

	if err := store.SetQuantity(ctx, tea.ID, 5); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	if store.Lines()[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %+v", store.Lines())
	}
	if err := store.SetQuantity(ctx, tea.ID, 0); err != nil {
		t.Fatalf("SetQuantity(0): %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected line removed, got %+v", store.Lines())
	}
	if err := store.SetQuantity(ctx, tea.ID, 3); !errors.Is(err, ErrItemNotInCart) {
		t.Fatalf("expected ErrItemNotInCart, got %v", err)
	}
	if err := store.SetQuantity(ctx, tea.ID, -1); err != nil {
		t.Fatalf("removing an absent line should be a no-op, got %v", err)
	}
}

func TestRandomMutationsKeepInvariants(t *testing.T) {
	ctx := context.Background()
	store, _ := Open(ctx, newMapStorage(), "u1", zap.NewNop())
	items := []models.MenuItem{menuItem("Samosa", 20), menuItem("Tea", 10.5), menuItem("Dosa", 45.25)}
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 500; step++ {
		item := items[rng.Intn(len(items))]
		if rng.Intn(2) == 0 {
			if err := store.Add(ctx, item); err != nil {
				t.Fatalf("Add: %v", err)
			}
		} else {
			err := store.SetQuantity(ctx, item.ID, rng.Intn(5)-1)
			if err != nil && !errors.Is(err, ErrItemNotInCart) {
				t.Fatalf("SetQuantity: %v", err)
			}
		}

		seen := map[primitive.ObjectID]bool{}
		for _, line := range store.Lines() {
			if seen[line.ItemID] {
				t.Fatalf("step %d: duplicate line for %s", step, line.Name)
			}
			seen[line.ItemID] = true
			if line.Quantity < 1 {
				t.Fatalf("step %d: line %s has quantity %d", step, line.Name, line.Quantity)
			}
		}
		if got, want := store.Total(), money.Total(store.Lines()); got != want {
			t.Fatalf("step %d: total %v != %v", step, got, want)
		}
	}
}

func TestCorruptSnapshotLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	storage := newMapStorage()
	storage.data["u1"] = []byte("{not json")

	store, err := Open(ctx, storage, "u1", zap.NewNop())
	if err != nil {
		t.Fatalf("expected corrupt snapshot to degrade, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty cart, got %+v", store.Lines())
	}
}

func TestFailedSaveLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	storage := newMapStorage()
	store, _ := Open(ctx, storage, "u1", zap.NewNop())
	samosa := menuItem("Samosa", 20)
	store.Add(ctx, samosa)

	storage.failing = true
	if err := store.Add(ctx, samosa); err == nil {
		t.Fatal("expected save failure")
	}
	if store.Lines()[0].Quantity != 1 {
		t.Fatalf("expected quantity to stay 1, got %+v", store.Lines())
	}
}

func TestUpsertWritesOnce(t *testing.T) {
	ctx := context.Background()
	storage := newMapStorage()
	store, _ := Open(ctx, storage, "u1", zap.NewNop())
	samosa := menuItem("Samosa", 20)

	if err := store.Upsert(ctx, samosa, 4); err != nil {
		t.Fatalf("Upsert absent item: %v", err)
	}
	if storage.saves != 1 {
		t.Fatalf("expected one write for an absent item, got %d", storage.saves)
	}
	if lines := store.Lines(); len(lines) != 1 || lines[0].Quantity != 4 {
		t.Fatalf("unexpected lines %+v", lines)
	}

	if err := store.Upsert(ctx, samosa, 2); err != nil {
		t.Fatalf("Upsert present item: %v", err)
	}
	if storage.saves != 2 || store.Lines()[0].Quantity != 2 {
		t.Fatalf("expected quantity 2 after two writes, got %+v (%d writes)", store.Lines(), storage.saves)
	}

	if err := store.Upsert(ctx, menuItem("Tea", 10), 0); err != nil {
		t.Fatalf("Upsert zero for absent item: %v", err)
	}
	if storage.saves != 2 || store.Len() != 1 {
		t.Fatalf("expected zero quantity on an absent item to be a no-op, got %d writes", storage.saves)
	}

	storage.failing = true
	if err := store.Upsert(ctx, menuItem("Tea", 10), 3); err == nil {
		t.Fatal("expected save error")
	}
	if lines := store.Lines(); len(lines) != 1 || lines[0].ItemID != samosa.ID {
		t.Fatalf("failed upsert changed the cart: %+v", lines)
	}
}

func TestClearDeletesSnapshot(t *testing.T) {
	ctx := context.Background()
	storage := newMapStorage()
	store, _ := Open(ctx, storage, "u1", zap.NewNop())
	store.Add(ctx, menuItem("Samosa", 20))

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("expected empty cart")
	}
	if _, ok := storage.data["u1"]; ok {
		t.Fatal("expected snapshot to be deleted")
	}
}

func TestServiceSerializesConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMapStorage(), zap.NewNop())
	samosa := menuItem("Samosa", 20)

	const N = 100
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < N; i++ {
		g.Go(func() error {
			_, err := svc.Do(gctx, "u1", func(s *Store) error { return s.Add(gctx, samosa) })
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent Add failed: %v", err)
	}

	view, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != N || view.ItemCount != N {
		t.Fatalf("expected quantity %d, got %+v", N, view)
	}
	if view.Total != 2000 {
		t.Fatalf("expected total 2000, got %v", view.Total)
	}
}
