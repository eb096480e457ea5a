package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"canteen/internal/models"
	"canteen/internal/orders"
	"canteen/internal/storage/memory"
)

type fixture struct {
	engine *orders.Engine
	reads  *orders.ReadModel
	store  *memory.OrderStore
	menu   *memory.Menu
	samosa models.MenuItem
	tea    models.MenuItem
	user   models.Identity
	admin  models.Identity
	clock  *time.Time
}

func newFixture(t *testing.T, reserveStock bool) *fixture {
	t.Helper()
	menu := memory.NewMenu()
	samosa := menu.Put(models.MenuItem{Name: "Samosa", Category: "Snacks", Type: "veg", Price: 20, Stock: 10})
	tea := menu.Put(models.MenuItem{Name: "Tea", Category: "Drinks", Type: "veg", Price: 10, Stock: 10})
	store := memory.NewOrderStore(menu)

	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	engine := orders.NewEngine(store, menu, orders.EngineConfig{ReserveStock: reserveStock}, zap.NewNop())
	orders.SetClock(engine, func() time.Time { return now })

	return &fixture{
		engine: engine,
		reads:  orders.NewReadModel(store),
		store:  store,
		menu:   menu,
		samosa: samosa,
		tea:    tea,
		user:   models.Identity{UserID: primitive.NewObjectID(), Role: models.RoleUser},
		admin:  models.Identity{UserID: primitive.NewObjectID(), Role: models.RoleAdmin},
		clock:  &now,
	}
}

func (f *fixture) codRequest(lines ...models.CartLine) orders.CreateRequest {
	return orders.CreateRequest{
		UserID:        f.user.UserID,
		Lines:         lines,
		PaymentMethod: models.PaymentCashOnDelivery,
		PaymentStatus: models.PaymentPending,
	}
}

func TestCreateCashOnDeliveryScenario(t *testing.T) {
	f := newFixture(t, false)
	order, err := f.engine.Create(context.Background(), f.user, f.codRequest(f.samosa.Line(2)))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if order.TotalAmount != 40 {
		t.Fatalf("expected totalAmount=40, got %v", order.TotalAmount)
	}
	if order.Status != models.StatusPending {
		t.Fatalf("expected Pending, got %q", order.Status)
	}
	if order.PaymentMethod != models.PaymentCashOnDelivery {
		t.Fatalf("expected CashOnDelivery, got %q", order.PaymentMethod)
	}
	want := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	if !order.DeliveryDate.Equal(want) {
		t.Fatalf("expected delivery tomorrow %v, got %v", want, order.DeliveryDate)
	}
}

func TestCreateRepricesAgainstMenu(t *testing.T) {
	f := newFixture(t, false)
	stale := f.samosa.Line(3)
	stale.UnitPrice = 1
	stale.Name = "Old name"

	req := f.codRequest(stale)
	req.TotalAmount = 3
	order, err := f.engine.Create(context.Background(), f.user, req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if order.Lines[0].UnitPrice != 20 || order.Lines[0].Name != "Samosa" {
		t.Fatalf("expected line repriced from menu, got %+v", order.Lines[0])
	}
	if order.TotalAmount != 60 {
		t.Fatalf("expected recomputed total 60, got %v", order.TotalAmount)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, false)
	past := f.clock.Add(-time.Hour)

	tests := []struct {
		name   string
		mutate func(*orders.CreateRequest)
	}{
		{"empty lines", func(r *orders.CreateRequest) { r.Lines = nil }},
		{"missing user", func(r *orders.CreateRequest) { r.UserID = primitive.NilObjectID }},
		{"unknown payment method", func(r *orders.CreateRequest) { r.PaymentMethod = "Wallet" }},
		{"online without confirmation", func(r *orders.CreateRequest) {
			r.PaymentMethod = models.PaymentOnline
			r.PaymentStatus = models.PaymentPending
		}},
		{"zero quantity", func(r *orders.CreateRequest) { r.Lines[0].Quantity = 0 }},
		{"duplicate item", func(r *orders.CreateRequest) { r.Lines = append(r.Lines, r.Lines[0]) }},
		{"unknown menu item", func(r *orders.CreateRequest) { r.Lines[0].ItemID = primitive.NewObjectID() }},
		{"past pre-order date", func(r *orders.CreateRequest) { r.PreOrderDate = &past }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := f.codRequest(f.samosa.Line(1))
			tc.mutate(&req)
			_, err := f.engine.Create(context.Background(), f.user, req)
			var verr orders.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	all, _ := f.store.All(context.Background())
	if len(all) != 0 {
		t.Fatalf("expected nothing written, got %d orders", len(all))
	}
}

func TestCreateRejectsOtherUsersOrder(t *testing.T) {
	f := newFixture(t, false)
	other := models.Identity{UserID: primitive.NewObjectID(), Role: models.RoleUser}
	_, err := f.engine.Create(context.Background(), other, f.codRequest(f.samosa.Line(1)))
	if !errors.Is(err, orders.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateIsIdempotentOnRequestID(t *testing.T) {
	f := newFixture(t, true)
	req := f.codRequest(f.samosa.Line(2))
	req.RequestID = "req-1"

	first, err := f.engine.Create(context.Background(), f.user, req)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	second, err := f.engine.Create(context.Background(), f.user, req)
	if err != nil {
		t.Fatalf("replayed Create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected replay to return %s, got %s", first.ID.Hex(), second.ID.Hex())
	}

	item, _ := f.menu.MenuItem(context.Background(), f.samosa.ID)
	if item.Stock != 8 {
		t.Fatalf("expected stock reserved once (8 left), got %d", item.Stock)
	}
}

func TestCreateScopesRequestIDToUser(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	other := models.Identity{UserID: primitive.NewObjectID(), Role: models.RoleUser}

	mine := f.codRequest(f.samosa.Line(2))
	mine.RequestID = "shared-key"
	first, err := f.engine.Create(ctx, f.user, mine)
	if err != nil {
		t.Fatalf("first user's Create: %v", err)
	}

	theirs := f.codRequest(f.tea.Line(1))
	theirs.UserID = other.UserID
	theirs.RequestID = "shared-key"
	second, err := f.engine.Create(ctx, other, theirs)
	if err != nil {
		t.Fatalf("second user's Create: %v", err)
	}

	if second.ID == first.ID {
		t.Fatalf("second user received the first user's order %s", first.ID.Hex())
	}
	if second.UserID != other.UserID {
		t.Fatalf("expected order owned by %s, got %s", other.UserID.Hex(), second.UserID.Hex())
	}
	if len(second.Lines) != 1 || second.Lines[0].ItemID != f.tea.ID {
		t.Fatalf("expected the second user's own lines, got %+v", second.Lines)
	}

	replayed, err := f.engine.Create(ctx, other, theirs)
	if err != nil {
		t.Fatalf("replayed Create: %v", err)
	}
	if replayed.ID != second.ID {
		t.Fatalf("expected replay within one user to return %s, got %s", second.ID.Hex(), replayed.ID.Hex())
	}

	all, _ := f.store.All(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}
}

// foreignReplayStore answers every insert with an order owned by someone else.
type foreignReplayStore struct {
	*memory.OrderStore
	existing models.Order
}

func (s foreignReplayStore) Insert(context.Context, models.Order, bool) (models.Order, bool, error) {
	return s.existing, false, nil
}

func TestCreateRejectsReplayOwnedByAnotherUser(t *testing.T) {
	f := newFixture(t, false)
	store := foreignReplayStore{
		OrderStore: f.store,
		existing:   models.Order{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), RequestID: "shared-key"},
	}
	engine := orders.NewEngine(store, f.menu, orders.EngineConfig{}, zap.NewNop())

	req := f.codRequest(f.samosa.Line(1))
	req.RequestID = "shared-key"
	order, err := engine.Create(context.Background(), f.user, req)
	if !errors.Is(err, orders.ErrRequestIDConflict) {
		t.Fatalf("expected ErrRequestIDConflict, got %v", err)
	}
	if !order.ID.IsZero() {
		t.Fatalf("expected no order returned, got %s", order.ID.Hex())
	}
}

func TestCreateOnlineRequiresPaidAmountToMatch(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	req := f.codRequest(f.samosa.Line(2))
	req.PaymentMethod = models.PaymentOnline
	req.PaymentStatus = models.PaymentSuccess
	req.TotalAmount = 30

	_, err := f.engine.Create(ctx, f.user, req)
	if !errors.Is(err, orders.ErrPaidAmountMismatch) {
		t.Fatalf("expected ErrPaidAmountMismatch, got %v", err)
	}
	var verr orders.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	all, _ := f.store.All(ctx)
	if len(all) != 0 {
		t.Fatalf("expected nothing written, got %d orders", len(all))
	}
	item, _ := f.menu.MenuItem(ctx, f.samosa.ID)
	if item.Stock != 10 {
		t.Fatalf("expected stock untouched, got %d", item.Stock)
	}

	req.TotalAmount = 40
	order, err := f.engine.Create(ctx, f.user, req)
	if err != nil {
		t.Fatalf("Create with matching amount: %v", err)
	}
	if order.PaymentStatus != models.PaymentSuccess || order.TotalAmount != 40 {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestCreateReservesStock(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.engine.Create(context.Background(), f.user, f.codRequest(f.samosa.Line(11)))
	var stockErr orders.OutOfStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected OutOfStockError, got %v", err)
	}
	if stockErr.Available != 10 || stockErr.Requested != 11 {
		t.Fatalf("unexpected stock error %+v", stockErr)
	}

	_, err = f.engine.Create(context.Background(), f.user, f.codRequest(f.samosa.Line(4), f.tea.Line(11)))
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected OutOfStockError, got %v", err)
	}
	item, _ := f.menu.MenuItem(context.Background(), f.samosa.ID)
	if item.Stock != 10 {
		t.Fatalf("expected partial reservation to roll back, stock=%d", item.Stock)
	}
}

func TestAdvanceFollowsLifecycle(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	order, err := f.engine.Create(ctx, f.user, f.codRequest(f.samosa.Line(1)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, next := range []models.OrderStatus{models.StatusPreparing, models.StatusReadyForPickup, models.StatusCompleted} {
		updated, err := f.engine.Advance(ctx, f.admin, order.ID, next)
		if err != nil {
			t.Fatalf("Advance to %q: %v", next, err)
		}
		if updated.Status != next {
			t.Fatalf("expected %q, got %q", next, updated.Status)
		}
		for _, s := range append(models.OrderStatuses(), "Cancelled") {
			if s.Position() == next.Position()+1 {
				continue
			}
			if _, err := f.engine.Advance(ctx, f.admin, order.ID, s); !errors.Is(err, orders.ErrInvalidTransition) {
				t.Fatalf("from %q to %q: expected ErrInvalidTransition, got %v", next, s, err)
			}
		}
	}
}

func TestAdvanceRejectsSkipAndRepeat(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	order, _ := f.engine.Create(ctx, f.user, f.codRequest(f.samosa.Line(1)))

	if _, err := f.engine.Advance(ctx, f.admin, order.ID, models.StatusCompleted); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Fatalf("expected skip to be rejected, got %v", err)
	}
	if _, err := f.engine.Advance(ctx, f.admin, order.ID, models.StatusPreparing); err != nil {
		t.Fatalf("first Preparing: %v", err)
	}
	if _, err := f.engine.Advance(ctx, f.admin, order.ID, models.StatusPreparing); !errors.Is(err, orders.ErrInvalidTransition) {
		t.Fatalf("expected repeated Preparing to be rejected, got %v", err)
	}

	current, _ := f.store.FindByID(ctx, order.ID)
	if current.Status != models.StatusPreparing {
		t.Fatalf("rejected transitions must not mutate, got %q", current.Status)
	}
}

func TestAdvanceNotFoundAndForbidden(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if _, err := f.engine.Advance(ctx, f.admin, primitive.NewObjectID(), models.StatusPreparing); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.engine.Advance(ctx, f.admin, primitive.NewObjectID(), "Shipped"); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown status on missing order, got %v", err)
	}

	order, _ := f.engine.Create(ctx, f.user, f.codRequest(f.samosa.Line(1)))
	if _, err := f.engine.Advance(ctx, f.user, order.ID, models.StatusPreparing); !errors.Is(err, orders.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}
}

func TestAdvanceConcurrentRequestsSingleWinner(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	order, _ := f.engine.Create(ctx, f.user, f.codRequest(f.samosa.Line(1)))

	const N = 50
	var mu sync.Mutex
	wins := 0
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < N; i++ {
		g.Go(func() error {
			_, err := f.engine.Advance(gctx, f.admin, order.ID, models.StatusPreparing)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return nil
			}
			if errors.Is(err, orders.ErrInvalidTransition) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful transition, got %d", wins)
	}
}
