package orders

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"canteen/internal/models"
	"canteen/internal/money"
)

// Store is the write side of order persistence.
type Store interface {
	// Insert persists order. When order.UserID already owns an order with
	// order.RequestID, that order is returned with created=false and nothing
	// is written. With
	// reserveStock set, stock of every line is decremented in the same atomic
	// unit, or OutOfStockError is returned and nothing is written.
	Insert(ctx context.Context, order models.Order, reserveStock bool) (stored models.Order, created bool, err error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	// CompareAndSetStatus sets status to `to` only if the stored status is
	// still `from`, as one indivisible operation.
	CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, at time.Time) (updated models.Order, matched bool, err error)
}

// Catalog resolves current menu prices.
type Catalog interface {
	MenuItem(ctx context.Context, id primitive.ObjectID) (models.MenuItem, error)
}

// CreateRequest is the order-creation input assembled by checkout or the
// POST /orders handler.
type CreateRequest struct {
	RequestID     string
	UserID        primitive.ObjectID
	Lines         []models.CartLine
	TotalAmount   float64
	PaymentMethod models.PaymentMethod
	PaymentStatus models.PaymentStatus
	PreOrderDate  *time.Time
}

type EngineConfig struct {
	ReserveStock       bool
	RepriceConcurrency int
}

// Engine is the only writer of order documents.
type Engine struct {
	store   Store
	catalog Catalog
	cfg     EngineConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewEngine(store Store, catalog Catalog, cfg EngineConfig, logger *zap.Logger) *Engine {
	if cfg.RepriceConcurrency <= 0 {
		cfg.RepriceConcurrency = 8
	}
	return &Engine{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		logger:  logger.Named("orders"),
		now:     time.Now,
	}
}

// Create validates req, snapshots current menu prices into the lines and
// persists a Pending order.
func (e *Engine) Create(ctx context.Context, actor models.Identity, req CreateRequest) (models.Order, error) {
	if req.UserID.IsZero() {
		return models.Order{}, invalid("userId is required")
	}
	if !actor.CanActFor(req.UserID) {
		return models.Order{}, ErrForbidden
	}
	if len(req.Lines) == 0 {
		return models.Order{}, invalid("at least one item is required")
	}
	switch req.PaymentMethod {
	case models.PaymentCashOnDelivery, models.PaymentOnline:
	default:
		return models.Order{}, invalid("invalid payment method")
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = models.PaymentPending
	}
	if req.PaymentStatus != models.ExpectedPaymentStatus(req.PaymentMethod) {
		if req.PaymentMethod == models.PaymentOnline {
			return models.Order{}, invalid("online payment has not been confirmed")
		}
		return models.Order{}, invalid("invalid payment status for %s", req.PaymentMethod)
	}

	now := e.now()
	if req.PreOrderDate != nil && !req.PreOrderDate.After(now) {
		return models.Order{}, invalid("preOrderDate must be in the future")
	}

	seen := make(map[primitive.ObjectID]struct{}, len(req.Lines))
	for _, line := range req.Lines {
		if line.ItemID.IsZero() {
			return models.Order{}, invalid("invalid itemId")
		}
		if line.Quantity <= 0 {
			return models.Order{}, invalid("quantity must be greater than zero")
		}
		if _, dup := seen[line.ItemID]; dup {
			return models.Order{}, invalid("duplicate item %s", line.ItemID.Hex())
		}
		seen[line.ItemID] = struct{}{}
	}

	lines, err := e.reprice(ctx, req.Lines)
	if err != nil {
		return models.Order{}, err
	}
	total := money.Total(lines)
	if req.PaymentMethod == models.PaymentOnline && !money.Equal(req.TotalAmount, total) {
		e.logger.Warn("repriced total differs from the paid amount",
			zap.String("user_id", req.UserID.Hex()),
			zap.Float64("paid", req.TotalAmount),
			zap.Float64("total", total))
		return models.Order{}, ErrPaidAmountMismatch
	}
	if req.TotalAmount != 0 && !money.Equal(req.TotalAmount, total) {
		e.logger.Warn("client total differs from repriced total",
			zap.String("user_id", req.UserID.Hex()),
			zap.Float64("client_total", req.TotalAmount),
			zap.Float64("total", total))
	}

	order := models.Order{
		RequestID:     req.RequestID,
		UserID:        req.UserID,
		Lines:         lines,
		TotalAmount:   total,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: req.PaymentStatus,
		Status:        models.StatusPending,
		PreOrderDate:  req.PreOrderDate,
		DeliveryDate:  models.ResolveDeliveryDate(now, req.PreOrderDate),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	stored, created, err := e.store.Insert(ctx, order, e.cfg.ReserveStock)
	if err != nil {
		var stockErr OutOfStockError
		if errors.As(err, &stockErr) {
			return models.Order{}, stockErr
		}
		e.logger.Error("failed to save order", zap.String("user_id", req.UserID.Hex()), zap.Error(err))
		return models.Order{}, upstream("insert order", err)
	}

	if stored.UserID != order.UserID {
		e.logger.Warn("request id reused by another user",
			zap.String("user_id", order.UserID.Hex()),
			zap.String("request_id", order.RequestID))
		return models.Order{}, ErrRequestIDConflict
	}

	if created {
		e.logger.Info("order created",
			zap.String("order_id", stored.ID.Hex()),
			zap.String("user_id", stored.UserID.Hex()),
			zap.String("payment_method", string(stored.PaymentMethod)),
			zap.Float64("total_amount", stored.TotalAmount))
	} else {
		e.logger.Info("order request replayed",
			zap.String("order_id", stored.ID.Hex()),
			zap.String("request_id", stored.RequestID))
	}
	return stored, nil
}

func (e *Engine) reprice(ctx context.Context, lines []models.CartLine) ([]models.CartLine, error) {
	priced := make([]models.CartLine, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.RepriceConcurrency)

	for idx := range lines {
		idx := idx
		g.Go(func() error {
			line := lines[idx]
			item, err := e.catalog.MenuItem(gctx, line.ItemID)
			if errors.Is(err, ErrNotFound) {
				return invalid("menu item not found: %s", line.ItemID.Hex())
			}
			if err != nil {
				return upstream("load menu item", err)
			}
			priced[idx] = item.Line(line.Quantity)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return priced, nil
}

// Advance moves an order to requested, which must be the direct successor of
// its current status. Unknown statuses are rejected like backward moves.
func (e *Engine) Advance(ctx context.Context, actor models.Identity, id primitive.ObjectID, requested models.OrderStatus) (models.Order, error) {
	if !actor.IsAdmin() {
		return models.Order{}, ErrForbidden
	}

	from, ok := requested.Previous()
	if !ok {
		current, err := e.store.FindByID(ctx, id)
		if err != nil {
			return models.Order{}, e.lookupError(err)
		}
		return models.Order{}, TransitionError{From: current.Status, To: requested}
	}

	updated, matched, err := e.store.CompareAndSetStatus(ctx, id, from, requested, e.now())
	if err != nil {
		e.logger.Error("failed to update order status", zap.String("order_id", id.Hex()), zap.Error(err))
		return models.Order{}, upstream("update order status", err)
	}
	if matched {
		e.logger.Info("order status advanced",
			zap.String("order_id", id.Hex()),
			zap.String("from", string(from)),
			zap.String("to", string(requested)))
		return updated, nil
	}

	current, err := e.store.FindByID(ctx, id)
	if err != nil {
		return models.Order{}, e.lookupError(err)
	}
	return models.Order{}, TransitionError{From: current.Status, To: requested}
}

func (e *Engine) lookupError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return upstream("find order", err)
}
