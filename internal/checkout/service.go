// Package checkout turns a cart and the user's delivery and payment choices
// into a single order-creation request.
package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"canteen/internal/models"
	"canteen/internal/money"
	"canteen/internal/orders"
)

// Cart is the owner-keyed cart the session checks out.
type Cart interface {
	Lines(ctx context.Context, owner string) ([]models.CartLine, error)
	Clear(ctx context.Context, owner string) error
}

// OrderCreator persists the order. It must be idempotent on RequestID.
type OrderCreator interface {
	Create(ctx context.Context, actor models.Identity, req orders.CreateRequest) (models.Order, error)
}

type Config struct {
	GatewayURL string
	SessionTTL time.Duration
	// SimulateConfirmAfter, when positive, confirms every online payment
	// intent automatically after the delay.
	SimulateConfirmAfter time.Duration
}

type entry struct {
	mu      sync.Mutex
	session Session
}

type Service struct {
	cart   Cart
	orders OrderCreator
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewService(cart Cart, creator OrderCreator, cfg Config, logger *zap.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	cfg.GatewayURL = strings.TrimRight(cfg.GatewayURL, "/")
	return &Service{
		cart:     cart,
		orders:   creator,
		cfg:      cfg,
		logger:   logger.Named("checkout"),
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Begin opens a session at the delivery-details step.
func (s *Service) Begin(ctx context.Context, actor models.Identity) (Session, error) {
	if actor.UserID.IsZero() {
		return Session{}, orders.ValidationError{Message: "please log in to complete your order"}
	}
	now := s.now()
	session := Session{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		Step:        StepDeliveryDetails,
		Fulfillment: FulfillmentImmediate,
		RequestID:   uuid.NewString(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.SessionTTL),
	}

	s.mu.Lock()
	s.sweepLocked(now)
	s.sessions[session.ID] = &entry{session: session}
	s.mu.Unlock()

	s.logger.Debug("checkout started", zap.String("session_id", session.ID), zap.String("user_id", actor.UserID.Hex()))
	return session.clone(), nil
}

func (s *Service) sweepLocked(now time.Time) {
	for id, e := range s.sessions {
		if now.After(e.session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *Service) lookup(id string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// acquire returns the locked session entry owned by actor. Sessions of other
// users are reported as not found.
func (s *Service) acquire(actor models.Identity, id string) (*entry, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.session.UserID != actor.UserID {
		e.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (s *Service) Get(_ context.Context, actor models.Identity, id string) (Session, error) {
	e, err := s.acquire(actor, id)
	if err != nil {
		return Session{}, err
	}
	defer e.mu.Unlock()
	return e.session.clone(), nil
}

// SetDelivery records the fulfillment mode. Scheduled orders need a date in
// the future. Changing delivery details discards an earlier payment choice.
func (s *Service) SetDelivery(_ context.Context, actor models.Identity, id string, mode Fulfillment, date *time.Time) (Session, error) {
	e, err := s.acquire(actor, id)
	if err != nil {
		return Session{}, err
	}
	defer e.mu.Unlock()
	if e.session.Step == StepSubmitted {
		return Session{}, ErrSessionClosed
	}

	var preOrder *time.Time
	switch mode {
	case FulfillmentImmediate:
	case FulfillmentScheduled:
		if date == nil || date.IsZero() {
			return Session{}, ErrMissingDeliveryDate
		}
		if !date.After(s.now()) {
			return Session{}, ErrPastDeliveryDate
		}
		d := *date
		preOrder = &d
	default:
		return Session{}, ErrInvalidFulfillment
	}

	e.session.Fulfillment = mode
	e.session.PreOrderDate = preOrder
	e.session.PaymentMethod = ""
	e.session.Intent = nil
	e.session.Step = StepPaymentSelection
	return e.session.clone(), nil
}

// ChoosePayment records the payment method. Online payment issues a fresh
// payment intent for the current cart total.
func (s *Service) ChoosePayment(ctx context.Context, actor models.Identity, id string, method models.PaymentMethod) (Session, error) {
	e, err := s.acquire(actor, id)
	if err != nil {
		return Session{}, err
	}
	defer e.mu.Unlock()

	switch e.session.Step {
	case StepSubmitted:
		return Session{}, ErrSessionClosed
	case StepDeliveryDetails:
		return Session{}, ErrDeliveryFirst
	}

	switch method {
	case models.PaymentCashOnDelivery:
		e.session.Intent = nil
	case models.PaymentOnline:
		lines, err := s.cart.Lines(ctx, e.session.UserID.Hex())
		if err != nil {
			return Session{}, orders.UpstreamError{Op: "load cart", Err: err}
		}
		correlationID := uuid.NewString()
		e.session.Intent = &PaymentIntent{
			Amount:        money.Total(lines),
			CorrelationID: correlationID,
			QRPayload:     s.cfg.GatewayURL + "/qr/" + correlationID,
		}
		if s.cfg.SimulateConfirmAfter > 0 {
			sessionID := e.session.ID
			time.AfterFunc(s.cfg.SimulateConfirmAfter, func() {
				if _, err := s.ConfirmPayment(context.Background(), sessionID, correlationID); err != nil {
					s.logger.Debug("simulated payment not applied", zap.String("session_id", sessionID), zap.Error(err))
				}
			})
		}
	default:
		return Session{}, ErrNoPaymentMethod
	}

	e.session.PaymentMethod = method
	e.session.Step = StepConfirmAndPay
	return e.session.clone(), nil
}

// ConfirmPayment records the external confirmation signal for the session's
// active payment intent. It is not scoped to a user: the payment gateway is
// the caller.
func (s *Service) ConfirmPayment(_ context.Context, id, correlationID string) (Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Step == StepSubmitted {
		return Session{}, ErrSessionClosed
	}
	intent := e.session.Intent
	if e.session.PaymentMethod != models.PaymentOnline || intent == nil || intent.CorrelationID != correlationID {
		return Session{}, ErrUnknownIntent
	}
	if !intent.Confirmed {
		now := s.now()
		intent.Confirmed = true
		intent.ConfirmedAt = &now
		s.logger.Info("online payment confirmed",
			zap.String("session_id", id),
			zap.String("correlation_id", correlationID),
			zap.Float64("amount", intent.Amount))
	}
	return e.session.clone(), nil
}

// Submit places the order. A failed submission leaves the cart and the
// session untouched so it can be retried. A repeated submission after success
// returns the same order.
func (s *Service) Submit(ctx context.Context, actor models.Identity, id string) (models.Order, error) {
	e, err := s.acquire(actor, id)
	if err != nil {
		return models.Order{}, err
	}
	defer e.mu.Unlock()

	session := &e.session
	if session.Step == StepSubmitted && session.Order != nil {
		return *session.clone().Order, nil
	}
	if session.PaymentMethod == "" || session.Step != StepConfirmAndPay {
		return models.Order{}, ErrNoPaymentMethod
	}

	owner := session.UserID.Hex()
	lines, err := s.cart.Lines(ctx, owner)
	if err != nil {
		return models.Order{}, orders.UpstreamError{Op: "load cart", Err: err}
	}
	if len(lines) == 0 {
		return models.Order{}, ErrEmptyCart
	}
	total := money.Total(lines)

	if session.PaymentMethod == models.PaymentOnline {
		if session.Intent == nil || !session.Intent.Confirmed {
			return models.Order{}, ErrPaymentNotConfirmed
		}
		if !money.Equal(session.Intent.Amount, total) {
			return models.Order{}, ErrCartChanged
		}
		// The engine reprices against the menu and refuses anything that no
		// longer equals what the gateway captured.
		total = session.Intent.Amount
	}

	order, err := s.orders.Create(ctx, actor, orders.CreateRequest{
		RequestID:     session.RequestID,
		UserID:        session.UserID,
		Lines:         lines,
		TotalAmount:   total,
		PaymentMethod: session.PaymentMethod,
		PaymentStatus: session.PaymentStatus(),
		PreOrderDate:  session.PreOrderDate,
	})
	if err != nil {
		s.logger.Warn("order submission failed", zap.String("session_id", session.ID), zap.Error(err))
		return models.Order{}, err
	}

	if err := s.cart.Clear(ctx, owner); err != nil {
		s.logger.Warn("failed to clear cart after checkout",
			zap.String("session_id", session.ID),
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err))
	}

	session.Step = StepSubmitted
	session.Order = &order
	return *session.clone().Order, nil
}
