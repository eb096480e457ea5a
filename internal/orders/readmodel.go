package orders

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
)

// Reader is the query side of order persistence. Every listing is newest
// first (createdAt desc, then id desc).
type Reader interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	LatestByUser(ctx context.Context, userID primitive.ObjectID) (models.Order, error)
	List(ctx context.Context, skip, limit int64) ([]models.Order, int64, error)
	All(ctx context.Context) ([]models.Order, error)
	ItemDemand(ctx context.Context) ([]models.ItemDemand, error)
	DailyOrderCounts(ctx context.Context) ([]models.DailyOrderCount, error)
}

type Page struct {
	Number int64
	Size   int64
}

type PageResult struct {
	Orders     []models.Order `json:"orders"`
	Page       int64          `json:"page"`
	Limit      int64          `json:"limit"`
	Total      int64          `json:"total"`
	TotalPages int64          `json:"totalPages"`
}

// Dashboard is the admin summary, recomputed on every call.
type Dashboard struct {
	StatusCounts []StatusCount  `json:"statusCounts"`
	DailyRevenue []DailyRevenue `json:"dailyRevenue"`
}

// ReadModel serves the tracking and admin views. It holds no state between
// calls.
type ReadModel struct {
	reader Reader
}

func NewReadModel(reader Reader) *ReadModel {
	return &ReadModel{reader: reader}
}

// LatestOrderFor returns the most recently created order of userID, or
// ErrNotFound.
func (r *ReadModel) LatestOrderFor(ctx context.Context, actor models.Identity, userID primitive.ObjectID) (models.Order, error) {
	if !actor.CanActFor(userID) {
		return models.Order{}, ErrForbidden
	}
	order, err := r.reader.LatestByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, upstream("find latest order", err)
	}
	return order, nil
}

func (r *ReadModel) HistoryFor(ctx context.Context, actor models.Identity, userID primitive.ObjectID) ([]models.Order, error) {
	if !actor.CanActFor(userID) {
		return nil, ErrForbidden
	}
	orders, err := r.reader.FindByUser(ctx, userID)
	if err != nil {
		return nil, upstream("find user orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (r *ReadModel) AllOrders(ctx context.Context, actor models.Identity, page Page) (PageResult, error) {
	if !actor.IsAdmin() {
		return PageResult{}, ErrForbidden
	}
	if page.Number < 1 || page.Size < 1 {
		return PageResult{}, invalid("page and limit must be positive")
	}
	if page.Number-1 > math.MaxInt64/page.Size {
		return PageResult{}, invalid("page out of range")
	}

	orders, total, err := r.reader.List(ctx, (page.Number-1)*page.Size, page.Size)
	if err != nil {
		return PageResult{}, upstream("list orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}

	totalPages := int64(0)
	if total > 0 {
		totalPages = (total + page.Size - 1) / page.Size
	}
	return PageResult{
		Orders:     orders,
		Page:       page.Number,
		Limit:      page.Size,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func (r *ReadModel) Dashboard(ctx context.Context, actor models.Identity) (Dashboard, error) {
	if !actor.IsAdmin() {
		return Dashboard{}, ErrForbidden
	}
	orders, err := r.reader.All(ctx)
	if err != nil {
		return Dashboard{}, upstream("load orders", err)
	}
	return Dashboard{
		StatusCounts: CountByStatus(orders),
		DailyRevenue: RevenueByDay(orders),
	}, nil
}

func (r *ReadModel) ItemDemand(ctx context.Context) ([]models.ItemDemand, error) {
	demand, err := r.reader.ItemDemand(ctx)
	if err != nil {
		return nil, upstream("aggregate item demand", err)
	}
	return demand, nil
}

func (r *ReadModel) DailyOrderCounts(ctx context.Context) ([]models.DailyOrderCount, error) {
	counts, err := r.reader.DailyOrderCounts(ctx)
	if err != nil {
		return nil, upstream("aggregate daily orders", err)
	}
	return counts, nil
}
