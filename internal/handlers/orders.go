package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"canteen/internal/models"
	"canteen/internal/orders"
	"canteen/internal/tracking"
)

const idempotencyHeader = "Idempotency-Key"

type createOrderItemRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	Items         []createOrderItemRequest `json:"items"`
	Lines         []createOrderItemRequest `json:"lines"`
	TotalAmount   float64                  `json:"totalAmount"`
	UserID        string                   `json:"userId" binding:"required"`
	PaymentMethod string                   `json:"paymentMethod" binding:"required,paymentmethod"`
	PaymentStatus string                   `json:"paymentStatus"`
	PreOrderDate  *time.Time               `json:"preOrderDate"`
	RequestID     string                   `json:"requestId"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func CreateOrder(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		create, err := buildCreateRequest(req)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		if create.RequestID == "" {
			create.RequestID = strings.TrimSpace(c.GetHeader(idempotencyHeader))
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := engine.Create(ctx, actor, create)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, order)
	}
}

func buildCreateRequest(req createOrderRequest) (orders.CreateRequest, error) {
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return orders.CreateRequest{}, errors.New("invalid userId")
	}

	items := req.Items
	if len(items) == 0 {
		items = req.Lines
	}
	if len(items) == 0 {
		return orders.CreateRequest{}, errors.New("at least one item is required")
	}

	lines := make([]models.CartLine, 0, len(items))
	for _, item := range items {
		itemID, err := primitive.ObjectIDFromHex(item.ItemID)
		if err != nil {
			return orders.CreateRequest{}, errors.New("invalid itemId")
		}
		lines = append(lines, models.CartLine{ItemID: itemID, Quantity: item.Quantity})
	}

	method, _ := models.ParsePaymentMethod(req.PaymentMethod)

	var status models.PaymentStatus
	switch strings.ToLower(strings.TrimSpace(req.PaymentStatus)) {
	case "":
	case "pending":
		status = models.PaymentPending
	case "success":
		status = models.PaymentSuccess
	default:
		return orders.CreateRequest{}, errors.New("invalid paymentStatus")
	}

	return orders.CreateRequest{
		RequestID:     strings.TrimSpace(req.RequestID),
		UserID:        userID,
		Lines:         lines,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: method,
		PaymentStatus: status,
		PreOrderDate:  req.PreOrderDate,
	}, nil
}

func GetOrders(reads *orders.ReadModel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := reads.AllOrders(ctx, actor, orders.Page{Number: page, Size: limit})
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func GetUserOrders(reads *orders.ReadModel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/user/:userId"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}
		userID, ok := objectIDParam(c, route, "userId")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		history, err := reads.HistoryFor(ctx, actor, userID)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}

		if len(history) == 0 {
			c.JSON(http.StatusOK, gin.H{"orders": history, "message": "no orders"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": history})
	}
}

func GetLatestUserOrder(reads *orders.ReadModel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/user/:userId/latest"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}
		userID, ok := objectIDParam(c, route, "userId")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := reads.LatestOrderFor(ctx, actor, userID)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// UpdateOrderStatus advances an order one step. Unknown status strings are
// passed through so the engine reports a missing order before a bad status.
func UpdateOrderStatus(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}
		orderID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "status is required")
			return
		}

		status, known := models.ParseOrderStatus(req.Status)
		if !known {
			status = models.OrderStatus(req.Status)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := engine.Advance(ctx, actor, orderID, status)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// TrackLatestOrder streams the caller's latest order as server-sent events
// until the client disconnects.
func TrackLatestOrder(reads *orders.ReadModel, interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/track"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		poller := tracking.NewPoller(func(ctx context.Context) (models.Order, error) {
			return reads.LatestOrderFor(ctx, actor, actor.UserID)
		}, interval, zap.L())

		ctx := c.Request.Context()
		poller.Start(ctx)
		defer poller.Stop()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Stream(func(_ io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case u := <-poller.Updates():
				switch {
				case u.Err == nil:
					c.SSEvent("order", u.Order)
				case errors.Is(u.Err, orders.ErrNotFound):
					c.SSEvent("empty", gin.H{"message": "no orders"})
				default:
					c.SSEvent("error", gin.H{"error": "order status temporarily unavailable"})
				}
				return true
			}
		})
	}
}
