package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"canteen/internal/analytics"
	"canteen/internal/cart"
	"canteen/internal/checkout"
	"canteen/internal/orders"
)

// respondWithDomainError maps errors from the core packages to a status code
// and a {"error": ...} body.
func respondWithDomainError(c *gin.Context, route string, err error) {
	var (
		validation orders.ValidationError
		stock      orders.OutOfStockError
		upstream   orders.UpstreamError
		script     analytics.UpstreamError
	)

	switch {
	case errors.As(err, &validation):
		respondWithError(c, http.StatusBadRequest, route, validation.Message)
	case errors.Is(err, orders.ErrInvalidTransition):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, cart.ErrItemNotInCart):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, orders.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, err.Error())
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondWithError(c, http.StatusNotFound, route, err.Error())
	case errors.Is(err, analytics.ErrNoData):
		respondWithError(c, http.StatusNotFound, route, err.Error())
	case errors.Is(err, checkout.ErrSessionClosed):
		respondWithError(c, http.StatusConflict, route, err.Error())
	case errors.Is(err, orders.ErrForbidden):
		respondWithError(c, http.StatusForbidden, route, "forbidden")
	case errors.As(err, &stock):
		zap.L().Info("out of stock", zap.String("route", route), zap.String("item_id", stock.ItemID.Hex()))
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":     stock.Error(),
			"itemId":    stock.ItemID.Hex(),
			"available": stock.Available,
			"requested": stock.Requested,
		})
	case errors.As(err, &script):
		zap.L().Error("analytics failed", zap.String("route", route), zap.Error(err))
		respondWithError(c, http.StatusBadGateway, route, "analytics unavailable")
	case errors.As(err, &upstream):
		zap.L().Error("upstream failure", zap.String("route", route), zap.Error(err))
		respondWithError(c, http.StatusServiceUnavailable, route, "service temporarily unavailable, please retry")
	default:
		zap.L().Error("unhandled error", zap.String("route", route), zap.Error(err))
		respondWithError(c, http.StatusInternalServerError, route, "internal server error")
	}
}
