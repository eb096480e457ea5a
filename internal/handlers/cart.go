package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/cart"
	"canteen/internal/models"
	"canteen/internal/orders"
)

type addCartItemRequest struct {
	ItemID string `json:"itemId" binding:"required"`
}

type setCartQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func GetCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		view, err := carts.Get(ctx, actor.UserID.Hex())
		if err != nil {
			respondWithDomainError(c, route, orders.UpstreamError{Op: "load cart", Err: err})
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func AddCartItem(carts *cart.Service, menu MenuCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "itemId is required")
			return
		}
		itemID, err := primitive.ObjectIDFromHex(req.ItemID)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid itemId")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		item, err := menu.MenuItem(ctx, itemID)
		if err != nil {
			respondWithDomainError(c, route, lookupError("load menu item", err))
			return
		}

		view, err := carts.Do(ctx, actor.UserID.Hex(), func(store *cart.Store) error {
			return store.Add(ctx, item)
		})
		if err != nil {
			respondWithDomainError(c, route, cartError(err))
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// SetCartQuantity sets a line's quantity, adding the item first when it is
// not in the cart yet. Zero or less removes the line.
func SetCartQuantity(carts *cart.Service, menu MenuCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/items/:itemId"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}
		itemID, ok := objectIDParam(c, route, "itemId")
		if !ok {
			return
		}

		var req setCartQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "quantity is required")
			return
		}
		quantity := *req.Quantity

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		view, err := carts.Do(ctx, actor.UserID.Hex(), func(store *cart.Store) error {
			err := store.SetQuantity(ctx, itemID, quantity)
			if !errors.Is(err, cart.ErrItemNotInCart) {
				return err
			}
			item, err := menu.MenuItem(ctx, itemID)
			if err != nil {
				return lookupError("load menu item", err)
			}
			return store.Upsert(ctx, item, quantity)
		})
		if err != nil {
			respondWithDomainError(c, route, cartError(err))
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func ClearCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := carts.Clear(ctx, actor.UserID.Hex()); err != nil {
			respondWithDomainError(c, route, orders.UpstreamError{Op: "clear cart", Err: err})
			return
		}
		c.JSON(http.StatusOK, cart.View{Lines: []models.CartLine{}})
	}
}

// lookupError marks storage failures as retryable and keeps not-found as is.
func lookupError(op string, err error) error {
	if errors.Is(err, orders.ErrNotFound) {
		return orders.ErrNotFound
	}
	return orders.UpstreamError{Op: op, Err: err}
}

func cartError(err error) error {
	var upstream orders.UpstreamError
	if errors.Is(err, cart.ErrItemNotInCart) || errors.Is(err, orders.ErrNotFound) || errors.As(err, &upstream) {
		return err
	}
	return orders.UpstreamError{Op: "save cart", Err: err}
}
