package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"canteen/internal/models"
	"canteen/internal/orders"
)

// MenuCatalog is the menu storage used by the menu and cart routes.
type MenuCatalog interface {
	List(ctx context.Context) ([]models.MenuItem, error)
	Create(ctx context.Context, item models.MenuItem) (models.MenuItem, error)
	MenuItem(ctx context.Context, id primitive.ObjectID) (models.MenuItem, error)
	SetStock(ctx context.Context, id primitive.ObjectID, stock int) (models.MenuItem, error)
}

type createMenuItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category" binding:"required"`
	Type     string  `json:"type"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	Stock    int     `json:"stock" binding:"gte=0"`
}

type updateStockRequest struct {
	Stock *int `json:"stock" binding:"required,gte=0"`
}

func GetMenu(menu MenuCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /menu"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		items, err := menu.List(ctx)
		if err != nil {
			zap.L().Error("menu list failed", zap.Error(err))
			respondWithError(c, http.StatusServiceUnavailable, route, "menu unavailable")
			return
		}

		category := strings.TrimSpace(c.Query("category"))
		filtered := make([]models.MenuItem, 0, len(items))
		for _, item := range items {
			if category == "" || strings.EqualFold(item.Category, category) {
				filtered = append(filtered, item)
			}
		}
		c.JSON(http.StatusOK, filtered)
	}
}

func GetMenuCategories(menu MenuCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /menu/categories"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		items, err := menu.List(ctx)
		if err != nil {
			zap.L().Error("menu list failed", zap.Error(err))
			respondWithError(c, http.StatusServiceUnavailable, route, "menu unavailable")
			return
		}

		seen := make(map[string]struct{})
		categories := make([]string, 0)
		for _, item := range items {
			if _, ok := seen[item.Category]; ok || item.Category == "" {
				continue
			}
			seen[item.Category] = struct{}{}
			categories = append(categories, item.Category)
		}
		sort.Strings(categories)
		c.JSON(http.StatusOK, categories)
	}
}

func CreateMenuItem(menu MenuCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/menu"
		defer handlePanic(c, route)

		var req createMenuItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		item, err := menu.Create(ctx, models.MenuItem{
			Name:     strings.TrimSpace(req.Name),
			Category: strings.TrimSpace(req.Category),
			Type:     strings.TrimSpace(req.Type),
			Price:    req.Price,
			Stock:    req.Stock,
		})
		if err != nil {
			respondWithDomainError(c, route, orders.UpstreamError{Op: "create menu item", Err: err})
			return
		}

		zap.L().Info("menu item created", zap.String("item_id", item.ID.Hex()), zap.String("name", item.Name))
		c.JSON(http.StatusCreated, item)
	}
}

func UpdateMenuStock(menu MenuCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/menu/:id/stock"
		defer handlePanic(c, route)

		itemID, ok := objectIDParam(c, route, "id")
		if !ok {
			return
		}

		var req updateStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "stock must be a non-negative integer")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		item, err := menu.SetStock(ctx, itemID, *req.Stock)
		if err != nil {
			respondWithDomainError(c, route, lookupError("update stock", err))
			return
		}

		zap.L().Info("menu stock updated", zap.String("item_id", itemID.Hex()), zap.Int("stock", item.Stock))
		c.JSON(http.StatusOK, item)
	}
}
