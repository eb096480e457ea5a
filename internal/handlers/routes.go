package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"canteen/internal/analytics"
	"canteen/internal/cart"
	"canteen/internal/checkout"
	"canteen/internal/middleware"
	"canteen/internal/orders"
)

// Deps are the services behind the HTTP routes.
type Deps struct {
	Engine       *orders.Engine
	Reads        *orders.ReadModel
	Carts        *cart.Service
	Checkout     *checkout.Service
	Menu         MenuCatalog
	Analytics    *analytics.Service
	Health       func(ctx context.Context) error
	JWTSecret    string
	PollInterval time.Duration
	Logger       *zap.Logger
}

func Register(r *gin.Engine, d Deps) {
	userAuth := middleware.UserAuth(d.JWTSecret, d.Logger)

	r.GET("/health", Health(d.Health))
	r.GET("/menu", GetMenu(d.Menu))
	r.GET("/menu/categories", GetMenuCategories(d.Menu))

	// Gateway callback, authenticated by the payment correlation id.
	r.POST("/checkout/:id/payment/confirm", ConfirmCheckoutPayment(d.Checkout))

	user := r.Group("")
	user.Use(userAuth)
	{
		user.GET("/cart", GetCart(d.Carts))
		user.POST("/cart/items", AddCartItem(d.Carts, d.Menu))
		user.PUT("/cart/items/:itemId", SetCartQuantity(d.Carts, d.Menu))
		user.DELETE("/cart", ClearCart(d.Carts))

		user.POST("/checkout", BeginCheckout(d.Checkout))
		user.GET("/checkout/:id", GetCheckout(d.Checkout))
		user.PUT("/checkout/:id/delivery", SetCheckoutDelivery(d.Checkout))
		user.PUT("/checkout/:id/payment", ChooseCheckoutPayment(d.Checkout))
		user.POST("/checkout/:id/submit", SubmitCheckout(d.Checkout))

		user.POST("/orders", CreateOrder(d.Engine))
		user.GET("/orders", GetOrders(d.Reads))
		user.GET("/orders/track", TrackLatestOrder(d.Reads, d.PollInterval))
		user.GET("/orders/user/:userId", GetUserOrders(d.Reads))
		user.GET("/orders/user/:userId/latest", GetLatestUserOrder(d.Reads))
		user.PUT("/orders/:id", UpdateOrderStatus(d.Engine))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(d.JWTSecret, d.Logger))
	{
		admin.GET("/dashboard", GetDashboard(d.Reads))
		admin.POST("/menu", CreateMenuItem(d.Menu))
		admin.PUT("/menu/:id/stock", UpdateMenuStock(d.Menu))
		admin.GET("/analytics/demand", GetDemandAnalysis(d.Analytics))
		admin.GET("/analytics/forecast", GetDemandForecast(d.Analytics))
	}
}
