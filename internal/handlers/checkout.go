package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"canteen/internal/checkout"
	"canteen/internal/models"
)

type deliveryRequest struct {
	Mode         string     `json:"mode" binding:"required,fulfillment"`
	PreOrderDate *time.Time `json:"preOrderDate"`
}

type paymentRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required,paymentmethod"`
}

type confirmPaymentRequest struct {
	CorrelationID string `json:"correlationId" binding:"required"`
}

func BeginCheckout(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		session, err := flow.Begin(c.Request.Context(), actor)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, session)
	}
}

func GetCheckout(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /checkout/:id"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		session, err := flow.Get(c.Request.Context(), actor, c.Param("id"))
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func SetCheckoutDelivery(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /checkout/:id/delivery"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		var req deliveryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, checkout.ErrInvalidFulfillment.Message)
			return
		}

		session, err := flow.SetDelivery(c.Request.Context(), actor, c.Param("id"), checkout.Fulfillment(req.Mode), req.PreOrderDate)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func ChooseCheckoutPayment(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /checkout/:id/payment"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		var req paymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, checkout.ErrNoPaymentMethod.Message)
			return
		}
		method, _ := models.ParsePaymentMethod(req.PaymentMethod)

		session, err := flow.ChoosePayment(c.Request.Context(), actor, c.Param("id"), method)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

// ConfirmCheckoutPayment receives the payment gateway's callback. It is not
// behind user auth; the correlation id identifies the payment intent.
func ConfirmCheckoutPayment(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/:id/payment/confirm"
		defer handlePanic(c, route)

		var req confirmPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "correlationId is required")
			return
		}

		session, err := flow.ConfirmPayment(c.Request.Context(), c.Param("id"), req.CorrelationID)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sessionId": session.ID,
			"confirmed": session.Intent != nil && session.Intent.Confirmed,
		})
	}
}

func SubmitCheckout(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/:id/submit"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		order, err := flow.Submit(ctx, actor, c.Param("id"))
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"order":   order,
			"message": "order placed",
		})
	}
}
