package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"canteen/internal/checkout"
	"canteen/internal/models"
)

// RegisterValidators adds the domain tags used in request bindings.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("paymentmethod", func(fl validator.FieldLevel) bool {
		_, ok := models.ParsePaymentMethod(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}
	return v.RegisterValidation("fulfillment", func(fl validator.FieldLevel) bool {
		switch checkout.Fulfillment(fl.Field().String()) {
		case checkout.FulfillmentImmediate, checkout.FulfillmentScheduled:
			return true
		}
		return false
	})
}

// respondValidationError lists one message per failed binding field.
func respondValidationError(c *gin.Context, route string, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		respondWithError(c, http.StatusBadRequest, route, "invalid request body")
		return
	}

	details := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		field := lowerCamel(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			details = append(details, fmt.Sprintf("%s is required", field))
		case "paymentmethod":
			details = append(details, fmt.Sprintf("%s must be CashOnDelivery or OnlinePayment", field))
		case "gt":
			details = append(details, fmt.Sprintf("%s must be greater than %s", field, fieldError.Param()))
		case "gte":
			details = append(details, fmt.Sprintf("%s must be at least %s", field, fieldError.Param()))
		default:
			details = append(details, fmt.Sprintf("%s is invalid", field))
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "validation failed",
		"details": details,
	})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
