package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"canteen/internal/middleware"
	"canteen/internal/models"
)

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		zap.L().Error("panic recovered", zap.String("route", route), zap.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	zap.L().Debug("returning error",
		zap.String("route", route),
		zap.Int("status", status),
		zap.String("error", message),
		zap.String("request_id", middleware.RequestIDFrom(c)))
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// requireIdentity returns the caller set by the auth middleware, or writes a
// 401.
func requireIdentity(c *gin.Context, route string) (models.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return models.Identity{}, false
	}
	return identity, true
}

func objectIDParam(c *gin.Context, route, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}
