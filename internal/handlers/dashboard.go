package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"canteen/internal/analytics"
	"canteen/internal/orders"
)

func GetDashboard(reads *orders.ReadModel) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/dashboard"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		dashboard, err := reads.Dashboard(ctx, actor)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, dashboard)
	}
}

func GetDemandAnalysis(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/analytics/demand"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		report, err := svc.AnalyzeDemand(c.Request.Context(), actor)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func GetDemandForecast(svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/analytics/forecast"
		defer handlePanic(c, route)

		actor, ok := requireIdentity(c, route)
		if !ok {
			return
		}

		forecasts, err := svc.PredictDemand(c.Request.Context(), actor)
		if err != nil {
			respondWithDomainError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"forecast": forecasts})
	}
}

// Health reports 503 when the readiness check fails.
func Health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
