package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coa-classifier/internal/api_gateway/handler"
	"github.com/coa-classifier/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	validationHandler *handler.ValidationHandler,
	applyHandler *handler.ApplyHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Period validation runs
		validations := v1.Group("/validations")
		{
			validations.POST("", validationHandler.Validate)
			validations.GET("/periods", validationHandler.GetPeriods)
		}

		// Per-family recommendations
		v1.GET("/families/:key/recommendation", validationHandler.RecommendFamily)

		// Retroactive impact analysis and apply
		v1.GET("/impact/:code", applyHandler.AnalyzeImpact)
		v1.POST("/classifications/apply", applyHandler.Apply)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
