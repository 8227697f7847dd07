package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Import pipeline: upload -> preview (repeatable) -> confirm (terminal)
		v1.POST("/imports", handler.Upload)
		v1.POST("/imports/:draft_id/preview", handler.Preview)
		v1.POST("/imports/:draft_id/confirm", handler.Confirm)

		// Unitary grade matrix path
		v1.GET("/grades", handler.GetGrades)
		v1.PUT("/grades", handler.PutGrades)
	}
}
