package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"user_api/internal/api/handlers"
	"user_api/internal/service"
)

// SetupRoutes 在根路徑掛載所有路由。
// requireDB 掛在需要資料庫的路由上；/health 不經過它，斷線時仍能回報狀態。
func SetupRoutes(r *gin.Engine, services *service.Services, requireDB gin.HandlerFunc) {
	userHandler := handlers.NewUserHandler(services.User)
	healthHandler := handlers.NewHealthHandler(services.Guard)

	r.NoRoute(requireDB, func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	r.GET("/health", healthHandler.Health)

	users := r.Group("/users", requireDB)
	{
		users.POST("/register", userHandler.Register)
		users.GET("", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}
}
