package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"user_api/internal/connection"
)

type HealthHandler struct {
	guard *connection.Guard
}

func NewHealthHandler(guard *connection.Guard) *HealthHandler {
	return &HealthHandler{guard: guard}
}

// Health 回報服務與資料庫連線狀態
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": h.guard.Status(),
	})
}
