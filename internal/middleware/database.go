package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConnectionGuard 是 RequireDatabase 需要的連線狀態介面
type ConnectionGuard interface {
	Connected() bool
	EnsureConnected(ctx context.Context) error
}

// RequireDatabase 確保請求進入路由前資料庫已連線。
// 已連線時不做任何 I/O；連線失敗時回應 503 並中止請求。
func RequireDatabase(guard ConnectionGuard, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !guard.Connected() {
			if err := guard.EnsureConnected(c.Request.Context()); err != nil {
				logger.Warn("failed to connect to database",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Error(err))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error":   "Internal Server Error",
					"message": "Database connection unavailable",
				})
				return
			}
		}
		c.Next()
	}
}
