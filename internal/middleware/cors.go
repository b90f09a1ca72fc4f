package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS 只允許指定的前端來源，並允許攜帶憑證
func CORS(origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowCredentials = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", "Authorization", "X-Requested-With"}

	for _, o := range origins {
		if o == "*" {
			// 帶憑證時不能回傳 "*"，改為回顯請求來源
			config.AllowOriginFunc = func(string) bool { return true }
			return cors.New(config)
		}
	}
	config.AllowOrigins = origins

	return cors.New(config)
}
