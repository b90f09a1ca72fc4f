package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// DecodeBody 限制請求體大小，並預先解析 urlencoded 表單。
// JSON 請求體由 handler 透過 gin binding 解析。
func DecodeBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		if c.ContentType() == binding.MIMEPOSTForm {
			if err := c.Request.ParseForm(); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
					return
				}
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed form body"})
				return
			}
		}

		c.Next()
	}
}
