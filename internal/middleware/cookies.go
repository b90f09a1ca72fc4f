package middleware

import (
	"net/url"

	"github.com/gin-gonic/gin"
)

const cookiesKey = "cookies"

// DecodeCookies 解析請求中的 cookie 並存入 context，同名 cookie 以第一個為準
func DecodeCookies() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookies := make(map[string]string)
		for _, cookie := range c.Request.Cookies() {
			if _, seen := cookies[cookie.Name]; seen {
				continue
			}
			value, err := url.QueryUnescape(cookie.Value)
			if err != nil {
				value = cookie.Value
			}
			cookies[cookie.Name] = value
		}
		c.Set(cookiesKey, cookies)
		c.Next()
	}
}

// Cookies 取得 DecodeCookies 解析的結果
func Cookies(c *gin.Context) map[string]string {
	if v, ok := c.Get(cookiesKey); ok {
		if cookies, ok := v.(map[string]string); ok {
			return cookies
		}
	}
	return map[string]string{}
}
