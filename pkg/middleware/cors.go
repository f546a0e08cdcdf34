package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS はクロスオリジンリクエストを許可するGinミドルウェアを返す。
// allowedOriginsが空の場合はすべてのオリジンを許可する。
// オリジンを指定した場合は一致したリクエストのみ許可ヘッダーを付与する。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := origin
		if len(originsSet) == 0 {
			allowed = "*"
		} else if _, ok := originsSet[origin]; !ok {
			allowed = ""
		}

		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
