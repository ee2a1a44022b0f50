package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var bodyMethods = map[string]struct{}{
	http.MethodPost:  {},
	http.MethodPut:   {},
	http.MethodPatch: {},
}

// RequireJSON rejects body-carrying requests whose Content-Type is not
// JSON. A charset suffix is fine.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := bodyMethods[c.Request.Method]; ok {
			ct := strings.ToLower(c.GetHeader("Content-Type"))
			if !strings.HasPrefix(ct, "application/json") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"error": gin.H{
						"code":    "unsupported_media_type",
						"message": "Content-Type must be application/json",
					},
				})
				return
			}
		}
		c.Next()
	}
}
