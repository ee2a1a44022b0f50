package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/octrolabs/userhub/internal/domain/user"
)

// RequireRole denies with 401 when no identity reached the context and
// 403 when the identity's role is outside the allowed set. It must run
// after RequireAuth on role-gated routes, but also holds up standalone:
// an absent user denies regardless.
func (m *AuthMiddleware) RequireRole(allowed ...user.Role) gin.HandlerFunc {
	allowedSet := make(map[user.Role]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		u, ok := CurrentUser(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		if _, ok := allowedSet[u.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Insufficient role",
				},
			})
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(user.RoleAdmin)
}
