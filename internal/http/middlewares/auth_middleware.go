package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/octrolabs/userhub/internal/domain/user"
	"github.com/octrolabs/userhub/internal/session"
)

// Keep this small interface so tests can fake it easily.
type SessionResolver interface {
	Resolve(ctx context.Context, handle string) (user.User, error)
}

type AuthMiddleware struct {
	sessions   SessionResolver
	cookieName string
}

func NewAuthMiddleware(sessions SessionResolver, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, cookieName: cookieName}
}

const ctxUserKey = "auth.user"

// RequireAuth resolves the session cookie into a fresh user record and
// stashes it on the context. Requests without a live session never reach
// the downstream handler.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		handle, err := c.Cookie(m.cookieName)
		if err != nil || handle == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Not authenticated",
				},
			})
			return
		}

		u, err := m.sessions.Resolve(c.Request.Context(), handle)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{
						"code":    "unauthorized",
						"message": "Not authenticated",
					},
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Could not resolve session",
				},
			})
			return
		}

		c.Set(ctxUserKey, u)

		c.Next()
	}
}

// Optional helpers so handlers don't need to know the magic keys.

func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}
