package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/octrolabs/userhub/internal/domain/user"
	"github.com/octrolabs/userhub/internal/http/middlewares"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		cookie         string
		resolved       user.User
		allowed        []user.Role
		wantStatusCode int
	}{
		{
			name:           "admin_allowed",
			cookie:         "h",
			resolved:       admin(),
			allowed:        []user.Role{user.RoleAdmin},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "user_forbidden_on_admin_route",
			cookie:         "h",
			resolved:       member(),
			allowed:        []user.Role{user.RoleAdmin},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "role_in_set_allowed",
			cookie:         "h",
			resolved:       user.User{ID: 3, Role: user.RoleDataTeam},
			allowed:        []user.Role{user.RoleAdmin, user.RoleDataTeam},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "unauthenticated_denied_before_role_check",
			cookie:         "",
			allowed:        []user.Role{user.RoleAdmin},
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{
				resolveFn: func(ctx context.Context, handle string) (user.User, error) {
					return tt.resolved, nil
				},
			}

			m := middlewares.NewAuthMiddleware(resolver, cookieName)
			r := protectedRouter(resolver, m.RequireRole(tt.allowed...))

			w := doGet(t, r, tt.cookie)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

// RequireRole must deny on its own when no identity reached the context,
// even without RequireAuth in front.
func TestRequireRole_Standalone(t *testing.T) {
	m := middlewares.NewAuthMiddleware(&fakeResolver{}, cookieName)

	r := gin.New()
	r.GET("/admin", m.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
