package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/octrolabs/userhub/internal/config"
	"github.com/octrolabs/userhub/internal/domain/user"
	"github.com/octrolabs/userhub/internal/repo/postgres"
)

type UserLister interface {
	List(ctx context.Context) ([]user.User, error)
}

type RoleUpdater interface {
	UpdateRole(ctx context.Context, id int64, role user.Role) error
}

type UsersHandler struct {
	users UserLister
	roles RoleUpdater
}

func NewUsersHandler(users UserLister, roles RoleUpdater) *UsersHandler {
	return &UsersHandler{users: users, roles: roles}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Failed to fetch users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, users)
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole changes a user's role. Nothing stops an admin from demoting
// the last remaining admin; see DESIGN.md.
func (h *UsersHandler) UpdateRole(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		RespondBadRequest(ctx, "Invalid user id", nil)
		return
	}

	var req UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	role, ok := user.ParseRole(req.Role)
	if !ok {
		RespondBadRequest(ctx, "Invalid role", gin.H{"role": req.Role})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err = h.roles.UpdateRole(cctx, id, role)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Failed to update user role")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User role updated successfully"})
}
