package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/octrolabs/userhub/internal/config"
	"github.com/octrolabs/userhub/internal/domain/group"
	"github.com/octrolabs/userhub/internal/http/middlewares"
)

type GroupsRepo interface {
	List(ctx context.Context) ([]group.Group, error)
	ListForUser(ctx context.Context, userID int64) ([]group.Group, error)
	Create(ctx context.Context, name, description string) (group.Group, error)
}

type GroupsHandler struct {
	groups GroupsRepo
}

func NewGroupsHandler(groups GroupsRepo) *GroupsHandler {
	return &GroupsHandler{groups: groups}
}

func (h *GroupsHandler) ListGroups(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	groups, err := h.groups.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Failed to fetch groups")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, groups)
}

// UserGroups lists the groups the calling user belongs to.
func (h *GroupsHandler) UserGroups(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Not authenticated")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	groups, err := h.groups.ListForUser(cctx, u.ID)
	if err != nil {
		RespondInternal(ctx, "Failed to fetch user groups")
		return
	}

	ctx.JSON(http.StatusOK, groups)
}

type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *GroupsHandler) CreateGroup(ctx *gin.Context) {
	var req CreateGroupRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	g, err := h.groups.Create(cctx, req.Name, req.Description)
	if err != nil {
		RespondInternal(ctx, "Failed to create group")
		return
	}

	ctx.JSON(http.StatusCreated, g)
}
