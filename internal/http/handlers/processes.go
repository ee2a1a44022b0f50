package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/octrolabs/userhub/internal/config"
	"github.com/octrolabs/userhub/internal/domain/group"
)

type ProcessesRepo interface {
	List(ctx context.Context) ([]group.Process, error)
	Create(ctx context.Context, name, description string) (group.Process, error)
}

type ProcessesHandler struct {
	processes ProcessesRepo
}

func NewProcessesHandler(processes ProcessesRepo) *ProcessesHandler {
	return &ProcessesHandler{processes: processes}
}

func (h *ProcessesHandler) ListProcesses(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	processes, err := h.processes.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Failed to fetch processes")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, processes)
}

type CreateProcessRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *ProcessesHandler) CreateProcess(ctx *gin.Context) {
	var req CreateProcessRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.processes.Create(cctx, req.Name, req.Description)
	if err != nil {
		RespondInternal(ctx, "Failed to create process")
		return
	}

	ctx.JSON(http.StatusCreated, p)
}
