package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/common/logger"
	"basegraph.app/sandbox/internal/http/dto"
	"basegraph.app/sandbox/internal/service"
)

type WorkspaceHandler struct {
	workspaceService service.WorkspaceService
}

func NewWorkspaceHandler(workspaceService service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

func (h *WorkspaceHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	ws, err := h.workspaceService.Create(ctx, req.Name)
	if err != nil {
		respondError(c, err, "failed to create workspace")
		return
	}

	slog.InfoContext(ctx, "workspace created", "workspace_id", ws.ID, "namespace", ws.Namespace)
	c.JSON(http.StatusCreated, dto.OKMessage("Workspace created", dto.ToWorkspaceResponse(ws, nil)))
}

func (h *WorkspaceHandler) List(c *gin.Context) {
	workspaces, err := h.workspaceService.List(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err, "failed to list workspaces")
		return
	}

	out := make([]dto.WorkspaceSummary, 0, len(workspaces))
	for _, ws := range workspaces {
		out = append(out, dto.ToWorkspaceSummary(ws))
	}
	c.JSON(http.StatusOK, dto.OK(out))
}

// Get is the only read that verifies the namespace and rebuilds missing
// tables before answering.
func (h *WorkspaceHandler) Get(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{WorkspaceID: logger.Ptr(id)})

	details, err := h.workspaceService.Get(ctx, id)
	if err != nil {
		respondError(c, err, "failed to load workspace")
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToWorkspaceDetailsResponse(details)))
}

func (h *WorkspaceHandler) Update(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	var req dto.UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	ws, err := h.workspaceService.Update(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err, "failed to update workspace")
		return
	}

	c.JSON(http.StatusOK, dto.OKMessage("Workspace updated", dto.ToWorkspaceResponse(ws, ws.RecentHistory(0))))
}

func (h *WorkspaceHandler) Delete(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	if err := h.workspaceService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "failed to delete workspace")
		return
	}

	c.JSON(http.StatusOK, dto.OKMessage("Workspace deleted", nil))
}

// Sync re-extracts the declared tables from the live namespace, picking up
// changes made through raw SQL.
func (h *WorkspaceHandler) Sync(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	res, err := h.workspaceService.Sync(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to sync workspace")
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToSyncResponse(res)))
}
