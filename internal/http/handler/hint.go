package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/internal/http/dto"
	"basegraph.app/sandbox/internal/service"
)

type HintHandler struct {
	hintService service.HintService
}

func NewHintHandler(hintService service.HintService) *HintHandler {
	return &HintHandler{hintService: hintService}
}

func (h *HintHandler) Generate(c *gin.Context) {
	var req dto.HintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	hint, err := h.hintService.Generate(c.Request.Context(), req.ToService())
	if err != nil {
		respondError(c, err, "failed to generate hint")
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToHintResponse(hint)))
}

func (h *HintHandler) ExplainError(c *gin.Context) {
	var req dto.ExplainErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	queryErr := service.QueryErrorContext{Type: req.Error.Type, Message: req.Error.Message}
	hint, err := h.hintService.ExplainError(c.Request.Context(), req.WorkspaceID, req.Query, queryErr)
	if err != nil {
		respondError(c, err, "failed to explain error")
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ExplainErrorResponse{
		Explanation:   hint.Text,
		ErrorType:     req.Error.Type,
		OriginalError: req.Error.Message,
	}))
}
