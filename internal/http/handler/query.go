package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/internal/http/dto"
	"basegraph.app/sandbox/internal/service"
)

type QueryHandler struct {
	queryService service.QueryService
}

func NewQueryHandler(queryService service.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

// Execute runs one statement. Engine failures answer 400 with the
// classified error so the editor can show the suggestion next to it.
func (h *QueryHandler) Execute(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	var req dto.ExecuteQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	outcome, err := h.queryService.Execute(c.Request.Context(), id, req.Query)
	if err != nil {
		respondError(c, err, "query failed")
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToQueryResultResponse(outcome)))
}

func (h *QueryHandler) History(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	history, err := h.queryService.History(c.Request.Context(), id, queryInt(c, "limit"))
	if err != nil {
		respondError(c, err, "failed to load query history")
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.HistoryResponse{History: history, Count: len(history)}))
}
