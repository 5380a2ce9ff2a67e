package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/internal/http/dto"
	"basegraph.app/sandbox/internal/service"
)

type TableHandler struct {
	tableService service.TableService
}

func NewTableHandler(tableService service.TableService) *TableHandler {
	return &TableHandler{tableService: tableService}
}

func (h *TableHandler) Create(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	var req dto.CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	change, err := h.tableService.Create(c.Request.Context(), id, req.ToModel())
	if err != nil {
		respondError(c, err, "failed to create table")
		return
	}

	c.JSON(http.StatusCreated, dto.OKMessage("Table created", dto.ToTableChangeResponse(change)))
}

func (h *TableHandler) List(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	list, err := h.tableService.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to list tables")
		return
	}

	physical := list.PhysicalTables
	if physical == nil {
		physical = []string{}
	}
	c.JSON(http.StatusOK, dto.OK(dto.TableListResponse{
		Tables:         dto.ToTableResponses(list.Tables),
		PhysicalTables: physical,
	}))
}

func (h *TableHandler) Get(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	details, err := h.tableService.Get(c.Request.Context(), id, c.Param("table"))
	if err != nil {
		respondError(c, err, "failed to load table")
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToTableDetailsResponse(details)))
}

func (h *TableHandler) Drop(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	if err := h.tableService.Drop(c.Request.Context(), id, c.Param("table")); err != nil {
		respondError(c, err, "failed to drop table")
		return
	}

	c.JSON(http.StatusOK, dto.OKMessage("Table dropped", nil))
}

func (h *TableHandler) InsertRows(c *gin.Context) {
	id, ok := workspaceID(c)
	if !ok {
		return
	}

	var req dto.InsertRowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	change, err := h.tableService.InsertRows(c.Request.Context(), id, c.Param("table"), req.Rows)
	if err != nil {
		respondError(c, err, "failed to insert rows")
		return
	}

	c.JSON(http.StatusOK, dto.OKMessage("Rows inserted", dto.ToTableChangeResponse(change)))
}
