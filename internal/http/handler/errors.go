package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/common/id"
	"basegraph.app/sandbox/internal/engine"
	"basegraph.app/sandbox/internal/http/dto"
	"basegraph.app/sandbox/internal/schema"
	"basegraph.app/sandbox/internal/service"
	"basegraph.app/sandbox/internal/store"
)

const (
	ErrorTypeInvalidRequest    = "INVALID_REQUEST"
	ErrorTypeWorkspaceNotFound = "WORKSPACE_NOT_FOUND"
	ErrorTypeTableNotFound     = "TABLE_NOT_FOUND"
	ErrorTypeConflict          = "CONFLICT"
	ErrorTypeHintsUnavailable  = "HINTS_UNAVAILABLE"
	ErrorTypeInternal          = "INTERNAL_ERROR"
)

// errorResponse maps a service error onto a status and the shared error
// envelope. Engine errors without an SQLSTATE never came from the user's
// statement, so they are reported as internal.
func errorResponse(err error) (int, dto.ErrorResponse) {
	var (
		validation  *schema.ValidationError
		unsupported *schema.UnsupportedTypeError
		engineErr   *engine.EngineError
	)

	switch {
	case errors.As(err, &validation):
		resp := dto.Error(validation.Kind(), validation.Error())
		resp.Error.Stage = string(validation.Stage)
		resp.Error.Errors = validation.Messages
		resp.Error.Duplicates = validation.Duplicates
		return http.StatusBadRequest, resp

	case errors.As(err, &unsupported):
		resp := dto.Error(unsupported.Kind(), unsupported.Error())
		resp.Error.SupportedTypes = unsupported.Supported
		return http.StatusBadRequest, resp

	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, dto.Error(ErrorTypeWorkspaceNotFound, "Workspace not found")

	case errors.Is(err, engine.ErrTableNotFound):
		return http.StatusNotFound, dto.Error(ErrorTypeTableNotFound, "Table not found")

	case errors.Is(err, service.ErrTableExists), errors.Is(err, store.ErrConflict):
		return http.StatusConflict, dto.Error(ErrorTypeConflict, err.Error())

	case errors.Is(err, service.ErrHintsDisabled), errors.Is(err, service.ErrHintsUnavailable):
		return http.StatusServiceUnavailable, dto.Error(ErrorTypeHintsUnavailable, "AI hints are not available right now")

	case errors.As(err, &engineErr) && engineErr.Code != "":
		return http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrorBody{
			Type:       engineErr.Class,
			Message:    engineErr.Message,
			Code:       engineErr.Code,
			Suggestion: engineErr.Suggestion,
			Original:   engineErr.Original,
			Detail:     engineErr.Detail,
			Hint:       engineErr.Hint,
			Position:   engineErr.Position,
		}}
	}

	return http.StatusInternalServerError, dto.Error(ErrorTypeInternal, "Internal server error")
}

func respondError(c *gin.Context, err error, msg string) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), msg, "error", err)
	} else {
		slog.InfoContext(c.Request.Context(), msg, "error", err, "status", status)
	}
	c.JSON(status, body)
}

func respondBadRequest(c *gin.Context, err error) {
	slog.WarnContext(c.Request.Context(), "invalid request body", "error", err)
	c.JSON(http.StatusBadRequest, dto.Error(ErrorTypeInvalidRequest, err.Error()))
}

// workspaceID parses the :id path parameter. It writes the 400 itself and
// reports false when the id is malformed.
func workspaceID(c *gin.Context) (int64, bool) {
	v, err := id.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Error(ErrorTypeInvalidRequest, "invalid workspace id"))
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}
