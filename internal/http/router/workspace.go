package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/internal/http/handler"
)

// Only creation is budgeted separately; it is the call that provisions a
// namespace.
func WorkspaceRouter(router *gin.RouterGroup, handler *handler.WorkspaceHandler, limits Limits) {
	router.POST("/workspace", limits.Workspace, handler.Create)
	router.GET("/workspaces", handler.List)
	router.GET("/workspace/:id", handler.Get)
	router.PUT("/workspace/:id", handler.Update)
	router.DELETE("/workspace/:id", handler.Delete)
	router.POST("/workspace/:id/sync", handler.Sync)
}
