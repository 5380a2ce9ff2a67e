package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/internal/http/handler"
)

func TableRouter(router *gin.RouterGroup, handler *handler.TableHandler, limits Limits) {
	router.POST("/table", limits.Table, handler.Create)
	router.GET("/tables", handler.List)
	router.GET("/table/:table", handler.Get)
	router.DELETE("/table/:table", limits.Table, handler.Drop)
	router.POST("/table/:table/data", limits.Table, handler.InsertRows)
}
