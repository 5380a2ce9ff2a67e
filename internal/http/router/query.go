package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/internal/http/handler"
)

func QueryRouter(router *gin.RouterGroup, handler *handler.QueryHandler, limits Limits) {
	router.POST("/execute", limits.Query, handler.Execute)
	router.GET("/history", handler.History)
}
