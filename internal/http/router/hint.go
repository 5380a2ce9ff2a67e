package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/internal/http/handler"
)

func HintRouter(router *gin.RouterGroup, handler *handler.HintHandler, limits Limits) {
	router.Use(limits.Hint)
	router.POST("", handler.Generate)
	router.POST("/explain-error", handler.ExplainError)
}
