package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"basegraph.app/sandbox/internal/http/dto"
	"basegraph.app/sandbox/internal/schema"
)

// Pinger reports whether a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type MetaHandler struct {
	checks map[string]Pinger
}

func NewMetaHandler(checks map[string]Pinger) *MetaHandler {
	return &MetaHandler{checks: checks}
}

func (h *MetaHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "component", name, "error", err)
			components[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "components": components, "timestamp": time.Now().UTC()})
}

func (h *MetaHandler) DataTypes(c *gin.Context) {
	c.JSON(http.StatusOK, dto.OK(gin.H{
		"recommended": schema.RecommendedTypes(),
		"supported":   schema.SupportedTypes(),
	}))
}
