package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping    func(ctx context.Context) error
	started time.Time
}

// NewHealthHandler takes the readiness probe; nil means always ready.
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping, started: time.Now()}
}

func (h *HealthHandler) Root(ctx *gin.Context) {
	ctx.String(http.StatusOK, "Hello from the users API!")
}

func (h *HealthHandler) API(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "Users API is running!"})
}

func (h *HealthHandler) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":    time.Since(h.started).Seconds(),
	})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.ping != nil {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		defer cancel()

		if err := h.ping(cctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *HealthHandler) NotFound(ctx *gin.Context) {
	RespondNotFound(ctx, "Route not found")
}
