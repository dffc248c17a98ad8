package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything readiness depends on (postgres pool, redis client).
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks   map[string]Pinger
	draining atomic.Bool
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Drain makes readiness fail so the load balancer stops routing here while
// in-flight requests finish.
func (h *HealthHandler) Drain() {
	h.draining.Store(true)
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining.Load() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}

	results := make(map[string]string, len(h.checks))
	ready := true

	for name, ping := range h.checks {
		c, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		err := ping(c)
		cancel()

		if err != nil {
			ready = false
			results[name] = "down"
			continue
		}
		results[name] = "up"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": results})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}
