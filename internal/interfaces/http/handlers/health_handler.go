package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker interface for checking service health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a new health handler. Nil checkers are skipped,
// so a memory-backed deployment reports only what it runs.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	h := &HealthHandler{checks: make(map[string]HealthChecker, len(checks))}
	for name, checker := range checks {
		if checker != nil {
			h.checks[name] = checker
		}
	}
	return h
}

// Health returns the status of every dependency.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	httpStatus := http.StatusOK
	results := make(map[string]string, len(h.checks))

	for name, checker := range h.checks {
		if err := checker.Health(ctx); err != nil {
			results[name] = "unhealthy"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	c.JSON(httpStatus, gin.H{
		"status": status,
		"checks": results,
	})
}

// Ready returns whether the service is ready to accept requests.
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	for _, checker := range h.checks {
		if err := checker.Health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ready": true})
}

// Live returns whether the service is alive.
// GET /live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}
