package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/pricewatch_api/internal/utils"
)

var startTime = time.Now()

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// HealthHandler provides health endpoint.
type HealthHandler struct {
	checks map[string]Check
}

// NewHealthHandler creates a new HealthHandler for the named checks.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// GetHealth responds with service and dependency status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	deps := gin.H{}
	for _, name := range names {
		status := "connected"
		if err := h.checks[name](ctx); err != nil {
			status = "disconnected"
			healthy = false
		}
		deps[name] = gin.H{"status": status}
	}

	body := gin.H{
		"status":       "healthy",
		"version":      "1.0.0",
		"uptime":       int(time.Since(startTime).Seconds()),
		"dependencies": deps,
	}
	if !healthy {
		body["status"] = "degraded"
		utils.ErrorWithData(c, http.StatusServiceUnavailable, "DEGRADED", "Service is degraded", body)
		return
	}
	utils.Success(c, http.StatusOK, "Service is healthy", body)
}
