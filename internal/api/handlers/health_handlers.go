package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/papertrade-service/papertrade_service/pkg/health"
	"github.com/papertrade-service/papertrade_service/pkg/version"
)

// HealthHandlers serves liveness, readiness and version endpoints
type HealthHandlers struct {
	checker   *health.HealthChecker
	startedAt time.Time
}

// NewHealthHandlers creates the health handlers
func NewHealthHandlers(checker *health.HealthChecker) *HealthHandlers {
	return &HealthHandlers{checker: checker, startedAt: time.Now()}
}

// Health handles GET /health. It reports liveness only and always
// returns 200 while the process is up.
func (h *HealthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// Ready handles GET /ready and reports dependency health
func (h *HealthHandlers) Ready(c *gin.Context) {
	status, results := h.checker.Check(c.Request.Context())

	code := http.StatusOK
	if status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": results,
	})
}

// Version handles GET /version
func (h *HealthHandlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
