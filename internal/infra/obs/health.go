package obs

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency, typically a storage ping.
type HealthCheck func(ctx context.Context) error

// HealthHandlers serves the liveness and readiness probes. Liveness is
// unconditional; readiness runs every registered dependency check and
// names the failing ones, so a degraded probe points at the culprit.
type HealthHandlers struct {
	Service string
	Checks  map[string]HealthCheck
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "service": h.Service})
}

func (h HealthHandlers) Readyz(c *gin.Context) {
	failing := gin.H{}
	for name, check := range h.Checks {
		if err := check(c.Request.Context()); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failing": failing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "service": h.Service})
}
