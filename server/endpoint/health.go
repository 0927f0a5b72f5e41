package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/mediascribe/component"
)

// HealthChecker returns the current check of every component.
type HealthChecker func(ctx context.Context) []component.Health

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Timestamp  time.Time              `json:"timestamp"`
	Uptime     string                 `json:"uptime"`
	Components []component.Health     `json:"components"`
}

// Health answers 503 only when a component is unhealthy. A degraded
// service, such as one whose job slots are all taken, answers 200.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	started := time.Now()
	return func(c *gin.Context) {
		body := HealthResponse{
			Service:    serviceName,
			Timestamp:  time.Now().UTC().Truncate(time.Second),
			Uptime:     time.Since(started).Round(time.Second).String(),
			Components: []component.Health{},
		}
		if checker != nil {
			body.Components = append(body.Components, checker(c.Request.Context())...)
		}
		body.Status = component.Overall(body.Components)

		code := http.StatusOK
		if body.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, body)
	}
}
