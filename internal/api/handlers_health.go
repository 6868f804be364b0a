// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reportdesk/backend/internal/trigger"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version   string
	startedAt time.Time
	tasks     *trigger.Manager
}

// NewHealthHandler creates a new health handler. tasks may be nil.
func NewHealthHandler(version string, tasks *trigger.Manager) HealthHandler {
	return &HealthHandlerImpl{
		version:   version,
		startedAt: time.Now(),
		tasks:     tasks,
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	TrackedTasks  int    `json:"trackedTasks"`
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	if h.tasks != nil {
		resp.TrackedTasks = h.tasks.Len()
	}
	return c.JSON(http.StatusOK, resp)
}
