// handlers_status.go - Report job status polling
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reportdesk/backend/internal/jobs"
	"github.com/reportdesk/backend/internal/models"
)

// StatusHandlerImpl implements the StatusHandler interface
type StatusHandlerImpl struct {
	poller *jobs.Poller
}

// NewStatusHandler creates a new status handler instance
func NewStatusHandler(poller *jobs.Poller) StatusHandler {
	return &StatusHandlerImpl{poller: poller}
}

type statusResponse struct {
	Status string   `json:"status"`
	Files  []string `json:"files"`
}

type progressResponse struct {
	Status string `json:"status"`
}

// HandleCheckExportStatus reports the state of output/<name>.
func (h *StatusHandlerImpl) HandleCheckExportStatus(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return NewValidationError("Folder name is required")
	}

	status, err := h.poller.Poll(name)
	if err != nil {
		return invalidNameError(err, KeyStatus)
	}

	switch status.State {
	case models.JobStateSuccess:
		files := status.Files
		if files == nil {
			files = []string{}
		}
		return c.JSON(http.StatusOK, statusResponse{Status: "success", Files: files})
	case models.JobStateFailed:
		return NewJobFailedError("File generation failed")
	case models.JobStateInProgress:
		return c.JSON(http.StatusOK, progressResponse{Status: "Report generation is still in progress"})
	default:
		return NewNotFoundError("Folder not found")
	}
}
