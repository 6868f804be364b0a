// handlers_trigger.go - Background report generation
package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reportdesk/backend/internal/logging"
	"github.com/reportdesk/backend/internal/trigger"
)

// TriggerHandlerImpl implements the TriggerHandler interface
type TriggerHandlerImpl struct {
	tasks  *trigger.Manager
	logger *slog.Logger
}

// NewTriggerHandler creates a new trigger handler instance
func NewTriggerHandler(tasks *trigger.Manager, logger *slog.Logger) TriggerHandler {
	return &TriggerHandlerImpl{
		tasks:  tasks,
		logger: logging.OrDefault(logger),
	}
}

type triggerRequest struct {
	Filename string `json:"filename" validate:"required"`
}

type triggerResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// HandleTriggerFileProcess starts report generation for a file and returns
// 202 at once. Progress is only visible through the job's sentinel files.
func (h *TriggerHandlerImpl) HandleTriggerFileProcess(c echo.Context) error {
	if !isJSONRequest(c) {
		return NewValidationError("Invalid input format, expected JSON.")
	}

	var body map[string]interface{}
	if err := c.Bind(&body); err != nil {
		return NewValidationError("Invalid input format, expected JSON.")
	}

	// bound loosely so a non-string filename gets the filename message
	filename, _ := body["filename"].(string)
	req := triggerRequest{Filename: filename}
	if err := c.Validate(&req); err != nil {
		return NewValidationError("Invalid or missing filename.")
	}

	task := h.tasks.Start(req.Filename)
	h.logger.Info("file processing triggered", "file", req.Filename, "task", task.ID)

	return c.JSON(http.StatusAccepted, triggerResponse{
		Status:   "Success",
		Message:  "File processing started",
		Filename: req.Filename,
	})
}
