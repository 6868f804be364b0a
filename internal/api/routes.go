// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/reportdesk/backend/internal/jobs"
	"github.com/reportdesk/backend/internal/storage"
	"github.com/reportdesk/backend/internal/trigger"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store               storage.Store
	Poller              *jobs.Poller
	Tasks               *trigger.Manager
	KeepProcessedCopies bool
	Version             string
	Logger              *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Upload  UploadHandler
	Export  ExportHandler
	Status  StatusHandler
	Viewer  ViewerHandler
	Convert ConvertHandler
	Trigger TriggerHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	logger := deps.Logger
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Tasks),
		Upload:  NewUploadHandler(deps.Store, logger),
		Export:  NewExportHandler(deps.Store, logger),
		Status:  NewStatusHandler(deps.Poller),
		Viewer:  NewViewerHandler(deps.Store),
		Convert: NewConvertHandler(deps.Store, deps.KeepProcessedCopies, logger),
		Trigger: NewTriggerHandler(deps.Tasks, logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Ingestion
	apiGroup.POST("/upload", handlers.Upload.HandleUpload)
	apiGroup.POST("/export", handlers.Export.HandleExport)

	// Report jobs
	apiGroup.POST("/trigger-file-process", handlers.Trigger.HandleTriggerFileProcess)
	apiGroup.GET("/checkExportStatus", handlers.Status.HandleCheckExportStatus)
	apiGroup.GET("/viewData", handlers.Viewer.HandleViewData)

	// Conversion lives outside /api
	e.GET("/process-file", handlers.Convert.HandleProcessFile)
}
