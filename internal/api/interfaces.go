// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// UploadHandler handles file uploads with an immediate preview
type UploadHandler interface {
	HandleUpload(c echo.Context) error
}

// ExportHandler serializes a flat JSON payload into a downloadable file
type ExportHandler interface {
	HandleExport(c echo.Context) error
}

// StatusHandler reports report generation job status
type StatusHandler interface {
	HandleCheckExportStatus(c echo.Context) error
}

// ViewerHandler returns the contents of generated files
type ViewerHandler interface {
	HandleViewData(c echo.Context) error
}

// ConvertHandler converts generated files between CSV and Excel
type ConvertHandler interface {
	HandleProcessFile(c echo.Context) error
}

// TriggerHandler starts background report generation
type TriggerHandler interface {
	HandleTriggerFileProcess(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
