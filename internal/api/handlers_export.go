// handlers_export.go - Flat JSON payload export
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/reportdesk/backend/internal/logging"
	"github.com/reportdesk/backend/internal/models"
	"github.com/reportdesk/backend/internal/storage"
	"github.com/reportdesk/backend/internal/tabular"
)

const exportTypeKey = "export_type"

// ExportHandlerImpl implements the ExportHandler interface
type ExportHandlerImpl struct {
	store  storage.Store
	logger *slog.Logger
}

// NewExportHandler creates a new export handler instance
func NewExportHandler(store storage.Store, logger *slog.Logger) ExportHandler {
	return &ExportHandlerImpl{
		store:  store,
		logger: logging.OrDefault(logger),
	}
}

// HandleExport writes the request object as a one-row table to
// uploads/data.<export_type> and returns it as a download. Every key,
// export_type included, becomes a column in request order. Concurrent
// exports of one type overwrite each other.
func (h *ExportHandlerImpl) HandleExport(c echo.Context) error {
	row, err := bindRow(c)
	if err != nil {
		return err
	}

	exportType, err := exportTypeOf(row)
	if err != nil {
		return err
	}
	for _, f := range row {
		if models.IsNested(f.Value) {
			return NewBadRequestError(fmt.Sprintf("Nested values are not supported: %s", f.Name), nil)
		}
	}

	filename := "data." + exportType
	if !strings.HasSuffix(filename, ".csv") {
		return NewUnsupportedFormatError("Unsupported file format")
	}

	sheet := models.NewSheet(filename, row.Keys(), []models.Row{row})
	var buf bytes.Buffer
	if err := tabular.Encode(&buf, sheet, tabular.FormatCSV); err != nil {
		return NewInternalError(err)
	}

	info, err := h.store.SaveUpload(filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return NewInternalError(err)
	}
	h.logger.Info("payload exported", "file", info.Name, "columns", len(row))

	return sendAttachment(c, filename, tabular.ContentTypeCSV, buf.Bytes())
}

func bindRow(c echo.Context) (models.Row, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, NewBadRequestError("Invalid request body", err)
	}
	var row models.Row
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, NewBadRequestError("Invalid input format, expected JSON.", err)
	}
	return row, nil
}

// exportTypeOf returns the export_type value when it is a usable file
// extension.
func exportTypeOf(row models.Row) (string, error) {
	v, _ := row.Get(exportTypeKey)
	s, ok := v.(string)
	if !ok || s == "" || strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return "", NewUnsupportedFormatError("Unsupported file format")
	}
	return s, nil
}
