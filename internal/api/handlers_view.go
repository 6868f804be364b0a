// handlers_view.go - Generated file viewer
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/reportdesk/backend/internal/models"
	"github.com/reportdesk/backend/internal/storage"
	"github.com/reportdesk/backend/internal/tabular"
)

// ViewerHandlerImpl implements the ViewerHandler interface
type ViewerHandlerImpl struct {
	store storage.Store
}

// NewViewerHandler creates a new viewer handler instance
func NewViewerHandler(store storage.Store) ViewerHandler {
	return &ViewerHandlerImpl{store: store}
}

type viewResponse struct {
	Status string         `json:"status" msgpack:"status"`
	Data   []models.Sheet `json:"data" msgpack:"data"`
}

// HandleViewData returns every sheet of output/<folderName>/<fileName>.
// Clients sending Accept: application/msgpack or ?encoding=msgpack get the
// same payload msgpack-encoded.
func (h *ViewerHandlerImpl) HandleViewData(c echo.Context) error {
	folder := c.QueryParam("folderName")
	file := c.QueryParam("fileName")
	if folder == "" || file == "" {
		return NewValidationError("Folder name and file name are required").reportedAs(KeyStatus)
	}

	if _, err := h.store.OutputFolder(folder); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NewNotFoundError("Folder not found")
		}
		return invalidNameError(err, KeyStatus)
	}
	path, err := h.store.OutputFile(folder, file)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NewNotFoundError("File not found")
		}
		return invalidNameError(err, KeyStatus)
	}

	if _, err := tabular.FormatFromName(file); err != nil {
		return NewUnsupportedFormatError("Provided file is neither a CSV nor an Excel file").reportedAs(KeyStatus)
	}

	sheets, err := tabular.Decode(path)
	if err != nil {
		return NewInternalError(err)
	}

	resp := viewResponse{Status: "success", Data: sheets}
	if wantsMsgpack(c) {
		data, err := msgpack.Marshal(resp)
		if err != nil {
			return NewInternalError(err)
		}
		return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
	}
	return c.JSON(http.StatusOK, resp)
}
