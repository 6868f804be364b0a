// handlers_upload.go - File upload with immediate preview
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reportdesk/backend/internal/logging"
	"github.com/reportdesk/backend/internal/models"
	"github.com/reportdesk/backend/internal/storage"
	"github.com/reportdesk/backend/internal/tabular"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	store  storage.Store
	logger *slog.Logger
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(store storage.Store, logger *slog.Logger) UploadHandler {
	return &UploadHandlerImpl{
		store:  store,
		logger: logging.OrDefault(logger),
	}
}

type uploadResponse struct {
	Message string         `json:"message"`
	Data    []models.Sheet `json:"data"`
}

// HandleUpload stores a multipart "file" part in uploads and returns its
// first sheet. The stored file is kept even when it cannot be decoded.
func (h *UploadHandlerImpl) HandleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && hasFormValue(c, "file") {
			// a part without a filename arrives as a plain form value
			return NewValidationError("No selected file")
		}
		return NewValidationError("No file part in the request")
	}
	if file.Filename == "" {
		return NewValidationError("No selected file")
	}
	if !h.store.AllowedExtension(file.Filename) {
		return NewUnsupportedFormatError("File type not allowed")
	}

	name := storage.SanitizeFilename(file.Filename)
	if name == "" || !h.store.AllowedExtension(name) {
		return NewUnsupportedFormatError("File type not allowed")
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError(err)
	}
	defer src.Close()

	info, err := h.store.SaveUpload(name, src)
	if err != nil {
		return NewInternalError(err)
	}
	h.logger.Info("file uploaded", "name", info.Name, "size", info.Size)

	sheet, err := tabular.DecodeFirst(info.Path)
	if err != nil {
		h.logger.Warn("uploaded file could not be decoded", "name", info.Name, "error", err)
		return NewInternalError(err)
	}
	// The preview is named after the stored file, not the worksheet.
	sheet.Name = info.Name

	return c.JSON(http.StatusOK, uploadResponse{
		Message: fmt.Sprintf("File uploaded successfully: %s", name),
		Data:    []models.Sheet{sheet},
	})
}

func hasFormValue(c echo.Context, name string) bool {
	form := c.Request().MultipartForm
	if form == nil {
		return false
	}
	_, ok := form.Value[name]
	return ok
}
