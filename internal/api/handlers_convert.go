// handlers_convert.go - CSV/Excel conversion of generated files
package api

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/reportdesk/backend/internal/logging"
	"github.com/reportdesk/backend/internal/storage"
	"github.com/reportdesk/backend/internal/tabular"
)

// ConvertHandlerImpl implements the ConvertHandler interface
type ConvertHandlerImpl struct {
	store         storage.Store
	keepProcessed bool
	logger        *slog.Logger
}

// NewConvertHandler creates a new convert handler instance. When
// keepProcessed is set every converted file is also written to processed/.
func NewConvertHandler(store storage.Store, keepProcessed bool, logger *slog.Logger) ConvertHandler {
	return &ConvertHandlerImpl{
		store:         store,
		keepProcessed: keepProcessed,
		logger:        logging.OrDefault(logger),
	}
}

// conversion is one row of the format/extension matrix.
type conversion struct {
	target tabular.Format
	rename bool // download as processed_<stem>.<ext>
}

// conversionFor resolves the requested format for a source file name.
func conversionFor(format, name string) (conversion, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch format {
	case "excel":
		switch ext {
		case ".xlsx":
			return conversion{target: tabular.FormatExcel}, nil
		case ".csv":
			return conversion{target: tabular.FormatExcel, rename: true}, nil
		}
		return conversion{}, NewUnsupportedFormatError("Unsupported file type for Excel conversion")
	case "csv":
		switch ext {
		case ".csv":
			return conversion{target: tabular.FormatCSV}, nil
		case ".xlsx":
			return conversion{target: tabular.FormatCSV, rename: true}, nil
		}
		return conversion{}, NewUnsupportedFormatError("Unsupported file type for CSV conversion")
	default:
		return conversion{}, NewValidationError(`Invalid format requested. Use "excel" or "csv".`)
	}
}

// downloadName returns the attachment name for a converted file. A file
// kept in its own format is returned under the name it was requested by;
// otherwise the stem is everything before the first dot.
func (cv conversion) downloadName(requested string) string {
	base := filepath.Base(strings.ReplaceAll(requested, "\\", "/"))
	if !cv.rename {
		return base
	}
	stem, _, _ := strings.Cut(base, ".")
	return "processed_" + stem + "." + string(cv.target)
}

// HandleProcessFile converts output/<folderName>/<fileName> to the requested
// format and returns it as a download. Only the first worksheet of a
// workbook is converted.
func (h *ConvertHandlerImpl) HandleProcessFile(c echo.Context) error {
	fileName := c.QueryParam("fileName")
	folder := c.QueryParam("folderName")
	if fileName == "" || folder == "" {
		return NewValidationError("filename and foldername parameters are required")
	}
	format := c.QueryParam("format")
	if format == "" {
		format = "excel"
	}

	name := storage.SanitizeFilename(fileName)
	path, err := h.store.OutputFile(folder, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NewNotFoundError("File not found").reportedAs(KeyError)
		}
		return invalidNameError(err, KeyError)
	}

	cv, err := conversionFor(format, name)
	if err != nil {
		return err
	}

	sheet, err := tabular.DecodeFirst(path)
	if err != nil {
		return NewInternalError(err)
	}
	var buf bytes.Buffer
	if err := tabular.Encode(&buf, sheet, cv.target); err != nil {
		return NewInternalError(err)
	}

	download := cv.downloadName(fileName)
	if h.keepProcessed {
		kept := cv.downloadName(name)
		if saved, err := h.store.SaveProcessed(kept, buf.Bytes()); err != nil {
			h.logger.Warn("could not keep processed copy", "file", kept, "error", err)
		} else {
			h.logger.Info("processed copy saved", "path", saved)
		}
	}

	return sendAttachment(c, download, cv.target.ContentType(), buf.Bytes())
}
