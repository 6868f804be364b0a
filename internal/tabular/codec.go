// Package tabular reads CSV and Excel files into ordered row records and
// writes records back out as CSV or XLSX.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/reportdesk/backend/internal/models"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than csv, xlsx and xls.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyFile is returned when a CSV file has no header row.
	ErrEmptyFile = errors.New("no columns to parse from file")
)

// Format identifies a tabular file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
)

// MIME types of the encoded formats.
const (
	ContentTypeCSV   = "text/csv"
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatExcel {
		return ContentTypeExcel
	}
	return ContentTypeCSV
}

// FormatFromName maps a file name to its format by extension. Legacy .xls
// is routed to the Excel reader.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("%s: %w", filepath.Base(name), ErrUnsupportedFormat)
	}
}

// Decode reads every table in the file at path. A CSV file yields one sheet
// named after the file; a workbook yields one sheet per worksheet in order.
func Decode(path string) ([]models.Sheet, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if format == FormatCSV {
		sheet, err := DecodeCSV(f, filepath.Base(path))
		if err != nil {
			return nil, err
		}
		return []models.Sheet{sheet}, nil
	}
	return DecodeExcel(f)
}

// DecodeFirst reads only the first table of the file at path.
func DecodeFirst(path string) (models.Sheet, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return models.Sheet{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return models.Sheet{}, err
	}
	defer f.Close()

	if format == FormatCSV {
		return DecodeCSV(f, filepath.Base(path))
	}
	return DecodeFirstExcel(f)
}

// Encode writes sheet to w in the given format.
func Encode(w io.Writer, sheet models.Sheet, format Format) error {
	switch format {
	case FormatCSV:
		return EncodeCSV(w, sheet)
	case FormatExcel:
		return EncodeExcel(w, sheet)
	default:
		return fmt.Errorf("%s: %w", format, ErrUnsupportedFormat)
	}
}
