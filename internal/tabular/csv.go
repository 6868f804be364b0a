package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/reportdesk/backend/internal/models"
)

const utf8BOM = "\ufeff"

// DecodeCSV reads a comma-delimited table with a header row. The sheet is
// named name.
func DecodeCSV(r io.Reader, name string) (models.Sheet, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return models.Sheet{}, fmt.Errorf("%s: %w", name, ErrEmptyFile)
	}
	if err != nil {
		return models.Sheet{}, fmt.Errorf("reading csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	columns := normalizeHeader(header, len(header))

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Sheet{}, fmt.Errorf("reading csv: %w", err)
		}
		if len(rec) > len(columns) {
			line, _ := reader.FieldPos(0)
			return models.Sheet{}, fmt.Errorf("error tokenizing data: expected %d fields in line %d, saw %d",
				len(columns), line, len(rec))
		}
		records = append(records, rec)
	}

	types := inferTypes(records, len(columns))
	return models.NewSheet(name, columns, buildRows(columns, records, typedConverter(types))), nil
}

// EncodeCSV writes sheet as a comma-delimited table with a header row.
func EncodeCSV(w io.Writer, sheet models.Sheet) error {
	cw := csv.NewWriter(w)
	header := sheet.Header()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range sheet.Content {
		for i, col := range header {
			record[i] = FormatValue(valueAt(row, i, col))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// valueAt looks up col in row, trying position i first since rows usually
// share the header order.
func valueAt(row models.Row, i int, col string) interface{} {
	if i < len(row) && row[i].Name == col {
		return row[i].Value
	}
	v, _ := row.Get(col)
	return v
}
