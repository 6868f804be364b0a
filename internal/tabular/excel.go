package tabular

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/reportdesk/backend/internal/models"
)

// DefaultSheetName is the worksheet name used when encoding.
const DefaultSheetName = "Sheet1"

const dateLayout = "2006-01-02 15:04:05"

// DecodeExcel reads every worksheet of an XLSX workbook in workbook order.
func DecodeExcel(r io.Reader) ([]models.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]models.Sheet, 0, len(names))
	for _, name := range names {
		sheet, err := readWorksheet(f, name)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// DecodeFirstExcel reads only the first worksheet of an XLSX workbook.
func DecodeFirstExcel(r io.Reader) (models.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return models.Sheet{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return models.Sheet{}, fmt.Errorf("workbook has no worksheets")
	}
	return readWorksheet(f, names[0])
}

// readWorksheet reads one worksheet. Leading empty rows are skipped and the
// first non-empty row is the header. Cells are read raw and typed per column.
func readWorksheet(f *excelize.File, name string) (models.Sheet, error) {
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return models.Sheet{}, fmt.Errorf("reading worksheet %q: %w", name, err)
	}

	headerIdx := -1
	for i, row := range raw {
		if !emptyRecord(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return models.NewSheet(name, nil, nil), nil
	}

	records := raw[headerIdx+1:]
	width := len(raw[headerIdx])
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	columns := normalizeHeader(raw[headerIdx], width)
	types := inferTypes(records, width)

	// Excel row number of records[0].
	firstDataRow := headerIdx + 2
	for col, typ := range types {
		if typ != models.ColumnTypeString && hasTextCell(f, name, records, col, firstDataRow) {
			types[col] = models.ColumnTypeString
		}
	}
	convert := excelConverter(f, name, records, types, firstDataRow)

	return models.NewSheet(name, columns, buildRows(columns, records, convert)), nil
}

// excelConverter extends the inferred column types with the cell metadata
// text inference cannot see: numeric columns formatted as dates become date
// strings and 0/1 columns stored as boolean cells become bools.
func excelConverter(f *excelize.File, sheet string, records [][]string, types []models.ColumnType, firstDataRow int) cellConverter {
	overrides := make(map[int]func(string) interface{})
	date1904 := usesDate1904(f)

	for col, typ := range types {
		if typ != models.ColumnTypeInteger && typ != models.ColumnTypeFloat {
			continue
		}
		rowIdx := firstValueRow(records, col)
		if rowIdx < 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, firstDataRow+rowIdx)
		if err != nil {
			continue
		}

		if typ == models.ColumnTypeInteger && isBoolCell(f, sheet, cell) {
			overrides[col] = func(raw string) interface{} {
				if isNA(raw) {
					return nil
				}
				return strings.TrimSpace(raw) != "0"
			}
			continue
		}

		if isDateCell(f, sheet, cell) {
			overrides[col] = func(raw string) interface{} {
				if isNA(raw) {
					return nil
				}
				serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
				if err != nil {
					return raw
				}
				t, err := excelize.ExcelDateToTime(serial, date1904)
				if err != nil {
					return raw
				}
				return t.Round(time.Second).Format(dateLayout)
			}
		}
	}

	return func(col int, raw string) interface{} {
		if fn, ok := overrides[col]; ok {
			return fn(raw)
		}
		return convertValue(types[col], raw)
	}
}

func firstValueRow(records [][]string, col int) int {
	for i, rec := range records {
		if col < len(rec) && !isNA(rec[col]) {
			return i
		}
	}
	return -1
}

// hasTextCell reports whether any non-empty cell of column col is stored as
// text. Such columns stay strings even when every value reads as a number,
// so "00123" keeps its leading zeros.
func hasTextCell(f *excelize.File, sheet string, records [][]string, col, firstDataRow int) bool {
	for i, rec := range records {
		if col >= len(rec) || isNA(rec[col]) {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, firstDataRow+i)
		if err != nil {
			continue
		}
		typ, err := f.GetCellType(sheet, cell)
		if err != nil {
			continue
		}
		switch typ {
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
			return true
		}
	}
	return false
}

func isBoolCell(f *excelize.File, sheet, cell string) bool {
	typ, err := f.GetCellType(sheet, cell)
	return err == nil && typ == excelize.CellTypeBool
}

func isDateCell(f *excelize.File, sheet, cell string) bool {
	styleID, err := f.GetCellStyle(sheet, cell)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormat(*style.CustomNumFmt)
	}
	return isBuiltinDateFormat(style.NumFmt)
}

// isBuiltinDateFormat reports whether id is one of the built-in date/time
// number formats.
func isBuiltinDateFormat(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// isDateFormat reports whether a custom number format renders a date or
// time. Quoted literals and bracketed sections such as [Red] are ignored.
func isDateFormat(format string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(format) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(b.String(), "ydhs")
}

func usesDate1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	return err == nil && props.Date1904 != nil && *props.Date1904
}

func emptyRecord(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}

// EncodeExcel writes sheet as a single-worksheet XLSX workbook with a header
// row followed by the data rows.
func EncodeExcel(w io.Writer, sheet models.Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(DefaultSheetName)
	if err != nil {
		return fmt.Errorf("creating stream writer: %w", err)
	}

	header := sheet.Header()
	cells := make([]interface{}, len(header))
	for i, col := range header {
		cells[i] = col
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for r, row := range sheet.Content {
		values := make([]interface{}, len(header))
		for i, col := range header {
			values[i] = valueAt(row, i, col)
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, values); err != nil {
			return fmt.Errorf("writing row %d: %w", r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing worksheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
