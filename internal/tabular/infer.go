package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/reportdesk/backend/internal/models"
)

// naValues are cell texts read as missing values.
var naValues = map[string]bool{
	"":          true,
	"#N/A":      true,
	"#N/A N/A":  true,
	"#NA":       true,
	"-1.#IND":   true,
	"-1.#QNAN":  true,
	"-NaN":      true,
	"-nan":      true,
	"1.#IND":    true,
	"1.#QNAN":   true,
	"<NA>":      true,
	"N/A":       true,
	"NA":        true,
	"NULL":      true,
	"NaN":       true,
	"None":      true,
	"n/a":       true,
	"nan":       true,
	"null":      true,
}

func isNA(s string) bool {
	return naValues[s]
}

// cellConverter turns raw cell text into a typed value for column col.
type cellConverter func(col int, raw string) interface{}

// normalizeHeader names every column: blank cells become "Unnamed: i" and
// repeated names get ".1", ".2" suffixes.
func normalizeHeader(raw []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	counts := make(map[string]int, width)

	for i := 0; i < width; i++ {
		base := ""
		if i < len(raw) {
			base = raw[i]
		}
		if strings.TrimSpace(base) == "" {
			base = fmt.Sprintf("Unnamed: %d", i)
		}

		name := base
		for used[name] {
			counts[base]++
			name = fmt.Sprintf("%s.%d", base, counts[base])
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// inferTypes picks one type per column from its non-missing cells.
func inferTypes(records [][]string, width int) []models.ColumnType {
	types := make([]models.ColumnType, width)
	for col := 0; col < width; col++ {
		allInt, allFloat, allBool := true, true, true
		seen := false

		for _, rec := range records {
			if col >= len(rec) || isNA(rec[col]) {
				continue
			}
			seen = true
			v := strings.TrimSpace(rec[col])
			if allInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
			}
			if allFloat {
				if _, ok := parseFinite(v); !ok {
					allFloat = false
				}
			}
			if allBool {
				if _, ok := parseBool(v); !ok {
					allBool = false
				}
			}
			if !allInt && !allFloat && !allBool {
				break
			}
		}

		switch {
		case !seen:
			types[col] = models.ColumnTypeString
		case allInt:
			types[col] = models.ColumnTypeInteger
		case allFloat:
			types[col] = models.ColumnTypeFloat
		case allBool:
			types[col] = models.ColumnTypeBoolean
		default:
			types[col] = models.ColumnTypeString
		}
	}
	return types
}

// convertValue converts raw text of a cell whose column has type typ.
func convertValue(typ models.ColumnType, raw string) interface{} {
	if isNA(raw) {
		return nil
	}
	v := strings.TrimSpace(raw)
	switch typ {
	case models.ColumnTypeInteger:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	case models.ColumnTypeFloat:
		if f, ok := parseFinite(v); ok {
			return f
		}
	case models.ColumnTypeBoolean:
		if b, ok := parseBool(v); ok {
			return b
		}
	}
	return raw
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	}
	return false, false
}

// typedConverter returns a converter applying the inferred column types.
func typedConverter(types []models.ColumnType) cellConverter {
	return func(col int, raw string) interface{} {
		return convertValue(types[col], raw)
	}
}

// buildRows turns raw records into ordered rows. Short records are padded
// with nil.
func buildRows(header []string, records [][]string, convert cellConverter) []models.Row {
	rows := make([]models.Row, 0, len(records))
	for _, rec := range records {
		row := make(models.Row, len(header))
		for col, name := range header {
			var value interface{}
			if col < len(rec) {
				value = convert(col, rec[col])
			}
			row[col] = models.Field{Name: name, Value: value}
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatValue renders a cell value as CSV text: nil is empty, integral
// floats keep a ".0" suffix and booleans are True/False.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return formatFloat(val)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	if math.IsInf(f, 0) {
		if f > 0 {
			return "inf"
		}
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
