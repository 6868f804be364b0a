// handlers_convert_test.go - Tests for CSV/Excel conversion
package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportdesk/backend/internal/models"
	"github.com/reportdesk/backend/internal/tabular"
	"github.com/reportdesk/backend/internal/testutil"
)

func convertRequest(params map[string]string) *http.Request {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return httptest.NewRequest(http.MethodGet, "/process-file?"+q.Encode(), nil)
}

// writeTwoSheetWorkbook creates output/job1/data.xlsx with two worksheets.
func writeTwoSheetWorkbook(t *testing.T, env *testEnv) {
	t.Helper()
	testutil.WriteWorkbook(t, env.outputPath("job1", "data.xlsx"),
		testutil.SheetSpec{Name: "First", Rows: [][]interface{}{{"id", "name"}, {1, "a"}, {2, "b"}}},
		testutil.SheetSpec{Name: "Second", Rows: [][]interface{}{{"other"}, {"dropped"}}},
	)
}

func TestConvertHandler_Matrix(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		format      string
		wantName    string
		wantType    string
		wantContent []models.Row
	}{
		{
			name:     "excel to excel keeps name",
			file:     "data.xlsx",
			format:   "excel",
			wantName: "data.xlsx",
			wantType: tabular.ContentTypeExcel,
		},
		{
			name:     "format defaults to excel",
			file:     "data.xlsx",
			format:   "",
			wantName: "data.xlsx",
			wantType: tabular.ContentTypeExcel,
		},
		{
			name:     "csv to excel is renamed",
			file:     "data.csv",
			format:   "excel",
			wantName: "processed_data.xlsx",
			wantType: tabular.ContentTypeExcel,
		},
		{
			name:     "csv to csv keeps name",
			file:     "data.csv",
			format:   "csv",
			wantName: "data.csv",
			wantType: tabular.ContentTypeCSV,
		},
		{
			name:     "excel to csv takes the first sheet",
			file:     "data.xlsx",
			format:   "csv",
			wantName: "processed_data.csv",
			wantType: tabular.ContentTypeCSV,
		},
	}

	firstSheet := []models.Row{
		{{Name: "id", Value: int64(1)}, {Name: "name", Value: "a"}},
		{{Name: "id", Value: int64(2)}, {Name: "name", Value: "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			writeTwoSheetWorkbook(t, env)
			testutil.WriteFile(t, env.outputPath("job1", "data.csv"), "id,name\n1,a\n2,b\n")

			params := map[string]string{"fileName": tt.file, "folderName": "job1"}
			if tt.format != "" {
				params["format"] = tt.format
			}
			handler := NewConvertHandler(env.layout, false, nil)
			c, rec := env.context(convertRequest(params))

			require.NoError(t, handler.HandleProcessFile(c))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantType, rec.Header().Get(echo.HeaderContentType))
			assert.Equal(t, "attachment; filename="+tt.wantName, rec.Header().Get(echo.HeaderContentDisposition))

			var sheet models.Sheet
			var err error
			if tt.wantType == tabular.ContentTypeExcel {
				sheet, err = tabular.DecodeFirstExcel(bytes.NewReader(rec.Body.Bytes()))
			} else {
				sheet, err = tabular.DecodeCSV(bytes.NewReader(rec.Body.Bytes()), tt.wantName)
			}
			require.NoError(t, err)
			assert.Equal(t, firstSheet, sheet.Content)
		})
	}
}

func TestConvertHandler_StemUsesFirstDot(t *testing.T) {
	env := newTestEnv(t)
	testutil.WriteFile(t, env.outputPath("job1", "data.v2.csv"), "a\n1\n")
	handler := NewConvertHandler(env.layout, false, nil)
	c, rec := env.context(convertRequest(map[string]string{"fileName": "data.v2.csv", "folderName": "job1"}))

	require.NoError(t, handler.HandleProcessFile(c))
	assert.Equal(t, "attachment; filename=processed_data.xlsx", rec.Header().Get(echo.HeaderContentDisposition))
}

func TestConvertHandler_SameFormatKeepsRequestedName(t *testing.T) {
	env := newTestEnv(t)
	testutil.WriteFile(t, env.outputPath("job1", "My_Report.csv"), "a\n1\n")
	handler := NewConvertHandler(env.layout, true, nil)
	c, rec := env.context(convertRequest(map[string]string{"fileName": "My Report.csv", "folderName": "job1", "format": "csv"}))

	require.NoError(t, handler.HandleProcessFile(c))
	assert.Equal(t, `attachment; filename="My Report.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.FileExists(t, filepath.Join(env.layout.ProcessedDir, "My_Report.csv"))
}

func TestConvertHandler_KeepsProcessedCopy(t *testing.T) {
	env := newTestEnv(t)
	writeTwoSheetWorkbook(t, env)
	handler := NewConvertHandler(env.layout, true, nil)
	c, rec := env.context(convertRequest(map[string]string{"fileName": "data.xlsx", "folderName": "job1", "format": "csv"}))

	require.NoError(t, handler.HandleProcessFile(c))

	saved, err := os.ReadFile(filepath.Join(env.layout.ProcessedDir, "processed_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, rec.Body.String(), string(saved))
	assert.Equal(t, "id,name\n1,a\n2,b\n", string(saved))
}

func TestConvertHandler_NoCopyByDefault(t *testing.T) {
	env := newTestEnv(t)
	writeTwoSheetWorkbook(t, env)
	handler := NewConvertHandler(env.layout, false, nil)
	c, _ := env.context(convertRequest(map[string]string{"fileName": "data.xlsx", "folderName": "job1", "format": "csv"}))

	require.NoError(t, handler.HandleProcessFile(c))

	entries, err := os.ReadDir(env.layout.ProcessedDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConvertHandler_Errors(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]string
		status  int
		message string
	}{
		{"missing file name", map[string]string{"folderName": "job1"}, http.StatusBadRequest, "filename and foldername parameters are required"},
		{"missing folder name", map[string]string{"fileName": "data.csv"}, http.StatusBadRequest, "filename and foldername parameters are required"},
		{"file not found", map[string]string{"fileName": "nope.csv", "folderName": "job1"}, http.StatusNotFound, "File not found"},
		{"folder not found", map[string]string{"fileName": "data.csv", "folderName": "ghost"}, http.StatusNotFound, "File not found"},
		{"bad source for excel", map[string]string{"fileName": "notes.txt", "folderName": "job1", "format": "excel"}, http.StatusBadRequest, "Unsupported file type for Excel conversion"},
		{"bad source for csv", map[string]string{"fileName": "notes.txt", "folderName": "job1", "format": "csv"}, http.StatusBadRequest, "Unsupported file type for CSV conversion"},
		{"invalid format", map[string]string{"fileName": "data.csv", "folderName": "job1", "format": "pdf"}, http.StatusBadRequest, `Invalid format requested. Use "excel" or "csv".`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			testutil.WriteFile(t, env.outputPath("job1", "data.csv"), "a\n1\n")
			testutil.WriteFile(t, env.outputPath("job1", "notes.txt"), "hello")
			handler := NewConvertHandler(env.layout, false, nil)
			c, _ := env.context(convertRequest(tt.params))

			assertAPIError(t, handler.HandleProcessFile(c), tt.status, KeyError, tt.message)
		})
	}
}

func TestConversionFor(t *testing.T) {
	cv, err := conversionFor("csv", "Book.XLSX")
	require.NoError(t, err)
	assert.Equal(t, tabular.FormatCSV, cv.target)
	assert.Equal(t, "processed_Book.csv", cv.downloadName("Book.XLSX"))

	same, err := conversionFor("csv", "a.csv")
	require.NoError(t, err)
	assert.Equal(t, "My Report.csv", same.downloadName("My Report.csv"))
	assert.Equal(t, "report.csv", same.downloadName(`dir\report.csv`))

	_, err = conversionFor("excel", "legacy.xls")
	assert.Error(t, err)
}
