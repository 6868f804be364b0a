// handlers_view_test.go - Tests for the viewer handler
package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/reportdesk/backend/internal/testutil"
)

func viewRequest(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/api/viewData?"+query, nil)
}

func TestViewerHandler_CSV(t *testing.T) {
	env := newTestEnv(t)
	testutil.WriteFile(t, env.outputPath("job1", "result.csv"), "z,a\n1,x\n2,y\n")
	handler := NewViewerHandler(env.layout)
	c, rec := env.context(viewRequest("folderName=job1&fileName=result.csv"))

	require.NoError(t, handler.HandleViewData(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	// column order follows the file, not the alphabet
	assert.Equal(t,
		`{"status":"success","data":[{"sheetName":"result.csv","sheetContent":[{"z":1,"a":"x"},{"z":2,"a":"y"}]}]}`+"\n",
		rec.Body.String())
}

func TestViewerHandler_MultiSheetExcel(t *testing.T) {
	env := newTestEnv(t)
	testutil.WriteWorkbook(t, env.outputPath("job1", "book.xlsx"),
		testutil.SheetSpec{Name: "Totals", Rows: [][]interface{}{{"k"}, {"a"}}},
		testutil.SheetSpec{Name: "Detail", Rows: [][]interface{}{{"n"}, {1}, {2}}},
		testutil.SheetSpec{Name: "Notes", Rows: [][]interface{}{{"text"}, {"hi"}}},
	)
	handler := NewViewerHandler(env.layout)
	c, rec := env.context(viewRequest("folderName=job1&fileName=book.xlsx"))

	require.NoError(t, handler.HandleViewData(c))

	assert.JSONEq(t, `{"status":"success","data":[
		{"sheetName":"Totals","sheetContent":[{"k":"a"}]},
		{"sheetName":"Detail","sheetContent":[{"n":1},{"n":2}]},
		{"sheetName":"Notes","sheetContent":[{"text":"hi"}]}
	]}`, rec.Body.String())
}

func TestViewerHandler_Msgpack(t *testing.T) {
	for _, tc := range []struct {
		name   string
		query  string
		accept string
	}{
		{"accept header", "folderName=job1&fileName=r.csv", MIMEApplicationMsgpack},
		{"query parameter", "folderName=job1&fileName=r.csv&encoding=msgpack", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			testutil.WriteFile(t, env.outputPath("job1", "r.csv"), "b,a\n1,2\n")
			handler := NewViewerHandler(env.layout)
			req := viewRequest(tc.query)
			if tc.accept != "" {
				req.Header.Set(echo.HeaderAccept, tc.accept)
			}
			c, rec := env.context(req)

			require.NoError(t, handler.HandleViewData(c))
			assert.Equal(t, MIMEApplicationMsgpack, rec.Header().Get(echo.HeaderContentType))

			var decoded struct {
				Status string `msgpack:"status"`
				Data   []struct {
					SheetName    string                   `msgpack:"sheetName"`
					SheetContent []map[string]interface{} `msgpack:"sheetContent"`
				} `msgpack:"data"`
			}
			require.NoError(t, msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&decoded))
			assert.Equal(t, "success", decoded.Status)
			require.Len(t, decoded.Data, 1)
			assert.Equal(t, "r.csv", decoded.Data[0].SheetName)
			require.Len(t, decoded.Data[0].SheetContent, 1)
			assert.EqualValues(t, 1, decoded.Data[0].SheetContent[0]["b"])
		})
	}
}

func TestViewerHandler_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		query   string
		status  int
		key     string
		message string
	}{
		{"missing folder param", nil, "fileName=a.csv", http.StatusBadRequest, KeyStatus, "Folder name and file name are required"},
		{"missing file param", nil, "folderName=job1", http.StatusBadRequest, KeyStatus, "Folder name and file name are required"},
		{"folder not found", nil, "folderName=ghost&fileName=a.csv", http.StatusNotFound, KeyStatus, "Folder not found"},
		{"file not found", map[string]string{"job1/other.csv": "a\n"}, "folderName=job1&fileName=a.csv", http.StatusNotFound, KeyStatus, "File not found"},
		{"not tabular", map[string]string{"job1/notes.txt": "hi"}, "folderName=job1&fileName=notes.txt", http.StatusBadRequest, KeyStatus, "Provided file is neither a CSV nor an Excel file"},
		{"corrupt workbook", map[string]string{"job1/bad.xlsx": "not a zip"}, "folderName=job1&fileName=bad.xlsx", http.StatusInternalServerError, KeyError, ""},
		{"escaping file name", map[string]string{"job1/a.csv": "a\n"}, "folderName=job1&fileName=..", http.StatusBadRequest, KeyStatus, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			for name, content := range tt.files {
				testutil.WriteFile(t, env.outputPath(name), content)
			}
			handler := NewViewerHandler(env.layout)
			c, _ := env.context(viewRequest(tt.query))

			assertAPIError(t, handler.HandleViewData(c), tt.status, tt.key, tt.message)
		})
	}
}
