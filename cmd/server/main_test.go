package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportdesk/backend/internal/api"
	"github.com/reportdesk/backend/internal/config"
	"github.com/reportdesk/backend/internal/jobs"
	"github.com/reportdesk/backend/internal/storage"
	"github.com/reportdesk/backend/internal/testutil"
	"github.com/reportdesk/backend/internal/trigger"
)

func newTestServer(t *testing.T, processor trigger.Processor) (http.Handler, *config.AppConfig, *trigger.Manager) {
	t.Helper()
	cfg := testutil.NewConfig(t)
	layout := storage.NewLayout(cfg.Storage)
	tasks := trigger.NewManager(processor, trigger.Options{Concurrency: 4, Mode: 1, SuccessSentinel: "SUCCESS"}, nil)

	handlers := api.NewHandlers(&api.Dependencies{
		Store:   layout,
		Poller:  jobs.NewPoller(layout),
		Tasks:   tasks,
		Version: "test",
	})
	return newEcho(cfg, handlers, nil), cfg, tasks
}

func TestServer_Health(t *testing.T) {
	h, _, _ := newTestServer(t, testutil.NewFakeProcessor("SUCCESS"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestServer_TriggerThenPoll(t *testing.T) {
	p := testutil.NewFakeProcessor("SUCCESS")
	p.Release = make(chan struct{})
	h, cfg, tasks := newTestServer(t, p)

	req := httptest.NewRequest(http.MethodPost, "/api/trigger-file-process", strings.NewReader(`{"filename":"report.csv"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"Success","message":"File processing started","filename":"report.csv"}`, rec.Body.String())

	// the generator has created its folder but not finished
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Storage.OutputDirectory, "report"), 0755))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/checkExportStatus?name=report", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Report generation is still in progress"}`, rec.Body.String())

	testutil.WriteFile(t, filepath.Join(cfg.Storage.OutputDirectory, "report", "report.csv"), "a\n1\n")
	testutil.WriteFile(t, filepath.Join(cfg.Storage.OutputDirectory, "report", "success.txt"), "")
	close(p.Release)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/checkExportStatus?name=report", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","files":["report.csv"]}`, rec.Body.String())

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "report.csv", calls[0].Filename)
	assert.Equal(t, 1, tasks.Len())
}

func TestServer_UnknownRouteUsesErrorHandler(t *testing.T) {
	h, _, _ := newTestServer(t, testutil.NewFakeProcessor("SUCCESS"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func TestServer_CORSExposesDownloadName(t *testing.T) {
	h, _, _ := newTestServer(t, testutil.NewFakeProcessor("SUCCESS"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://example.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, splitOrigins(""))
	assert.Equal(t, []string{"*"}, splitOrigins(" , "))
	assert.Equal(t, []string{"http://a", "http://b"}, splitOrigins("http://a, http://b"))
}

func TestArchiveCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, configFileName)
	t.Setenv("DATA_DIR", "")

	testutil.WriteFile(t, filepath.Join(dir, "uploads", "job7.csv"), "a\n1\n")
	testutil.WriteFile(t, filepath.Join(dir, "output", "job7", "result.csv"), "x\n")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath, "archive", "job7.csv"})
	require.NoError(t, cmd.Execute())

	folder := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(folder, filepath.Join(dir, "archive", "job7_")), folder)
	assert.FileExists(t, filepath.Join(folder, "job7.csv"))
	assert.FileExists(t, filepath.Join(folder, "job7.zip"))
	assert.NoFileExists(t, filepath.Join(dir, "uploads", "job7.csv"))
	assert.FileExists(t, configPath, "default config should be written")
}

func TestArchiveCommand_MissingUpload(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(dir, configFileName), "archive", "ghost.csv"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "nothing to archive")
}

func TestArchiveCommand_RequiresFilename(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), configFileName), "archive"})
	assert.Error(t, cmd.Execute())
}
