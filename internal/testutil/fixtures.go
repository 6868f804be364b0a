// fixtures.go - Filesystem fixtures for tests
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/reportdesk/backend/internal/config"
)

// SheetSpec describes one worksheet for WriteWorkbook. The first row is
// written as the header.
type SheetSpec struct {
	Name string
	Rows [][]interface{}
}

// WriteWorkbook writes an XLSX workbook with the given worksheets, in order.
func WriteWorkbook(t testing.TB, path string, sheets ...SheetSpec) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, spec := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", spec.Name); err != nil {
				t.Fatalf("renaming sheet: %v", err)
			}
		} else if _, err := f.NewSheet(spec.Name); err != nil {
			t.Fatalf("creating sheet %s: %v", spec.Name, err)
		}

		for r, row := range spec.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := row
			if err := f.SetSheetRow(spec.Name, cell, &values); err != nil {
				t.Fatalf("writing row %d of %s: %v", r+1, spec.Name, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// NewConfig returns a default config whose storage roots live in a fresh
// temp directory and already exist.
func NewConfig(t testing.TB) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.UploadsDirectory = filepath.Join(dir, "uploads")
	cfg.Storage.OutputDirectory = filepath.Join(dir, "output")
	cfg.Storage.ProcessedDirectory = filepath.Join(dir, "processed")
	cfg.Storage.ArchiveDirectory = filepath.Join(dir, "archive")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("creating directories: %v", err)
	}
	return cfg
}
