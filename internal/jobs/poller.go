// Package jobs derives report generation job state from the output tree.
package jobs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/reportdesk/backend/internal/models"
	"github.com/reportdesk/backend/internal/storage"
)

// Poller reads sentinel files under output/<job>. It keeps no state, so
// repeated polls with no filesystem change return the same status.
type Poller struct {
	store storage.Store
}

// NewPoller creates a poller over the store's output root.
func NewPoller(store storage.Store) *Poller {
	return &Poller{store: store}
}

// Poll returns the current state of job name. Success takes precedence
// over failure when both sentinels exist.
func (p *Poller) Poll(name string) (models.JobStatus, error) {
	status := models.JobStatus{Name: name, State: models.JobStateNotFound}

	dir, err := p.store.OutputFolder(name)
	if errors.Is(err, storage.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return status, err
	}

	switch {
	case exists(filepath.Join(dir, models.SuccessSentinel)):
		files, err := resultFiles(dir)
		if err != nil {
			return status, fmt.Errorf("listing results of %s: %w", name, err)
		}
		status.State = models.JobStateSuccess
		status.Files = files
	case exists(filepath.Join(dir, models.FailureSentinel)):
		status.State = models.JobStateFailed
	default:
		status.State = models.JobStateInProgress
	}
	return status, nil
}

// resultFiles lists the CSV files then the XLSX files in dir, each group in
// directory order.
func resultFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	csvFiles := make([]string, 0)
	var xlsxFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv":
			csvFiles = append(csvFiles, entry.Name())
		case ".xlsx":
			xlsxFiles = append(xlsxFiles, entry.Name())
		}
	}
	return append(csvFiles, xlsxFiles...), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
