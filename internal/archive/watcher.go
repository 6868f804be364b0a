package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/reportdesk/backend/internal/logging"
	"github.com/reportdesk/backend/internal/models"
	"github.com/reportdesk/backend/internal/storage"
)

// Watcher archives uploads when their job writes its success sentinel.
// It watches the output root and every job folder below it.
type Watcher struct {
	archiver *Archiver
	layout   *storage.Layout
	logger   *slog.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}

	// OnArchive, when set, is called after each archived upload.
	OnArchive func(*Entry)
}

// NewWatcher creates a watcher that archives through archiver.
func NewWatcher(archiver *Archiver, logger *slog.Logger) *Watcher {
	return &Watcher{
		archiver: archiver,
		layout:   archiver.layout,
		logger:   logging.OrDefault(logger),
		done:     make(chan struct{}),
	}
}

// Start registers the watches and processes events in the background until
// ctx is cancelled. Jobs that already succeeded before Start are archived
// immediately.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(w.layout.OutputDir); err != nil {
		fsw.Close()
		return fmt.Errorf("watching %s: %w", w.layout.OutputDir, err)
	}
	w.fsw = fsw

	entries, err := os.ReadDir(w.layout.OutputDir)
	if err != nil {
		fsw.Close()
		return fmt.Errorf("listing %s: %w", w.layout.OutputDir, err)
	}
	var jobs []string
	for _, e := range entries {
		if e.IsDir() {
			jobs = append(jobs, e.Name())
		}
	}

	go w.run(ctx, jobs)
	return nil
}

// Done is closed once the event loop has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) run(ctx context.Context, existing []string) {
	defer close(w.done)
	defer w.fsw.Close()

	for _, job := range existing {
		w.watchJob(job)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}

	parent := filepath.Dir(event.Name)
	if filepath.Clean(parent) == filepath.Clean(w.layout.OutputDir) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watchJob(filepath.Base(event.Name))
		}
		return
	}

	if filepath.Base(event.Name) == models.SuccessSentinel &&
		filepath.Clean(filepath.Dir(parent)) == filepath.Clean(w.layout.OutputDir) {
		w.archiveJob(filepath.Base(parent))
	}
}

// watchJob adds a watch on output/<job>. The sentinel may have been written
// before the watch existed, so it is checked once directly.
func (w *Watcher) watchJob(job string) {
	dir := filepath.Join(w.layout.OutputDir, job)
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("cannot watch job folder", "job", job, "error", err)
		return
	}
	if _, err := os.Stat(filepath.Join(dir, models.SuccessSentinel)); err == nil {
		w.archiveJob(job)
	}
}

// archiveJob archives every upload whose stem is job.
func (w *Watcher) archiveJob(job string) {
	entries, err := os.ReadDir(w.layout.UploadsDir)
	if err != nil {
		w.logger.Error("listing uploads", "error", err)
		return
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || storage.Stem(e.Name()) != job {
			continue
		}
		entry, err := w.archiver.Archive(e.Name())
		if err != nil {
			w.logger.Error("auto-archive failed", "job", job, "file", e.Name(), "error", err)
			continue
		}
		if entry != nil && w.OnArchive != nil {
			w.OnArchive(entry)
		}
	}
}
