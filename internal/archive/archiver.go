// Package archive moves processed uploads and their output folders into
// timestamped archive folders.
package archive

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/reportdesk/backend/internal/logging"
	"github.com/reportdesk/backend/internal/storage"
)

const timestampLayout = "20060102_150405"

// Entry describes one archive folder.
type Entry struct {
	Folder string `json:"folder"`
	File   string `json:"file"`          // moved upload
	Zip    string `json:"zip,omitempty"` // zipped output folder, when there was one
}

// Archiver relocates an upload and zips its output folder.
type Archiver struct {
	layout *storage.Layout
	logger *slog.Logger

	// Now is the clock used for folder names.
	Now func() time.Time
}

// NewArchiver creates an archiver over layout. A nil logger uses slog.Default.
func NewArchiver(layout *storage.Layout, logger *slog.Logger) *Archiver {
	return &Archiver{
		layout: layout,
		logger: logging.OrDefault(logger),
		Now:    time.Now,
	}
}

// Archive moves uploads/<filename> into archive/<stem>_<timestamp> and zips
// output/<stem> next to it. When the upload does not exist nothing happens
// and a nil entry is returned. Steps already done are not rolled back when a
// later one fails.
func (a *Archiver) Archive(filename string) (*Entry, error) {
	src, err := a.layout.UploadPath(filename)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(src)
	if err != nil || !info.Mode().IsRegular() {
		a.logger.Info("upload not found, nothing to archive", "file", filename)
		return nil, nil
	}

	stem := storage.Stem(filename)
	folder := filepath.Join(a.layout.ArchiveDir, fmt.Sprintf("%s_%s", stem, a.Now().Format(timestampLayout)))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("creating archive folder: %w", err)
	}

	entry := &Entry{Folder: folder, File: filepath.Join(folder, filename)}
	if err := moveFile(src, entry.File); err != nil {
		return nil, fmt.Errorf("moving %s: %w", filename, err)
	}
	a.logger.Info("upload archived", "file", filename, "folder", folder)

	outDir := filepath.Join(a.layout.OutputDir, stem)
	if fi, err := os.Stat(outDir); err != nil || !fi.IsDir() {
		a.logger.Info("no output folder to archive", "folder", stem)
		return entry, nil
	}

	zipPath := filepath.Join(folder, stem+".zip")
	if err := zipDir(outDir, zipPath); err != nil {
		return entry, fmt.Errorf("zipping output folder %s: %w", stem, err)
	}
	entry.Zip = zipPath
	a.logger.Info("output folder archived", "folder", stem, "zip", zipPath)

	return entry, nil
}

// moveFile renames src to dst, copying and removing when the rename
// crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}

// zipDir writes every file and directory below dir into a zip at dst with
// names relative to dir.
func zipDir(dir, dst string) (err error) {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			header.Name += "/"
			_, err = zw.CreateHeader(header)
			return err
		}
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if walkErr != nil {
		zw.Close()
		return walkErr
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return nil
}
