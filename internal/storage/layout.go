package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/reportdesk/backend/internal/config"
	"github.com/reportdesk/backend/internal/models"
)

var (
	// ErrInvalidName is returned for names that are empty or would escape their root.
	ErrInvalidName = errors.New("invalid file or folder name")
	// ErrNotFound is returned when a folder or file does not exist.
	ErrNotFound = errors.New("not found")
)

// Store defines the filesystem operations the HTTP layer needs.
type Store interface {
	SaveUpload(name string, r io.Reader) (*models.FileInfo, error)
	UploadPath(name string) (string, error)
	OutputFolder(folder string) (string, error)
	OutputFile(folder, name string) (string, error)
	SaveProcessed(name string, data []byte) (string, error)
	AllowedExtension(name string) bool
}

// Layout implements Store over the four storage roots.
// It holds no mutable state; concurrent writers to one path race and the
// last write wins.
type Layout struct {
	UploadsDir   string
	OutputDir    string
	ProcessedDir string
	ArchiveDir   string

	allowed map[string]bool
}

// NewLayout creates a Layout from config. Directories are expected to exist
// (see config.EnsureDirectories).
func NewLayout(cfg config.StorageConfig) *Layout {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Layout{
		UploadsDir:   cfg.UploadsDirectory,
		OutputDir:    cfg.OutputDirectory,
		ProcessedDir: cfg.ProcessedDirectory,
		ArchiveDir:   cfg.ArchiveDirectory,
		allowed:      allowed,
	}
}

// AllowedExtension reports whether name has an extension in the allowed set.
func (l *Layout) AllowedExtension(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	return l.allowed[strings.ToLower(name[idx+1:])]
}

// SaveUpload writes r to uploads/<name>. name must already be sanitized.
func (l *Layout) SaveUpload(name string, r io.Reader) (*models.FileInfo, error) {
	path, err := l.UploadPath(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("syncing file: %w", err)
	}

	return &models.FileInfo{
		Name:       name,
		Path:       path,
		Extension:  strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		Size:       size,
		UploadedAt: time.Now(),
	}, nil
}

// UploadPath returns the path of uploads/<name>.
func (l *Layout) UploadPath(name string) (string, error) {
	return join(l.UploadsDir, name)
}

// OutputFolder returns the path of output/<folder> and ErrNotFound when it
// is not a directory.
func (l *Layout) OutputFolder(folder string) (string, error) {
	path, err := join(l.OutputDir, folder)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path, fmt.Errorf("folder %s: %w", folder, ErrNotFound)
	}
	return path, nil
}

// OutputFile returns the path of output/<folder>/<name>. It returns
// ErrNotFound when either the folder or the file is missing.
func (l *Layout) OutputFile(folder, name string) (string, error) {
	dir, err := l.OutputFolder(folder)
	if err != nil {
		return "", err
	}
	path, err := join(dir, name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, fmt.Errorf("file %s: %w", name, ErrNotFound)
	}
	return path, nil
}

// SaveProcessed writes a converted file to processed/<name>.
func (l *Layout) SaveProcessed(name string, data []byte) (string, error) {
	path, err := join(l.ProcessedDir, name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing processed file: %w", err)
	}
	return path, nil
}

// join resolves a single path segment under root.
func join(root, name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return filepath.Join(root, name), nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeFilename reduces an uploaded filename to a safe single segment:
// directory components are dropped, accents are folded to ASCII, spaces and
// other unsafe characters become underscores and leading/trailing dots and
// underscores are trimmed. It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, norm.NFKD.String(name))
	name = unsafeChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}

// Stem returns name without its final extension.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
