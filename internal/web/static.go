// Package web serves a built single-page frontend from a directory.
package web

import (
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

// HasStaticFiles returns true if dir contains a built frontend (index.html).
func HasStaticFiles(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, "index.html"))
	return err == nil && !info.IsDir()
}

// RegisterStaticRoutes serves dir for every GET route not matched by the
// API. Unknown paths fall back to index.html so the frontend router can
// handle them. Register API routes first.
func RegisterStaticRoutes(e *echo.Echo, dir string) {
	staticFS := os.DirFS(dir)
	fileServer := http.FileServer(http.FS(staticFS))

	e.GET("/*", func(c echo.Context) error {
		requestPath := path.Clean(c.Request().URL.Path)
		name := strings.TrimPrefix(requestPath, "/")
		if name == "" {
			name = "."
		}

		stat, err := fs.Stat(staticFS, name)
		if err != nil {
			return serveIndexHTML(c, staticFS)
		}
		if stat.IsDir() {
			if _, err := fs.Stat(staticFS, path.Join(name, "index.html")); err != nil {
				return serveIndexHTML(c, staticFS)
			}
		}

		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}

// serveIndexHTML serves the main index.html for SPA routing
func serveIndexHTML(c echo.Context, staticFS fs.FS) error {
	indexFile, err := staticFS.Open("index.html")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "index.html not found")
	}
	defer indexFile.Close()

	content, err := io.ReadAll(indexFile)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read index.html")
	}

	return c.HTMLBlob(http.StatusOK, content)
}
