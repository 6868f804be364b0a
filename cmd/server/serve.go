package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/reportdesk/backend/internal/api"
	"github.com/reportdesk/backend/internal/archive"
	"github.com/reportdesk/backend/internal/config"
	"github.com/reportdesk/backend/internal/jobs"
	"github.com/reportdesk/backend/internal/logging"
	"github.com/reportdesk/backend/internal/storage"
	"github.com/reportdesk/backend/internal/trigger"
	"github.com/reportdesk/backend/internal/web"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, closeLog := logging.Setup(cfg.Logging)
	defer closeLog()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout := storage.NewLayout(cfg.Storage)
	tasks := trigger.NewManager(trigger.NewCommandProcessor(cfg.Processing), trigger.Options{
		Concurrency:     cfg.Processing.Concurrency,
		Mode:            cfg.Processing.Mode,
		SuccessSentinel: cfg.Processing.SuccessSentinel,
	}, logger)
	if cfg.Processing.Command == "" {
		logger.Warn("no processing command configured, triggered jobs will fail")
	}

	// Start background task cleanup
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := tasks.CleanupOldTasks(time.Duration(cfg.Processing.TaskRetentionMinutes) * time.Minute); n > 0 {
					logger.Debug("pruned finished tasks", "count", n)
				}
			}
		}
	}()

	if cfg.Archive.AutoArchive {
		watcher := archive.NewWatcher(archive.NewArchiver(layout, logger), logger)
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start archive watcher: %w", err)
		}
		logger.Info("auto-archive enabled", "output", layout.OutputDir)
	}

	handlers := api.NewHandlers(&api.Dependencies{
		Store:               layout,
		Poller:              jobs.NewPoller(layout),
		Tasks:               tasks,
		KeepProcessedCopies: cfg.Processing.KeepProcessedCopies,
		Version:             Version,
		Logger:              logger,
	})
	e := newEcho(cfg, handlers, logger)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	printBanner(configPath, cfg)

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	grace := time.Duration(cfg.Processing.ShutdownGraceSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := tasks.WaitAll(shutdownCtx); err != nil {
		logger.Warn("background tasks still running at exit", "tracked", tasks.Len())
	}
	return nil
}

// newEcho builds the Echo instance with the middleware stack and all routes.
func newEcho(cfg *config.AppConfig, handlers *api.Handlers, logger *slog.Logger) *echo.Echo {
	logger = logging.OrDefault(logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = api.ErrorHandler
	e.Validator = api.NewRequestValidator()

	// Configure middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/api/checkExportStatus"
		},
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Int64("duration_ms", v.Latency.Milliseconds()),
				slog.String("ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/upload" || path == "/process-file" || path == "/api/viewData"
		},
		ErrorMessage: "Request timeout",
	}))

	// Compression middleware
	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Processing.CompressionLevel,
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  splitOrigins(cfg.Server.AllowOrigins),
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			ExposeHeaders: []string{echo.HeaderContentDisposition},
		}))
	}

	api.RegisterRoutes(e, handlers)

	// Serve the built frontend when one is configured
	if web.HasStaticFiles(cfg.Advanced.StaticDirectory) {
		web.RegisterStaticRoutes(e, cfg.Advanced.StaticDirectory)
		logger.Info("serving frontend", "dir", cfg.Advanced.StaticDirectory)
	}

	return e
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func printBanner(configPath string, cfg *config.AppConfig) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Report Desk Server                              ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Uploads:   %-46s║\n", cfg.Storage.UploadsDirectory)
	fmt.Printf("║  Output:    %-46s║\n", cfg.Storage.OutputDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
