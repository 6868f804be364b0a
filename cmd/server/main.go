package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reportdesk/backend/internal/config"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const configFileName = "reportdesk.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "reportdesk",
		Short:         "File ingestion and report conversion server",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newArchiveCmd(&configPath))
	return root
}

// defaultConfigPath places the config next to the executable.
func defaultConfigPath() string {
	exePath, err := os.Executable()
	if err != nil {
		return configFileName
	}
	return filepath.Join(filepath.Dir(exePath), configFileName)
}

// loadConfig loads the config and creates the storage roots. Both failures
// are fatal to every command.
func loadConfig(path string) (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return cfg, nil
}
