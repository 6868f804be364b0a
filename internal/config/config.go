// Package config provides YAML-based configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration structure.
// It is loaded once at startup and treated as read-only afterwards.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Processing ProcessingConfig `yaml:"processing"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Logging    LoggingConfig    `yaml:"logging"`
	Advanced   AdvancedConfig   `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                int    `yaml:"port"`
	BindAddress         string `yaml:"bindAddress"`
	EnableCORS          bool   `yaml:"enableCORS"`
	AllowOrigins        string `yaml:"allowOrigins"`
	ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit           string `yaml:"bodyLimit"`
}

// StorageConfig contains the four storage roots and upload rules.
type StorageConfig struct {
	UploadsDirectory   string   `yaml:"uploadsDirectory"`
	OutputDirectory    string   `yaml:"outputDirectory"`
	ProcessedDirectory string   `yaml:"processedDirectory"`
	ArchiveDirectory   string   `yaml:"archiveDirectory"`
	AllowedExtensions  []string `yaml:"allowedExtensions"`
}

// ProcessingConfig contains settings for the external report generator.
type ProcessingConfig struct {
	Command                string   `yaml:"command"`
	Args                   []string `yaml:"args"`
	WorkingDirectory       string   `yaml:"workingDirectory"`
	Concurrency            int      `yaml:"concurrency"`
	Mode                   int      `yaml:"mode"`
	SuccessSentinel        string   `yaml:"successSentinel"`
	TaskRetentionMinutes   int      `yaml:"taskRetentionMinutes"`
	CleanupIntervalMinutes int      `yaml:"cleanupIntervalMinutes"`
	ShutdownGraceSeconds   int      `yaml:"shutdownGraceSeconds"`
	KeepProcessedCopies    bool     `yaml:"keepProcessedCopies"`
	EnableCompression      bool     `yaml:"enableCompression"`
	CompressionLevel       int      `yaml:"compressionLevel"`
}

// ArchiveConfig controls archiving of finished jobs.
type ArchiveConfig struct {
	AutoArchive bool `yaml:"autoArchive"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // optional JSON log file
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
	StaticDirectory      string `yaml:"staticDirectory"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:                5000,
			BindAddress:         "0.0.0.0",
			EnableCORS:          true,
			AllowOrigins:        "*",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 60,
			IdleTimeoutSeconds:  120,
			BodyLimit:           "100M",
		},
		Storage: StorageConfig{
			UploadsDirectory:   "./uploads",
			OutputDirectory:    "./output",
			ProcessedDirectory: "./processed",
			ArchiveDirectory:   "./archive",
			AllowedExtensions:  []string{"csv", "xlsx"},
		},
		Processing: ProcessingConfig{
			Concurrency:            4,
			Mode:                   1,
			SuccessSentinel:        "SUCCESS",
			TaskRetentionMinutes:   60,
			CleanupIntervalMinutes: 5,
			ShutdownGraceSeconds:   10,
			EnableCompression:      true,
			CompressionLevel:       5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is
// created with the defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Report Desk configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Storage.AllowedExtensions) == 0 {
		return errors.New("storage.allowedExtensions must not be empty")
	}
	for name, dir := range map[string]string{
		"uploadsDirectory":   c.Storage.UploadsDirectory,
		"outputDirectory":    c.Storage.OutputDirectory,
		"processedDirectory": c.Storage.ProcessedDirectory,
		"archiveDirectory":   c.Storage.ArchiveDirectory,
	} {
		if dir == "" {
			return fmt.Errorf("storage.%s must not be empty", name)
		}
	}
	if c.Processing.SuccessSentinel == "" {
		return errors.New("processing.successSentinel must not be empty")
	}
	if c.Processing.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("processing.cleanupIntervalMinutes must be positive: %d", c.Processing.CleanupIntervalMinutes)
	}
	if c.Processing.TaskRetentionMinutes <= 0 {
		return fmt.Errorf("processing.taskRetentionMinutes must be positive: %d", c.Processing.TaskRetentionMinutes)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR relocates all four storage roots under one directory
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.UploadsDirectory = filepath.Join(dataDir, "uploads")
		c.Storage.OutputDirectory = filepath.Join(dataDir, "output")
		c.Storage.ProcessedDirectory = filepath.Join(dataDir, "processed")
		c.Storage.ArchiveDirectory = filepath.Join(dataDir, "archive")
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
	if cmd := os.Getenv("PROCESS_COMMAND"); cmd != "" {
		c.Processing.Command = cmd
	}

	for i, ext := range c.Storage.AllowedExtensions {
		c.Storage.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.UploadsDirectory,
		&c.Storage.OutputDirectory,
		&c.Storage.ProcessedDirectory,
		&c.Storage.ArchiveDirectory,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
	if c.Advanced.StaticDirectory != "" && !filepath.IsAbs(c.Advanced.StaticDirectory) {
		c.Advanced.StaticDirectory = filepath.Join(configDir, c.Advanced.StaticDirectory)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates the uploads, output, processed and archive roots.
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.UploadsDirectory,
		c.Storage.OutputDirectory,
		c.Storage.ProcessedDirectory,
		c.Storage.ArchiveDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
