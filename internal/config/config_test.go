package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Storage.AllowedExtensions)
	assert.Equal(t, filepath.Join(dir, "uploads"), cfg.Storage.UploadsDirectory)
	assert.Equal(t, filepath.Join(dir, "archive"), cfg.Storage.ArchiveDirectory)
	assert.Equal(t, "SUCCESS", cfg.Processing.SuccessSentinel)
	assert.Equal(t, 4, cfg.Processing.Concurrency)
	assert.Equal(t, 1, cfg.Processing.Mode)
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8090
storage:
  uploadsDirectory: /srv/uploads
  outputDirectory: out
  processedDirectory: processed
  archiveDirectory: archive
  allowedExtensions: [".CSV", "xlsx"]
processing:
  command: /usr/bin/report
  args: ["--quiet"]
  successSentinel: DONE
archive:
  autoArchive: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "/srv/uploads", cfg.Storage.UploadsDirectory)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Storage.OutputDirectory)
	assert.Equal(t, []string{"csv", "xlsx"}, cfg.Storage.AllowedExtensions)
	assert.Equal(t, "/usr/bin/report", cfg.Processing.Command)
	assert.Equal(t, []string{"--quiet"}, cfg.Processing.Args)
	assert.Equal(t, "DONE", cfg.Processing.SuccessSentinel)
	assert.True(t, cfg.Archive.AutoArchive)
	// untouched sections keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.BindAddress)
	assert.Equal(t, 4, cfg.Processing.Concurrency)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	dataDir := filepath.Join(dir, "data")

	t.Setenv("PORT", "9100")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PROCESS_COMMAND", "/opt/gen")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dataDir, "uploads"), cfg.Storage.UploadsDirectory)
	assert.Equal(t, filepath.Join(dataDir, "output"), cfg.Storage.OutputDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/opt/gen", cfg.Processing.Command)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *AppConfig) {}},
		{name: "bad port", mutate: func(c *AppConfig) { c.Server.Port = 0 }, wantErr: true},
		{name: "no extensions", mutate: func(c *AppConfig) { c.Storage.AllowedExtensions = nil }, wantErr: true},
		{name: "empty archive dir", mutate: func(c *AppConfig) { c.Storage.ArchiveDirectory = "" }, wantErr: true},
		{name: "empty sentinel", mutate: func(c *AppConfig) { c.Processing.SuccessSentinel = "" }, wantErr: true},
		{name: "zero cleanup interval", mutate: func(c *AppConfig) { c.Processing.CleanupIntervalMinutes = 0 }, wantErr: true},
		{name: "negative retention", mutate: func(c *AppConfig) { c.Processing.TaskRetentionMinutes = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.UploadsDirectory = filepath.Join(dir, "a", "uploads")
	cfg.Storage.OutputDirectory = filepath.Join(dir, "a", "output")
	cfg.Storage.ProcessedDirectory = filepath.Join(dir, "processed")
	cfg.Storage.ArchiveDirectory = filepath.Join(dir, "archive")

	require.NoError(t, cfg.EnsureDirectories())
	// second call is a no-op
	require.NoError(t, cfg.EnsureDirectories())

	for _, d := range []string{
		cfg.Storage.UploadsDirectory,
		cfg.Storage.OutputDirectory,
		cfg.Storage.ProcessedDirectory,
		cfg.Storage.ArchiveDirectory,
	} {
		assert.DirExists(t, d)
	}
}

func TestEnsureDirectories_FailsWhenPathIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := DefaultConfig()
	cfg.Storage.UploadsDirectory = filepath.Join(blocker, "uploads")

	assert.Error(t, cfg.EnsureDirectories())
}
