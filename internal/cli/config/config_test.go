package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlcst.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-versions", 0, "")
	flags.Duration("parse-timeout", 0, "")
	flags.String("output", "", "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `max_versions: 12
skip_window: 5
parse_timeout: 250ms
encoding: Latin1
output: json
`)
	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, 12, cfg.MaxVersions)
	assert.Equal(t, 5, cfg.SkipWindow)
	assert.Equal(t, 250*time.Millisecond, cfg.ParseTimeout)
	assert.Equal(t, "latin1", cfg.Encoding)
	assert.Equal(t, OutputJSON, cfg.OutputFormat)
}

func TestLoadConfig_DiscoversFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqlcst.yml"), []byte("workers: 3\n"), 0600))
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "sqlcst.yml", GetConfigFileUsed())
}

func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	path := writeConfig(t, "max_versions: 12\n")
	t.Setenv("SQLCST_MAX_VERSIONS", "8")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxVersions, "env var should override config file")
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	path := writeConfig(t, "max_versions: 12\nparse_timeout: 1s\n")
	t.Setenv("SQLCST_MAX_VERSIONS", "8")

	flags := testFlags()
	require.NoError(t, flags.Set("max-versions", "4"))
	require.NoError(t, flags.Set("parse-timeout", "2s"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxVersions, "flag value should override config file and env var")
	assert.Equal(t, 2*time.Second, cfg.ParseTimeout)
}

func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	path := writeConfig(t, "max_versions: 12\n")
	t.Setenv("SQLCST_MAX_VERSIONS", "8")

	cfg, err := LoadConfig(path, testFlags())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxVersions, "env var should be used when flag is not set")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"zero versions", "max_versions: 0\n", "max_versions"},
		{"bad output", "output: xml\n", "unknown output format"},
		{"bad color", "color: sometimes\n", "unknown color mode"},
		{"bad level", "log_level: loud\n", "unknown log level"},
		{"bad encoding", "encoding: ebcdic\n", "unknown encoding"},
		{"negative workers", "workers: -1\n", "workers"},
		{"bad duration", "parse_timeout: soon\n", "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	cfg.Verbose = true
	cfg.NewLogger(&buf).Debug("debugging")
	assert.Contains(t, buf.String(), "debugging")
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Default(), GetConfig(ctx))
	assert.NotNil(t, GetLogger(ctx))

	cfg := &Config{MaxVersions: 2}
	logger := slog.New(slog.DiscardHandler)
	ctx = WithLogger(WithConfig(ctx, cfg), logger)
	assert.Same(t, cfg, GetConfig(ctx))
	assert.Same(t, logger, GetLogger(ctx))
}
