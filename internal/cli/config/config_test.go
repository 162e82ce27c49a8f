package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/devkit-labs/devkit/internal/testutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	ResetConfig()
	testutil.Chdir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, DefaultBaseBranch, cfg.BaseBranch)
	assert.Equal(t, DefaultStackScript, cfg.StackScript)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.False(t, cfg.Echo)
	assert.False(t, cfg.DryRun)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfigFromFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	testutil.Chdir(t, dir)
	cfgYAML := `
output_dir: /data/dumps
base_branch: main
android_serial: ABC123
devtags:
  pixel: ABC123
  tablet: DEF456
source_roots:
  - src/platform
index_suffixes:
  - .c
  - .h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "devkit.yaml"), []byte(cfgYAML), 0o644))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/data/dumps", cfg.OutputDir)
	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, "ABC123", cfg.AndroidSerial)
	assert.Equal(t, map[string]string{"pixel": "ABC123", "tablet": "DEF456"}, cfg.DevTags)
	assert.Equal(t, []string{"src/platform"}, cfg.SourceRoots)
	assert.Equal(t, []string{".c", ".h"}, cfg.IndexSuffixes)
	assert.Equal(t, filepath.Join(dir, "devkit.yaml"), GetConfigFileUsed())
}

func TestLoadConfigUpwardSearch(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "devkit.yaml"), []byte("base_branch: main\n"), 0o644))
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	testutil.Chdir(t, sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.BaseBranch)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	testutil.Chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "devkit.yaml"), []byte("base_branch: main\n"), 0o644))
	t.Setenv("DEVKIT_BASE_BRANCH", "develop")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "develop", cfg.BaseBranch)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	ResetConfig()
	testutil.Chdir(t, t.TempDir())
	t.Setenv("DEVKIT_OUTPUT_DIR", "/from/env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("outdir", "o", "", "output directory")
	flags.String("output", "", "output format")
	require.NoError(t, flags.Parse([]string{"--outdir", "/from/flag", "--output", "json"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.OutputDir)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoadConfigUnchangedFlagIgnored(t *testing.T) {
	ResetConfig()
	testutil.Chdir(t, t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("outdir", "o", "", "output directory")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
}

func TestLoadConfigLegacyEnv(t *testing.T) {
	ResetConfig()
	testutil.Chdir(t, t.TempDir())
	t.Setenv("DEVTAGS", "pixel:ABC123 tablet:DEF456")
	t.Setenv("ANDROID_SERIAL", "ABC123")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"pixel": "ABC123", "tablet": "DEF456"}, cfg.DevTags)
	assert.Equal(t, "ABC123", cfg.AndroidSerial)
}

func TestParseDevTags(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", in: "", want: map[string]string{}},
		{name: "single", in: "pixel:ABC", want: map[string]string{"pixel": "ABC"}},
		{name: "multiple", in: "bullhead:0071fa2b12c0a31d angler:9b11aa0c",
			want: map[string]string{"bullhead": "0071fa2b12c0a31d", "angler": "9b11aa0c"}},
		{name: "pair without serial", in: "a:1 junk b:2", wantErr: true},
		{name: "empty tag", in: ":123", wantErr: true},
		{name: "empty serial", in: "pixel:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDevTags(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "tag:serial")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfigMalformedDevTagsEnv(t *testing.T) {
	testutil.Chdir(t, t.TempDir())
	ResetConfig()
	t.Setenv("DEVTAGS", "pixel-no-serial")

	_, err := LoadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEVTAGS")
}

func TestValidate(t *testing.T) {
	cfg := &Config{OutputFormat: "json"}
	require.NoError(t, cfg.Validate())

	cfg.OutputFormat = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")

	cfg = &Config{
		OutputFormat: "auto",
		DevTags:      map[string]string{"a": "SAME", "b": "SAME"},
	}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tagged twice")
}

func TestGetLogger(t *testing.T) {
	// No logger in context falls back to a discard logger.
	logger := GetLogger(context.Background())
	require.NotNil(t, logger)

	want := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.WithValue(context.Background(), LoggerKey(), want)
	assert.Same(t, want, GetLogger(ctx))
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		debug int
		level slog.Level
	}{
		{0, slog.LevelWarn},
		{1, slog.LevelInfo},
		{2, slog.LevelDebug},
		{5, slog.LevelDebug},
	}
	for _, tt := range tests {
		logger := NewLogger(os.Stderr, tt.debug)
		assert.True(t, logger.Enabled(context.Background(), tt.level))
		assert.False(t, logger.Enabled(context.Background(), tt.level-1))
	}
}
