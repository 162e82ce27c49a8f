package commands

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/devkit-labs/devkit/internal/cli/config"
	"github.com/devkit-labs/devkit/internal/cli/output"
	"github.com/devkit-labs/devkit/internal/run"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Runner   run.Runner
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with runner and renderer. The
// config and renderer stored by the root command's PersistentPreRunE are
// preferred; commands executed standalone (as in tests) fall back to the
// environment and a freshly built renderer.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	if cfg == nil {
		cfg = getConfig()
	}
	logger := config.GetLogger(cmd.Context())

	r := output.GetRenderer(cmd.Context())
	if r == nil {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
	}

	runner := &run.Exec{
		Echo:   cfg.Echo,
		DryRun: cfg.DryRun,
		Logger: logger,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Runner:   runner,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	outputDir := getEnvOrDefault("DEVKIT_OUTPUT_DIR", config.DefaultOutputDir)
	baseBranch := getEnvOrDefault("DEVKIT_BASE_BRANCH", config.DefaultBaseBranch)
	stackScript := getEnvOrDefault("DEVKIT_STACK_SCRIPT", config.DefaultStackScript)
	outputFormat := getEnvOrDefault("DEVKIT_OUTPUT", config.DefaultOutput)
	debug, _ := strconv.Atoi(os.Getenv("DEVKIT_DEBUG"))

	// Malformed DEVTAGS is reported by the loader path; here the field just
	// stays empty.
	devTags, _ := config.ParseDevTags(os.Getenv("DEVTAGS"))

	return &config.Config{
		OutputDir:     outputDir,
		BaseBranch:    baseBranch,
		StackScript:   stackScript,
		AndroidSerial: os.Getenv("ANDROID_SERIAL"),
		DevTags:       devTags,
		Echo:          os.Getenv("DEVKIT_ECHO") == "true",
		DryRun:        os.Getenv("DEVKIT_DRY_RUN") == "true",
		Debug:         debug,
		OutputFormat:  outputFormat,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
