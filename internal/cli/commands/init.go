package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devkit-labs/devkit/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// starterConfig is the devkit.yaml skeleton written by init. A struct keeps
// the key order stable across runs.
type starterConfig struct {
	OutputDir     string            `yaml:"output_dir"`
	BaseBranch    string            `yaml:"base_branch"`
	StackScript   string            `yaml:"stack_script"`
	AndroidSerial string            `yaml:"android_serial,omitempty"`
	DevTags       map[string]string `yaml:"devtags,omitempty"`
	SourceRoots   []string          `yaml:"source_roots,omitempty"`
	IndexSuffixes []string          `yaml:"index_suffixes,omitempty"`
	Output        string            `yaml:"output"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter devkit.yaml",
		Long: `Write a devkit.yaml with the default configuration, seeded from the
legacy DEVTAGS and ANDROID_SERIAL environment variables when they are set.`,
		Example: `  # Initialize in the current directory
  devkit init

  # Initialize elsewhere, overwriting an existing config
  devkit init ~/aosp --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	cmdCtx := NewCommandContext(cmd)

	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, "devkit.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("devkit.yaml already exists. Use --force to overwrite")
	}

	starter := starterConfig{
		OutputDir:     config.DefaultOutputDir,
		BaseBranch:    config.DefaultBaseBranch,
		StackScript:   config.DefaultStackScript,
		AndroidSerial: os.Getenv("ANDROID_SERIAL"),
		Output:        config.DefaultOutput,
	}
	if devtags := os.Getenv("DEVTAGS"); devtags != "" {
		tags, err := config.ParseDevTags(devtags)
		if err != nil {
			return fmt.Errorf("DEVTAGS: %w", err)
		}
		starter.DevTags = tags
	}

	data, err := yaml.Marshal(&starter)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r := cmdCtx.Renderer
	r.StatusLine(configPath, "success", "")
	r.Println("")
	r.Success("devkit initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Add your device tags under devtags:")
	r.Println("  2. Run 'devkit devices' to check the device table")
	r.Println("  3. Run 'devkit stack explode' from a git branch")

	return nil
}
