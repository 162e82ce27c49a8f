// Package cli provides the command-line interface for devkit.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/devkit-labs/devkit/internal/cli/commands"
	"github.com/devkit-labs/devkit/internal/cli/config"
	"github.com/devkit-labs/devkit/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var debugCount int

	rootCmd := &cobra.Command{
		Use:   "devkit",
		Short: "devkit - Developer convenience tools",
		Long: `devkit bundles the small helpers of day-to-day platform development:
git branch-stack tooling, Android device helpers over adb, kernel log
timestamp rewriting, source indexing, and assorted pipeline filters.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Load configuration with CLI flag overrides
			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Store config, logger, and renderer in context; subcommands
			// retrieve them through NewCommandContext.
			ctx := context.WithValue(cmd.Context(), config.ConfigKey(), cfg)

			logger := config.NewLogger(os.Stderr, cfg.Debug)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)

			mode := output.Mode(cfg.OutputFormat)
			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			ctx = context.WithValue(ctx, output.RendererKey(), renderer)
			cmd.SetContext(ctx)

			if cfg.Debug > 0 {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Developer convenience tools
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./devkit.yaml, searched upward)")
	rootCmd.PersistentFlags().CountVarP(&debugCount, "debug", "d", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolP("echo", "e", false, "Print external commands before running them")
	rootCmd.PersistentFlags().BoolP("dry-run", "D", false, "Print external commands without running them")
	rootCmd.PersistentFlags().StringP("outdir", "o", "", "Directory for generated files")
	rootCmd.PersistentFlags().String("output", "", "Output format (auto|text|markdown|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewChatFilterCommand())
	rootCmd.AddCommand(commands.NewDevicesCommand())
	rootCmd.AddCommand(commands.NewUSBResetCommand())
	rootCmd.AddCommand(commands.NewDmesgCommand())
	rootCmd.AddCommand(commands.NewTombstonesCommand())
	rootCmd.AddCommand(commands.NewStackCommand())
	rootCmd.AddCommand(commands.NewBranchCommand())
	rootCmd.AddCommand(commands.NewSnapshotCommand())
	rootCmd.AddCommand(commands.NewFiltCommand())
	rootCmd.AddCommand(commands.NewIndexCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for devkit.

To load completions:

Bash:
  $ source <(devkit completion bash)

Zsh:
  $ devkit completion zsh > "${fpath[1]}/_devkit"

Fish:
  $ devkit completion fish | source

PowerShell:
  PS> devkit completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
	return cmd
}
