package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/devkit-labs/devkit/internal/chatfilter"
	"github.com/spf13/cobra"
)

// ChatFilterOptions holds options for the chatfilter command.
type ChatFilterOptions struct {
	Input  string
	Output string
}

// NewChatFilterCommand creates the chatfilter command.
func NewChatFilterCommand() *cobra.Command {
	opts := &ChatFilterOptions{}
	cmd := &cobra.Command{
		Use:   "chatfilter",
		Short: "Strip join/quit/bot noise from IRC logs",
		Long: `Filter IRC channel logs, dropping the administrative noise:
channel joins, quits and parts, nick changes, operator grants, bot commit
announcements, and buildbot completion notices. Every other line passes
through unchanged.`,
		Example: `  # Filter a saved log
  devkit chatfilter -i '#go-nuts.txt' -o filtered.txt

  # As a pipe stage
  cat '#llvm.txt' | devkit chatfilter | less`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChatFilter(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Input file (default stdin)")
	cmd.Flags().StringVarP(&opts.Output, "output-file", "o", "", "Output file (default stdout)")

	return cmd
}

func runChatFilter(cmd *cobra.Command, opts *ChatFilterOptions) error {
	cmdCtx := NewCommandContext(cmd)

	var in io.Reader = cmd.InOrStdin()
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			return fmt.Errorf("unable to open input %s: %w", opts.Input, err)
		}
		defer f.Close()
		in = f
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("unable to create output %s: %w", opts.Output, err)
		}
		defer f.Close()
		out = f
	}

	dropped, err := chatfilter.New(cmdCtx.Logger).Apply(in, out)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Debug("chat filter complete", "dropped", dropped)
	return nil
}
