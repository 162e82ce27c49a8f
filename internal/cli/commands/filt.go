package commands

import (
	"strconv"

	"github.com/devkit-labs/devkit/internal/textfilt"
	"github.com/spf13/cobra"
)

// NewFiltCommand creates the filt command group.
func NewFiltCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filt",
		Short: "Small line filters for pipelines",
		Long: `Assorted line filters, each reading stdin and writing stdout, meant
to sit in a shell pipeline.`,
	}
	cmd.AddCommand(newFiltPickCommand())
	cmd.AddCommand(newFiltTrimCommand())
	cmd.AddCommand(newFiltNumberCommand())
	cmd.AddCommand(newFiltSortSizeCommand())
	cmd.AddCommand(newFiltSortLenCommand())
	cmd.AddCommand(newFiltPlainCommand())
	return cmd
}

func newFiltPickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pick <first> <last>",
		Short: "Pass through lines first..last (1-based, inclusive)",
		Example: `  # Lines 10 through 20 of a log
  cat build.log | devkit filt pick 10 20`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			hi, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			return textfilt.Pick(cmd.InOrStdin(), cmd.OutOrStdout(), lo, hi)
		},
	}
}

func newFiltTrimCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trim",
		Short: "Strip leading and trailing whitespace from each line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return textfilt.Trim(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newFiltNumberCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "number",
		Short: "Prefix each line with its zero-padded line number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return textfilt.Number(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newFiltSortSizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sortsize",
		Short: "Sort human-readable sizes (du -h style) ascending",
		Example: `  # Largest directories last
  du -sh */ | devkit filt sortsize`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			return textfilt.SortBySize(cmd.InOrStdin(), cmd.OutOrStdout(), cmdCtx.Logger)
		},
	}
}

func newFiltSortLenCommand() *cobra.Command {
	var reverse bool
	cmd := &cobra.Command{
		Use:   "sortlen",
		Short: "Sort lines by length, longest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return textfilt.SortByLen(cmd.InOrStdin(), cmd.OutOrStdout(), reverse)
		},
	}
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "Shortest lines first")
	return cmd
}

func newFiltPlainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plain",
		Short: "Drop lines with embedded whitespace or quotes",
		Long: `Drop lines containing internal whitespace or quote characters,
leaving only names that downstream tools like ctags handle cleanly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return textfilt.Plain(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
