package commands

import (
	"fmt"
	"path/filepath"

	"github.com/devkit-labs/devkit/internal/index"
	"github.com/devkit-labs/devkit/internal/run"
	"github.com/spf13/cobra"
)

// IndexOptions holds options for the index command.
type IndexOptions struct {
	Gtags    bool
	Mkid     bool
	KeepList bool
}

// NewIndexCommand creates the index command.
func NewIndexCommand() *cobra.Command {
	opts := &IndexOptions{}
	cmd := &cobra.Command{
		Use:   "index [root...]",
		Short: "Build gtags/mkid indexes over the source roots",
		Long: `Walk the configured source roots (or the given directories),
collect the files matching the configured suffix list, and feed the list to
gtags and/or mkid. Defaults to both indexers.`,
		Example: `  # Index the configured roots with both tools
  devkit index

  # Only gtags, over an explicit tree
  devkit index --mkid=false ~/aosp/frameworks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Gtags, "gtags", true, "Run gtags over the file list")
	cmd.Flags().BoolVar(&opts.Mkid, "mkid", true, "Run mkid over the file list")
	cmd.Flags().BoolVar(&opts.KeepList, "keep-list", false, "Keep the generated file list")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string, opts *IndexOptions) error {
	cmdCtx := NewCommandContext(cmd)

	roots := args
	if len(roots) == 0 {
		roots = cmdCtx.Cfg.SourceRoots
	}
	if len(roots) == 0 {
		return fmt.Errorf("no source roots: pass directories or set source_roots in devkit.yaml")
	}

	ixOpts := index.Options{
		Roots:    roots,
		Suffixes: cmdCtx.Cfg.IndexSuffixes,
		ListFile: filepath.Join(".", "devkit.files"),
		Gtags:    opts.Gtags,
		Mkid:     opts.Mkid,
		KeepList: opts.KeepList,
	}
	if len(ixOpts.Tools()) == 0 {
		return fmt.Errorf("nothing to do: both --gtags and --mkid disabled")
	}
	if err := run.Require(ixOpts.Tools()...); err != nil {
		return err
	}

	n, err := index.New(cmdCtx.Runner, cmdCtx.Logger).Build(cmd.Context(), ixOpts)
	if err != nil {
		return err
	}
	cmdCtx.Renderer.Success(fmt.Sprintf("%d files indexed", n))
	return nil
}
