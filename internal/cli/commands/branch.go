package commands

import (
	"github.com/devkit-labs/devkit/internal/gitstack"
	"github.com/devkit-labs/devkit/internal/run"
	"github.com/spf13/cobra"
)

// NewBranchCommand creates the branch command group.
func NewBranchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Git branch housekeeping",
	}
	cmd.AddCommand(newBranchCleanupCommand())
	return cmd
}

// BranchCleanupOptions holds options for branch cleanup.
type BranchCleanupOptions struct {
	All bool
}

func newBranchCleanupCommand() *cobra.Command {
	opts := &BranchCleanupOptions{}
	cmd := &cobra.Command{
		Use:   "cleanup [branch...]",
		Short: "Delete local branches whose commits have landed",
		Long: `Retire local branches after their commits reached the base branch:
pull the base, then rebase each branch onto its upstream and delete it.
Branches with no upstream are skipped with a warning, and git itself refuses
to delete branches that still carry unmerged work.`,
		Example: `  # Retire two finished branches
  devkit branch cleanup fix-parser add-metrics

  # Retire everything except the base branch
  devkit branch cleanup --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			if err := run.Require("git"); err != nil {
				return err
			}

			stack := gitstack.New(cmdCtx.Runner, cmdCtx.Logger)
			err := stack.Cleanup(cmd.Context(), gitstack.CleanupOptions{
				Branches: args,
				All:      opts.All,
				Base:     cmdCtx.Cfg.BaseBranch,
			})
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success("branch cleanup complete")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Retire every local branch except the base branch")

	return cmd
}
