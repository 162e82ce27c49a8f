package commands

import (
	"fmt"
	"os"

	"github.com/devkit-labs/devkit/internal/gitstack"
	"github.com/devkit-labs/devkit/internal/run"
	"github.com/spf13/cobra"
)

// NewStackCommand creates the stack command group.
func NewStackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Work with the stack of commits on the current branch",
		Long: `Commands over the "branch stack": the commits the current branch
carries ahead of its upstream, as reported by git status -sb.`,
	}
	cmd.AddCommand(newStackExplodeCommand())
	cmd.AddCommand(newStackTestCommand())
	return cmd
}

// StackExplodeOptions holds options for stack explode.
type StackExplodeOptions struct {
	Tag   string
	Stash bool
}

func newStackExplodeCommand() *cobra.Command {
	opts := &StackExplodeOptions{}
	cmd := &cobra.Command{
		Use:   "explode",
		Short: "Write one diff dump per commit on the branch stack",
		Long: `Write the per-commit diffs of the current branch stack into the
output directory, one file per commit plus an index file, for review or
archival. With --stash the stash list is exploded instead.`,
		Example: `  # Dump the current stack
  devkit stack explode

  # Tag the dump files for a review round
  devkit stack explode --tag rc2

  # Dump the stash list
  devkit stack explode --stash`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			if err := run.Require("git"); err != nil {
				return err
			}
			if err := os.MkdirAll(cmdCtx.Cfg.OutputDir, 0o755); err != nil {
				return fmt.Errorf("unable to create %s: %w", cmdCtx.Cfg.OutputDir, err)
			}

			stack := gitstack.New(cmdCtx.Runner, cmdCtx.Logger)
			res, err := stack.Explode(cmd.Context(), gitstack.ExplodeOptions{
				OutDir: cmdCtx.Cfg.OutputDir,
				Tag:    opts.Tag,
				Stash:  opts.Stash,
			})
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			for _, f := range res.Files {
				r.StatusLine(f, "success", "")
			}
			if len(res.Files) == 0 {
				r.Println("(nothing to explode)")
				return nil
			}
			r.Println("")
			r.Success(fmt.Sprintf("%d dumps written, index %s", len(res.Files), res.IndexFile))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Tag, "tag", "t", "", "Tag folded into the dump file names")
	cmd.Flags().BoolVarP(&opts.Stash, "stash", "S", false, "Explode the stash list instead of the branch stack")

	return cmd
}

// StackTestOptions holds options for stack test.
type StackTestOptions struct {
	Tag      string
	Script   string
	Make     bool
	NoScript bool
	Packages []string
}

func newStackTestCommand() *cobra.Command {
	opts := &StackTestOptions{}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the test script at every commit of the branch stack",
		Long: `Check out each commit of the current branch stack oldest-first, run
the configured test script (and any go test packages) at each, and record the
output next to the commit's diff dump. The original branch is restored when
the run finishes. Intended for validating that every commit of a stack builds
and passes, the way a clean history should.`,
		Example: `  # Run the default script (all.bash) at each commit
  devkit stack test

  # Use make.bash and also test a package
  devkit stack test --make -p ./internal/parser

  # Only go test, no script
  devkit stack test --no-script -p ./...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			if err := run.Require("git"); err != nil {
				return err
			}
			if err := os.MkdirAll(cmdCtx.Cfg.OutputDir, 0o755); err != nil {
				return fmt.Errorf("unable to create %s: %w", cmdCtx.Cfg.OutputDir, err)
			}

			script := cmdCtx.Cfg.StackScript
			switch {
			case opts.NoScript:
				script = ""
			case opts.Make:
				script = "make.bash"
			case opts.Script != "":
				script = opts.Script
			}

			stack := gitstack.New(cmdCtx.Runner, cmdCtx.Logger)
			res, err := stack.TestStack(cmd.Context(), gitstack.TestOptions{
				OutDir:   cmdCtx.Cfg.OutputDir,
				Tag:      opts.Tag,
				Script:   script,
				Packages: opts.Packages,
			})
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			for _, failure := range res.Failures {
				r.StatusLine(failure, "failed", "")
			}
			if len(res.Failures) > 0 {
				return fmt.Errorf("%d of %d commits failed, details in %s",
					len(res.Failures), len(res.Files), res.IndexFile)
			}
			r.Success(fmt.Sprintf("%d commits tested, all passed, index %s", len(res.Files), res.IndexFile))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Tag, "tag", "t", "", "Tag folded into the dump file names")
	cmd.Flags().StringVarP(&opts.Script, "script", "S", "", "Test script to run at each commit")
	cmd.Flags().BoolVarP(&opts.Make, "make", "m", false, "Run make.bash instead of the configured script")
	cmd.Flags().BoolVarP(&opts.NoScript, "no-script", "n", false, "Skip the script, run only -p packages")
	cmd.Flags().StringArrayVarP(&opts.Packages, "package", "p", nil, "Go package to test at each commit (repeatable)")

	return cmd
}
