package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/devkit-labs/devkit/internal/run"
	"github.com/devkit-labs/devkit/internal/snapshot"
	"github.com/spf13/cobra"
)

// SnapshotOptions holds options for snapshot save.
type SnapshotOptions struct {
	SHARange string
	Branch   string
	Base     string
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Archive the modified state of the working copy",
	}
	cmd.AddCommand(newSnapshotSaveCommand())
	return cmd
}

func newSnapshotSaveCommand() *cobra.Command {
	opts := &SnapshotOptions{}
	cmd := &cobra.Command{
		Use:   "save [destdir]",
		Short: "Copy changed files, diffs, and predecessors into an archive",
		Long: `Archive the staged changes of the working copy into a directory:
the full diff, the recent log, write-protected copies of every added or
modified file, the HEAD predecessor of each modified file (as <file>.BASE),
and records of deletions and renames. Unstaged or untracked changes abort the
run, so the archive always matches the index.

Instead of the staged changes, --shas OLD:NEW archives the changes between
two commits, and --branch B archives the changes between the base branch
and B.

Without a destdir argument the archive lands in the output directory under
snap.<branch>.<sha>.<timestamp>.`,
		Example: `  # Archive the staged changes before a risky rebase
  devkit snapshot save /tmp/before-rebase

  # Archive a commit range
  devkit snapshot save /tmp/fix-v2 --shas 1f0e44c:a31c0de

  # Archive a branch against the base branch
  devkit snapshot save /tmp/feature --branch my-feature`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			destDir := ""
			if len(args) == 1 {
				destDir = args[0]
			}
			return runSnapshotSave(cmd, destDir, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.SHARange, "shas", "S", "", "Archive changes between OLD:NEW commits")
	cmd.Flags().StringVarP(&opts.Branch, "branch", "B", "", "Archive changes between the base branch and BRANCH")
	cmd.Flags().StringVarP(&opts.Base, "base", "T", "", "Base branch for --branch (default from config)")

	return cmd
}

func runSnapshotSave(cmd *cobra.Command, destDir string, opts *SnapshotOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if err := run.Require("git"); err != nil {
		return err
	}
	if opts.SHARange != "" && opts.Branch != "" {
		return fmt.Errorf("--shas and --branch are mutually exclusive")
	}
	if destDir == "" {
		d, err := defaultSnapshotDir(cmd, cmdCtx)
		if err != nil {
			return err
		}
		destDir = d
	}

	snapOpts := snapshot.Options{DestDir: destDir}
	if opts.SHARange != "" {
		oldSHA, newSHA, ok := strings.Cut(opts.SHARange, ":")
		if !ok || oldSHA == "" || newSHA == "" {
			return fmt.Errorf("malformed --shas %q (want OLD:NEW)", opts.SHARange)
		}
		snapOpts.OldSHA, snapOpts.NewSHA = oldSHA, newSHA
	}
	if opts.Branch != "" {
		snapOpts.Branch = opts.Branch
		snapOpts.Base = opts.Base
		if snapOpts.Base == "" {
			snapOpts.Base = cmdCtx.Cfg.BaseBranch
		}
	}

	snap := snapshot.New(cmdCtx.Runner, cmdCtx.Logger)
	ch, err := snap.Collect(cmd.Context(), snapOpts)
	if err != nil {
		return err
	}
	if len(ch.Mods) == 0 {
		return fmt.Errorf("nothing to archive")
	}

	copied, err := snap.Archive(cmd.Context(), snapOpts, ch)
	if err != nil {
		return err
	}
	cmdCtx.Renderer.Success(fmt.Sprintf("%d files archived in %s", copied, destDir))
	return nil
}

// defaultSnapshotDir names an archive directory after the current branch
// and commit, e.g. <outdir>/snap.mybranch.1f0e44c.20260824-153012.
func defaultSnapshotDir(cmd *cobra.Command, cmdCtx *CommandContext) (string, error) {
	branch, err := gitLine(cmd, cmdCtx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	sha, err := gitLine(cmd, cmdCtx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("snap.%s.%s.%s", branch, sha, time.Now().Format("20060102-150405"))
	return filepath.Join(cmdCtx.Cfg.OutputDir, name), nil
}

func gitLine(cmd *cobra.Command, cmdCtx *CommandContext, args ...string) (string, error) {
	lines, err := cmdCtx.Runner.Lines(cmd.Context(), "git", args...)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("empty output from git %s", strings.Join(args, " "))
	}
	return lines[0], nil
}
