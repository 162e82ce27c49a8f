package gitstack

import (
	"context"
	"fmt"
)

// CleanupOptions controls Cleanup.
type CleanupOptions struct {
	// Branches names the branches to retire. Ignored when All is set.
	Branches []string

	// All retires every local branch except Base.
	All bool

	// Base is the integration branch ("master" unless configured).
	Base string
}

// Cleanup retires local branches whose commits have landed on the base
// branch: pull the base, then for each branch rebase onto its upstream and
// delete it. A branch with no upstream configured is skipped with a warning;
// `git branch -d` itself refuses branches with unmerged work.
func (s *Stack) Cleanup(ctx context.Context, opts CleanupOptions) error {
	local, err := s.LocalBranches(ctx, opts.Base)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(local))
	for _, b := range local {
		known[b] = true
	}

	targets := opts.Branches
	if opts.All {
		targets = local
	} else {
		for _, b := range targets {
			if !known[b] {
				return fmt.Errorf("branch %s not present in output of git branch", b)
			}
		}
	}
	if len(targets) == 0 {
		s.logger.Info("no branches to clean up")
		return nil
	}

	s.logger.Debug("pulling base branch", "base", opts.Base)
	if err := s.runner.Quiet(ctx, "git", "checkout", opts.Base); err != nil {
		return err
	}
	if err := s.runner.Run(ctx, "git", "pull"); err != nil {
		return err
	}

	for _, b := range targets {
		if err := s.cleanupBranch(ctx, b, opts.Base); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stack) cleanupBranch(ctx context.Context, branch, base string) error {
	if err := s.runner.Quiet(ctx, "git", "checkout", branch); err != nil {
		return err
	}

	// No upstream set means the branch was never tracked; leave it alone.
	if _, err := s.runner.Lines(ctx, "git", "rev-parse", "--symbolic-full-name", "--abbrev-ref", "@{u}"); err != nil {
		s.logger.Warn("no upstream branch set, skipping", "branch", branch)
		return s.runner.Quiet(ctx, "git", "checkout", base)
	}

	if err := s.runner.Run(ctx, "git", "rebase"); err != nil {
		return err
	}
	if err := s.runner.Quiet(ctx, "git", "checkout", base); err != nil {
		return err
	}
	if err := s.runner.Quiet(ctx, "git", "branch", "-d", branch); err != nil {
		return err
	}
	s.logger.Info("deleted branch", "branch", branch)
	return nil
}
