// Package gitstack operates on stacks of commits carried on a local git
// development branch: dumping per-commit diffs, running the test script
// against every commit in the stack, and retiring branches whose commits
// have landed upstream.
package gitstack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/devkit-labs/devkit/internal/run"
)

// Stack wraps git operations on the current repository.
type Stack struct {
	runner run.Runner
	logger *slog.Logger
}

// New returns a Stack using the given runner.
func New(runner run.Runner, logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Stack{runner: runner, logger: logger}
}

// Status describes the current branch relative to its upstream.
type Status struct {
	Branch   string
	Upstream string
	Ahead    int
}

// statusHeader matches the first line of `git status -sb` for a branch that
// is ahead of its upstream, e.g. "## mybranch...origin/master [ahead 3]".
var statusHeader = regexp.MustCompile(`^## (\S+?)\.\.\.(\S+) \[ahead (\d+)\]\s*$`)

// Status parses the `git status -sb` header. A branch that is not ahead of
// its upstream has no stack to operate on, which is reported as an error.
func (s *Stack) Status(ctx context.Context) (Status, error) {
	lines, err := s.runner.Lines(ctx, "git", "status", "-sb")
	if err != nil {
		return Status{}, err
	}
	if len(lines) == 0 {
		return Status{}, fmt.Errorf("empty output from git status -sb")
	}
	m := statusHeader.FindStringSubmatch(lines[0])
	if m == nil {
		return Status{}, fmt.Errorf("branch is not ahead of its upstream (git status -sb: %q)", lines[0])
	}
	ahead, _ := strconv.Atoi(m[3])
	return Status{Branch: m[1], Upstream: m[2], Ahead: ahead}, nil
}

// Commit is one entry of the branch stack.
type Commit struct {
	Hash    string
	Subject string
}

var onelineEntry = regexp.MustCompile(`^(\S+) (\S.*)$`)

// Commits returns the newest n commits, ordered oldest first (the order the
// stack was built in).
func (s *Stack) Commits(ctx context.Context, n int) ([]Commit, error) {
	lines, err := s.runner.Lines(ctx, "git", "log", "--oneline", fmt.Sprintf("-%d", n))
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty output from git log --oneline")
	}
	commits := make([]Commit, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		m := onelineEntry.FindStringSubmatch(lines[i])
		if m == nil {
			return nil, fmt.Errorf("unable to parse git log output line %q", lines[i])
		}
		commits = append(commits, Commit{Hash: m[1], Subject: m[2]})
	}
	return commits, nil
}

var branchEntry = regexp.MustCompile(`^[\+\*\s]*(\S+)\s*$`)

// LocalBranches lists local branches, excluding the named base branch.
func (s *Stack) LocalBranches(ctx context.Context, base string) ([]string, error) {
	lines, err := s.runner.Lines(ctx, "git", "branch")
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("not currently in a git workspace")
	}
	var branches []string
	for _, line := range lines {
		m := branchEntry.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("unable to parse git branch output line %q", line)
		}
		if m[1] == base {
			continue
		}
		branches = append(branches, m[1])
	}
	return branches, nil
}
