package gitstack

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TestOptions controls TestStack.
type TestOptions struct {
	// OutDir receives the per-commit result files and the summary index.
	OutDir string

	// Tag, when set, is folded into the emitted file names.
	Tag string

	// Script is the test script run at each commit ("all.bash",
	// "make.bash", ...). Empty skips the script run.
	Script string

	// Packages lists Go packages to `go test` at each commit.
	Packages []string
}

// TestResult summarizes a stack test run.
type TestResult struct {
	Files     []string
	IndexFile string
	Failures  []string
}

// TestStack checks out each commit on the current branch stack oldest-first,
// runs the configured test actions at each, and captures the output next to
// the commit's diff. The original branch is restored afterwards.
func (s *Stack) TestStack(ctx context.Context, opts TestOptions) (res TestResult, err error) {
	if opts.Script != "" {
		if _, serr := os.Stat(opts.Script); serr != nil {
			return res, fmt.Errorf("no %s here, can't proceed", opts.Script)
		}
	}
	st, err := s.Status(ctx)
	if err != nil {
		return res, err
	}
	commits, err := s.Commits(ctx, st.Ahead)
	if err != nil {
		return res, err
	}

	// Whatever happens mid-stack, put the user back on their branch.
	defer func() {
		if cerr := s.runner.Quiet(ctx, "git", "checkout", st.Branch); cerr != nil && err == nil {
			err = cerr
		}
	}()

	indexPath := filepath.Join(opts.OutDir, fmt.Sprintf("branch=%s.index.txt", st.Branch))
	index, err := os.Create(indexPath)
	if err != nil {
		return res, fmt.Errorf("unable to open %s: %w", indexPath, err)
	}
	defer index.Close()

	for i, c := range commits {
		s.logger.Info("testing commit", "index", i+1, "hash", c.Hash, "subject", c.Subject)
		fn := s.dumpName(ExplodeOptions{OutDir: opts.OutDir, Tag: opts.Tag}, i+1, "branch="+st.Branch, c.Hash)
		if err := s.runner.Quiet(ctx, "git", "checkout", c.Hash); err != nil {
			return res, err
		}
		if err := s.dumpCommit(ctx, fn, c, false); err != nil {
			return res, err
		}
		res.Files = append(res.Files, fn)

		var actions [][]string
		if opts.Script != "" {
			actions = append(actions, []string{"bash", opts.Script})
		}
		for _, pkg := range opts.Packages {
			actions = append(actions, []string{"go", "test", pkg})
		}
		for _, action := range actions {
			failure, aerr := s.runTestAction(ctx, fn, action)
			if aerr != nil {
				return res, aerr
			}
			if failure != "" {
				line := fmt.Sprintf("%d: hash %s failed action: %s", i+1, c.Hash, failure)
				fmt.Fprintln(index, line)
				res.Failures = append(res.Failures, line)
			}
		}
	}

	fmt.Fprintf(index, "\nFiles emitted:\n\n")
	for _, fn := range res.Files {
		fmt.Fprintln(index, fn)
	}
	res.IndexFile = indexPath
	s.logger.Info("stack test complete", "commits", len(commits), "failures", len(res.Failures))
	return res, nil
}

// runTestAction runs one test action, appending its output to the commit's
// dump file. Returns the action string when the action failed.
func (s *Stack) runTestAction(ctx context.Context, dumpPath string, action []string) (string, error) {
	actionStr := action[0]
	for _, a := range action[1:] {
		actionStr += " " + a
	}
	s.logger.Info("starting test action", "action", actionStr)

	tmp, err := os.CreateTemp("", "devkit-stacktest-*.txt")
	if err != nil {
		return "", fmt.Errorf("unable to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	failed := ""
	if rerr := s.runner.CombinedToFile(ctx, tmpPath, action[0], action[1:]...); rerr != nil {
		s.logger.Warn("test action failed", "action", actionStr, "err", rerr)
		failed = actionStr
	}

	out, err := os.OpenFile(dumpPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("unable to reopen %s: %w", dumpPath, err)
	}
	defer out.Close()
	fmt.Fprintf(out, "// --------------- test %s\n", actionStr)
	captured, err := os.Open(tmpPath)
	if err != nil {
		return "", fmt.Errorf("unable to read test output %s: %w", tmpPath, err)
	}
	defer captured.Close()
	if _, err := io.Copy(out, captured); err != nil {
		return "", fmt.Errorf("unable to append test output: %w", err)
	}
	return failed, nil
}
