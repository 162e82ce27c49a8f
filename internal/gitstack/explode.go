package gitstack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
)

const diffSeparator = "--------------------------------------------------------------"

// explodeWorkers bounds the parallel per-commit diff collection.
const explodeWorkers = 4

// ExplodeOptions controls Explode.
type ExplodeOptions struct {
	// OutDir receives the per-commit dump files.
	OutDir string

	// Tag, when set, is folded into the emitted file names.
	Tag string

	// Stash explodes the stash list instead of the branch stack.
	Stash bool
}

// ExplodeResult reports what was written.
type ExplodeResult struct {
	Files     []string
	IndexFile string
}

// Explode writes one diff dump per commit on the current branch stack (or
// per stash entry with Stash), plus an index file listing the dumps.
func (s *Stack) Explode(ctx context.Context, opts ExplodeOptions) (ExplodeResult, error) {
	if opts.Stash {
		return s.explodeStash(ctx, opts)
	}

	st, err := s.Status(ctx)
	if err != nil {
		return ExplodeResult{}, err
	}
	commits, err := s.Commits(ctx, st.Ahead)
	if err != nil {
		return ExplodeResult{}, err
	}
	s.logger.Debug("exploding branch", "branch", st.Branch, "commits", len(commits))

	files := make([]string, len(commits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(explodeWorkers)
	for i, c := range commits {
		i, c := i, c
		g.Go(func() error {
			fn := s.dumpName(opts, i+1, "branch="+st.Branch, c.Hash)
			if err := s.dumpCommit(gctx, fn, c, false); err != nil {
				return err
			}
			files[i] = fn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExplodeResult{}, err
	}

	index, err := s.emitIndex(ctx, opts, "branch="+st.Branch, files, true)
	if err != nil {
		return ExplodeResult{}, err
	}
	return ExplodeResult{Files: files, IndexFile: index}, nil
}

var stashEntry = regexp.MustCompile(`^(stash@\{\S+\}):\s.+$`)

func (s *Stack) explodeStash(ctx context.Context, opts ExplodeOptions) (ExplodeResult, error) {
	lines, err := s.runner.Lines(ctx, "git", "stash", "list")
	if err != nil {
		return ExplodeResult{}, err
	}
	if len(lines) == 0 {
		s.logger.Warn("no stash entries found")
		return ExplodeResult{}, nil
	}
	var files []string
	for i, line := range lines {
		m := stashEntry.FindStringSubmatch(line)
		if m == nil {
			return ExplodeResult{}, fmt.Errorf("unable to parse git stash list output %q", line)
		}
		name := m[1]
		fn := s.dumpName(opts, i+1, "stash", name)
		if err := s.dumpCommit(ctx, fn, Commit{Hash: name}, true); err != nil {
			return ExplodeResult{}, err
		}
		files = append(files, fn)
	}
	index, err := s.emitIndex(ctx, opts, "stash", files, false)
	if err != nil {
		return ExplodeResult{}, err
	}
	return ExplodeResult{Files: files, IndexFile: index}, nil
}

// dumpName builds the per-commit file name, e.g.
// item=3.branch=mybranch.tag=rc1.commit=ca3b66ca.txt
func (s *Stack) dumpName(opts ExplodeOptions, idx int, flavor, ref string) string {
	tag := ""
	if opts.Tag != "" {
		tag = ".tag=" + opts.Tag
	}
	base := fmt.Sprintf("item=%d.%s%s.commit=%s.txt", idx, flavor, tag, sanitizeRef(ref))
	return filepath.Join(opts.OutDir, base)
}

// sanitizeRef keeps stash refs ("stash@{0}") filename-safe.
func sanitizeRef(ref string) string {
	r := strings.NewReplacer("@{", "", "}", "", "/", "_")
	return r.Replace(ref)
}

// dumpCommit writes the log summary and diff for one commit or stash entry.
func (s *Stack) dumpCommit(ctx context.Context, path string, c Commit, stash bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", path, err)
	}
	defer f.Close()

	if c.Subject != "" {
		fmt.Fprintf(f, "// comment: %s\n//\n", c.Subject)
	}
	if stash {
		fmt.Fprintf(f, "Stash entry: %s\n", c.Hash)
	} else {
		logLines, err := s.runner.Lines(ctx, "git", "log", "--name-only", "-1", c.Hash)
		if err != nil {
			return err
		}
		if len(logLines) == 0 {
			return fmt.Errorf("empty output from git log --name-only -1 %s", c.Hash)
		}
		for _, line := range logLines {
			fmt.Fprintln(f, line)
		}
		fmt.Fprintln(f, diffSeparator)
	}

	diffLines, err := s.runner.Lines(ctx, "git", "diff", c.Hash+"^", c.Hash)
	if err != nil {
		return err
	}
	if len(diffLines) == 0 {
		return fmt.Errorf("empty output from git diff %s^ %s", c.Hash, c.Hash)
	}
	for _, line := range diffLines {
		fmt.Fprintln(f, line)
	}
	s.logger.Debug("wrote diff dump", "path", path, "lines", len(diffLines))
	return nil
}

// emitIndex writes the trailing index file naming everything emitted.
func (s *Stack) emitIndex(ctx context.Context, opts ExplodeOptions, flavor string, files []string, withLog bool) (string, error) {
	fn := filepath.Join(opts.OutDir, fmt.Sprintf("item=%d.%s.index.txt", len(files)+1, flavor))
	f, err := os.Create(fn)
	if err != nil {
		return "", fmt.Errorf("unable to open %s: %w", fn, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "Files emitted:\n\n%s\n", strings.Join(files, " "))
	if withLog {
		fmt.Fprintf(f, "\n\nLog:\n\n")
		logLines, err := s.runner.Lines(ctx, "git", "log", "--name-only", fmt.Sprintf("-%d", len(files)), "HEAD")
		if err != nil {
			return "", err
		}
		for _, line := range logLines {
			fmt.Fprintln(f, line)
		}
	}
	s.logger.Debug("index file emitted", "path", fn)
	return fn, nil
}
