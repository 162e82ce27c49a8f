// Package index builds source file lists and feeds them to the gtags and
// mkid indexers. The tools themselves are external; this package only decides
// which files they should see.
package index

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/devkit-labs/devkit/internal/run"
)

// DefaultSuffixes covers the languages the indexers are typically pointed at.
var DefaultSuffixes = []string{
	".c", ".h", ".cc", ".cpp", ".cxx", ".hpp", ".java", ".go", ".py", ".s", ".S",
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":  true,
	".repo": true,
	"out":   true,
}

// Options controls Build.
type Options struct {
	// Roots are the directories to walk. At least one is required; walking
	// an implicit default like the current directory risks indexing a huge
	// tree by accident.
	Roots []string

	// Suffixes filters files by extension. Empty means DefaultSuffixes.
	Suffixes []string

	// ListFile receives the newline-separated file list.
	ListFile string

	// Gtags and Mkid select which indexers to run over the list.
	Gtags bool
	Mkid  bool

	// KeepList leaves the list file behind after a successful run.
	KeepList bool
}

// Indexer walks source trees and drives the external index tools.
type Indexer struct {
	runner run.Runner
	logger *slog.Logger
}

// New returns an Indexer using the given runner.
func New(runner run.Runner, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Indexer{runner: runner, logger: logger}
}

// Collect walks the roots and returns the matching files, sorted within each
// root. Roots are walked concurrently since large Android trees dominate the
// runtime here.
func (ix *Indexer) Collect(ctx context.Context, opts Options) ([]string, error) {
	roots := opts.Roots
	if len(roots) == 0 {
		return nil, fmt.Errorf("no source roots given")
	}
	suffixes := opts.Suffixes
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}

	perRoot := make([][]string, len(roots))
	g, _ := errgroup.WithContext(ctx)
	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			files, err := collectRoot(root, suffixes)
			if err != nil {
				return err
			}
			perRoot[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []string
	for _, files := range perRoot {
		all = append(all, files...)
	}
	ix.logger.Debug("collected source files", "roots", len(roots), "files", len(all))
	return all, nil
}

func collectRoot(root string, suffixes []string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("source root %s: %w", root, err)
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		for _, suf := range suffixes {
			if strings.HasSuffix(d.Name(), suf) {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Tools returns the external tools a Build with these options will invoke.
func (opts Options) Tools() []string {
	var tools []string
	if opts.Gtags {
		tools = append(tools, "gtags")
	}
	if opts.Mkid {
		tools = append(tools, "mkid")
	}
	return tools
}

// Build collects the file list, writes it to opts.ListFile, and runs the
// selected indexers over it. The list file is removed afterwards unless
// KeepList is set or a tool failed (the list helps diagnose tool failures).
// Callers should run.Require the option's Tools first.
func (ix *Indexer) Build(ctx context.Context, opts Options) (int, error) {
	files, err := ix.Collect(ctx, opts)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no source files found under %s", strings.Join(opts.Roots, " "))
	}

	if err := os.WriteFile(opts.ListFile, []byte(strings.Join(files, "\n")+"\n"), 0o644); err != nil {
		return 0, fmt.Errorf("unable to write %s: %w", opts.ListFile, err)
	}

	if opts.Gtags {
		if err := ix.runner.Run(ctx, "gtags", "-f", opts.ListFile); err != nil {
			return len(files), fmt.Errorf("gtags failed: %w", err)
		}
	}
	if opts.Mkid {
		// mkid wants NUL-terminated names.
		nulList := opts.ListFile + ".0"
		if err := os.WriteFile(nulList, []byte(strings.Join(files, "\x00")+"\x00"), 0o644); err != nil {
			return len(files), fmt.Errorf("unable to write %s: %w", nulList, err)
		}
		if err := ix.runner.Run(ctx, "mkid", "--files0-from="+nulList); err != nil {
			return len(files), fmt.Errorf("mkid failed: %w", err)
		}
		if !opts.KeepList {
			os.Remove(nulList)
		}
	}
	if !opts.KeepList {
		os.Remove(opts.ListFile)
	}
	ix.logger.Info("index built", "files", len(files), "tools", strings.Join(opts.Tools(), ","))
	return len(files), nil
}
