// Package snapshot archives the modified state of a git working copy:
// copies of changed files, their HEAD predecessors, the diff, and records of
// deletions and renames. Archives are typically taken before a rebase or
// other history surgery.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/devkit-labs/devkit/internal/run"
)

// Op classifies one changed file.
type Op byte

const (
	OpModified Op = 'M'
	OpAdded    Op = 'A'
	OpDeleted  Op = 'D'
)

// Changes is the parsed change set of the working copy.
type Changes struct {
	// Mods maps file path to operation.
	Mods map[string]Op

	// Renames maps old path to new path; RevRenames is the inverse.
	Renames    map[string]string
	RevRenames map[string]string
}

// Options selects which change set to archive.
type Options struct {
	// OldSHA/NewSHA archive the changes between two commits.
	OldSHA string
	NewSHA string

	// Branch archives the changes between Branch and Base.
	Branch string
	Base   string

	// DestDir receives the archive.
	DestDir string
}

// Snapshotter collects and archives working-copy changes.
type Snapshotter struct {
	runner run.Runner
	logger *slog.Logger
}

// New returns a Snapshotter using the given runner.
func New(runner run.Runner, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Snapshotter{runner: runner, logger: logger}
}

var (
	blankLine  = regexp.MustCompile(`^\s*$`)
	backupFile = regexp.MustCompile(`^\S+\.~\d+~$`)
	statusPair = regexp.MustCompile(`^(\S+)\s+(\S+)$`)
	statusRen  = regexp.MustCompile(`^(\S+)\s+(\S+) \-\> (\S+)$`)
)

// Collect parses the change set selected by opts. Unstaged or untracked
// changes abort with a request to run `git add`, since the archive relies on
// the index matching the working tree.
func (s *Snapshotter) Collect(ctx context.Context, opts Options) (*Changes, error) {
	var args []string
	switch {
	case opts.OldSHA != "":
		args = []string{"diff", "--name-status", opts.OldSHA + ".." + opts.NewSHA}
	case opts.Branch != "":
		if err := s.runner.Quiet(ctx, "git", "diff", "--quiet", opts.Base, opts.Branch); err == nil {
			return nil, fmt.Errorf("no diffs between branches %s %s", opts.Base, opts.Branch)
		}
		args = []string{"diff", "--name-status", opts.Base, opts.Branch}
	default:
		args = []string{"status", "-s"}
	}
	s.logger.Debug("collecting changes", "cmd", "git "+strings.Join(args, " "))

	lines, err := s.runner.Lines(ctx, "git", args...)
	if err != nil {
		return nil, err
	}
	ch := &Changes{
		Mods:       make(map[string]Op),
		Renames:    make(map[string]string),
		RevRenames: make(map[string]string),
	}
	for _, line := range lines {
		if blankLine.MatchString(line) {
			continue
		}
		if m := statusRen.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			op, oldFile, newFile := m[1], m[2], m[3]
			if op == "RM" {
				return nil, fmt.Errorf("found modified file %s -- please run git add", newFile)
			}
			if op != "R" && !strings.HasPrefix(op, "R") {
				return nil, fmt.Errorf("unknown op %s in git status line %q", op, line)
			}
			if _, ok := ch.Mods[oldFile]; ok {
				return nil, fmt.Errorf("rename source %s already recorded", oldFile)
			}
			if _, ok := ch.Mods[newFile]; ok {
				return nil, fmt.Errorf("rename dest %s already recorded", newFile)
			}
			ch.Renames[oldFile] = newFile
			ch.RevRenames[newFile] = oldFile
			ch.Mods[newFile] = OpModified
			continue
		}
		if m := statusPair.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			op, file := m[1], m[2]
			switch op {
			case "AM", "MM", "??":
				if backupFile.MatchString(file) {
					continue
				}
				return nil, fmt.Errorf("found modified or untracked file %s -- please run git add", file)
			case "A", "M", "D":
			default:
				return nil, fmt.Errorf("unknown op %s in git status line %q", op, line)
			}
			if _, ok := ch.Mods[file]; ok {
				return nil, fmt.Errorf("file %s already recorded", file)
			}
			ch.Mods[file] = Op(op[0])
			continue
		}
		return nil, fmt.Errorf("unable to parse git status line %q", line)
	}
	return ch, nil
}

// Archive writes the snapshot into opts.DestDir: the full diff, recent log,
// per-file copies with HEAD predecessors, and deletion/rename records.
// Returns the number of files copied.
func (s *Snapshotter) Archive(ctx context.Context, opts Options, ch *Changes) (int, error) {
	if err := os.MkdirAll(opts.DestDir, 0o755); err != nil {
		return 0, fmt.Errorf("unable to create %s: %w", opts.DestDir, err)
	}

	var diffArgs []string
	switch {
	case opts.OldSHA != "":
		diffArgs = []string{"diff", opts.OldSHA + ".." + opts.NewSHA}
	case opts.Branch != "":
		diffArgs = []string{"diff", opts.Base, opts.Branch}
	default:
		diffArgs = []string{"diff", "--cached"}
	}
	if err := s.runner.ToFile(ctx, filepath.Join(opts.DestDir, "git.diff.txt"), "git", diffArgs...); err != nil {
		return 0, err
	}
	if err := s.runner.ToFile(ctx, filepath.Join(opts.DestDir, "git.log10.txt"), "git", "log", "-10"); err != nil {
		return 0, err
	}

	showSHA := opts.OldSHA
	if showSHA == "" {
		sha, err := s.currentSHA(ctx)
		if err != nil {
			return 0, err
		}
		showSHA = sha
	}

	if err := s.emitDeletionsAndRenames(opts.DestDir, ch); err != nil {
		return 0, err
	}
	if err := s.emitManifest(opts.DestDir, ch); err != nil {
		return 0, err
	}

	copied := 0
	for file, op := range ch.Mods {
		if op != OpAdded && op != OpModified {
			continue
		}
		dest := filepath.Join(opts.DestDir, file)
		if err := copyFile(file, dest); err != nil {
			return copied, err
		}
		copied++
		if op == OpModified {
			toShow := file
			if orig, ok := ch.RevRenames[file]; ok {
				toShow = orig
			}
			base := dest + ".BASE"
			if err := s.runner.ToFile(ctx, base, "git", "show", "-M", showSHA+":"+toShow); err != nil {
				return copied, err
			}
		}
	}
	s.logger.Info("snapshot archived", "dest", opts.DestDir, "files", copied)
	return copied, nil
}

func (s *Snapshotter) currentSHA(ctx context.Context) (string, error) {
	lines, err := s.runner.Lines(ctx, "git", "log", "--no-abbrev-commit", "--pretty=oneline", "-1")
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("empty output from git log")
	}
	fields := strings.Fields(lines[0])
	if len(fields) == 0 {
		return "", fmt.Errorf("unable to parse git log output %q", lines[0])
	}
	return fields[0], nil
}

func (s *Snapshotter) emitDeletionsAndRenames(destDir string, ch *Changes) error {
	var deletions []string
	for file, op := range ch.Mods {
		if op == OpDeleted {
			deletions = append(deletions, file)
		}
	}
	if len(deletions) > 0 {
		f, err := os.Create(filepath.Join(destDir, "DELETIONS"))
		if err != nil {
			return fmt.Errorf("unable to record deletions: %w", err)
		}
		for _, d := range deletions {
			fmt.Fprintln(f, d)
		}
		f.Close()
	}
	if len(ch.Renames) > 0 {
		f, err := os.Create(filepath.Join(destDir, "RENAMES"))
		if err != nil {
			return fmt.Errorf("unable to record renames: %w", err)
		}
		for oldFile, newFile := range ch.Renames {
			fmt.Fprintf(f, "%s -> %s\n", oldFile, newFile)
		}
		f.Close()
	}
	return nil
}

// emitManifest writes a one-line-per-file summary of the archived change
// set, sorted by path.
func (s *Snapshotter) emitManifest(destDir string, ch *Changes) error {
	files := make([]string, 0, len(ch.Mods))
	for file := range ch.Mods {
		files = append(files, file)
	}
	sort.Strings(files)

	f, err := os.Create(filepath.Join(destDir, "MANIFEST"))
	if err != nil {
		return fmt.Errorf("unable to record manifest: %w", err)
	}
	defer f.Close()
	for _, file := range files {
		note := ""
		if orig, ok := ch.RevRenames[file]; ok {
			note = "  (was " + orig + ")"
		}
		fmt.Fprintf(f, "%c %s%s\n", ch.Mods[file], file, note)
	}
	return nil
}

// copyFile copies src into the archive and write-protects the copy.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to copy src file %s: %w", src, err)
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("unable to create %s: %w", filepath.Dir(dest), err)
	}
	// A previous snapshot copy is read-only; unprotect before overwriting.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Chmod(dest, 0o744); err != nil {
			return fmt.Errorf("unable to unprotect %s: %w", dest, err)
		}
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s failed: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close of %s failed: %w", dest, err)
	}
	return os.Chmod(dest, 0o444)
}
