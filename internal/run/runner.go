// Package run wraps external command execution for the devkit tools.
//
// Every devkit command is a thin layer over existing CLI tools (git, adb,
// gtags, and friends), so nearly all of the suite's real work funnels through
// this package. The Exec runner supports the echo and dry-run modes shared by
// all subcommands: echo prints each command line to stderr before running it,
// and dry-run prints without executing. Dry-run gates only the mutating
// entry points (Run, Quiet, ToFile, CombinedToFile); Output and Lines are
// read-only queries and still execute, so commands can parse state and report
// what they would have done.
package run

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Runner executes external commands. Commands accept a Runner so tests can
// substitute scripted output for real tool invocations.
type Runner interface {
	// Run executes a command with stdout/stderr inherited from the process.
	Run(ctx context.Context, name string, args ...string) error

	// Quiet executes a command capturing all output; the output is surfaced
	// only when the command fails.
	Quiet(ctx context.Context, name string, args ...string) error

	// Lines executes a command and returns its stdout as trimmed lines.
	Lines(ctx context.Context, name string, args ...string) ([]string, error)

	// Output executes a command and returns its raw stdout bytes.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// ToFile executes a command with stdout redirected to path.
	ToFile(ctx context.Context, path, name string, args ...string) error

	// CombinedToFile executes a command with stdout and stderr redirected to
	// path. The file is written even when the command fails, so callers can
	// preserve the output of failing test runs.
	CombinedToFile(ctx context.Context, path, name string, args ...string) error
}

// Exec is the production Runner backed by os/exec.
type Exec struct {
	// Echo prints each command to stderr before executing it.
	Echo bool

	// DryRun prints mutating commands without executing them. Implies Echo.
	// Read-only queries (Output, Lines) still execute.
	DryRun bool

	Logger *slog.Logger

	// Stdout and Stderr are used by Run. They default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns an Exec runner writing to the process stdout/stderr.
func NewExec(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exec{Logger: logger, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *Exec) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func (e *Exec) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

// announce implements the echo/dry-run protocol. It reports whether the
// command should actually execute.
func (e *Exec) announce(name string, args []string, redirect string) bool {
	if e.Echo || e.DryRun {
		line := "executing: " + name
		if len(args) > 0 {
			line += " " + strings.Join(args, " ")
		}
		line += redirect
		fmt.Fprintln(e.stderr(), line)
	}
	return !e.DryRun
}

func (e *Exec) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	e.Logger.Debug("exec", "cmd", name, "args", args)
	return exec.CommandContext(ctx, name, args...)
}

// Run executes name with args, inheriting the runner's output streams.
func (e *Exec) Run(ctx context.Context, name string, args ...string) error {
	if !e.announce(name, args, "") {
		return nil
	}
	cmd := e.command(ctx, name, args...)
	cmd.Stdout = e.stdout()
	cmd.Stderr = e.stderr()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmdString(name, args), err)
	}
	return nil
}

// Quiet executes name with args, discarding output unless the command fails,
// in which case the combined output is included in the returned error.
func (e *Exec) Quiet(ctx context.Context, name string, args ...string) error {
	if !e.announce(name, args, "") {
		return nil
	}
	cmd := e.command(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w\n%s", cmdString(name, args), err, msg)
		}
		return fmt.Errorf("%s: %w", cmdString(name, args), err)
	}
	return nil
}

// Lines executes name with args and returns stdout split into lines with the
// trailing newline trimmed. Stderr is passed through to the process stderr.
func (e *Exec) Lines(ctx context.Context, name string, args ...string) ([]string, error) {
	out, err := e.Output(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return SplitLines(out), nil
}

// Output executes name with args and returns the raw stdout bytes. It runs
// even under DryRun: queries carry no side effects, and the parse-dependent
// commands need their output to decide what they would do.
func (e *Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	e.announce(name, args, "")
	cmd := e.command(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			fmt.Fprintln(e.stderr(), msg)
		}
		return nil, fmt.Errorf("%s: %w", cmdString(name, args), err)
	}
	return out, nil
}

// ToFile executes name with args, writing stdout to path. The command's
// stderr goes to the process stderr.
func (e *Exec) ToFile(ctx context.Context, path, name string, args ...string) error {
	if !e.announce(name, args, " > "+path) {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to open %s for writing: %w", path, err)
	}
	defer f.Close()
	cmd := e.command(ctx, name, args...)
	cmd.Stdout = f
	cmd.Stderr = e.stderr()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmdString(name, args), err)
	}
	return nil
}

// CombinedToFile executes name with args, writing both stdout and stderr to
// path. Unlike ToFile the output file survives a failing command; the error
// reports the exit status.
func (e *Exec) CombinedToFile(ctx context.Context, path, name string, args ...string) error {
	if !e.announce(name, args, " > "+path+" 2>&1") {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to open %s for writing: %w", path, err)
	}
	defer f.Close()
	cmd := e.command(ctx, name, args...)
	cmd.Stdout = f
	cmd.Stderr = f
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmdString(name, args), err)
	}
	return nil
}

// Require verifies that each named tool can be found on PATH.
func Require(tools ...string) error {
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("required tool %q not found on PATH", tool)
		}
	}
	return nil
}

// SplitLines splits command output into lines, dropping the trailing empty
// line produced by a final newline. Empty output yields no lines.
func SplitLines(out []byte) []string {
	s := strings.TrimRight(string(out), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func cmdString(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
