// Package runtest provides a scripted run.Runner for tests.
package runtest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Result is the canned outcome for one command invocation.
type Result struct {
	Stdout string
	Err    error

	// Effect runs when the command executes, for stubs that must touch the
	// filesystem the way the real tool would (adb pull, git checkout).
	Effect func() error
}

// Fake is a run.Runner that replays canned results keyed by the full command
// line ("git status -sb"). Unscripted commands fail the calling code with a
// descriptive error rather than silently succeeding.
type Fake struct {
	mu      sync.Mutex
	results map[string][]Result
	calls   []string
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{results: make(map[string][]Result)}
}

// Stub registers output for a command line. Repeated stubs for the same
// command line are consumed in order, with the last one sticky.
func (f *Fake) Stub(cmdline, stdout string) *Fake {
	return f.StubResult(cmdline, Result{Stdout: stdout})
}

// StubErr registers a failing command line.
func (f *Fake) StubErr(cmdline string, err error) *Fake {
	return f.StubResult(cmdline, Result{Err: err})
}

// StubResult registers an explicit Result for a command line.
func (f *Fake) StubResult(cmdline string, res Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[cmdline] = append(f.results[cmdline], res)
	return f
}

// Calls returns the command lines executed so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) next(name string, args []string) (Result, error) {
	cmdline := name
	if len(args) > 0 {
		cmdline += " " + strings.Join(args, " ")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmdline)
	queue, ok := f.results[cmdline]
	if !ok {
		return Result{}, fmt.Errorf("runtest: no stub for command %q", cmdline)
	}
	res := queue[0]
	if len(queue) > 1 {
		f.results[cmdline] = queue[1:]
	}
	if res.Effect != nil {
		if err := res.Effect(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (f *Fake) Run(_ context.Context, name string, args ...string) error {
	res, err := f.next(name, args)
	if err != nil {
		return err
	}
	return res.Err
}

func (f *Fake) Quiet(ctx context.Context, name string, args ...string) error {
	return f.Run(ctx, name, args...)
}

func (f *Fake) Lines(_ context.Context, name string, args ...string) ([]string, error) {
	res, err := f.next(name, args)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	s := strings.TrimRight(res.Stdout, "\n")
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, "\n"), nil
}

func (f *Fake) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	res, err := f.next(name, args)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return []byte(res.Stdout), nil
}

func (f *Fake) ToFile(_ context.Context, path, name string, args ...string) error {
	res, err := f.next(name, args)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return res.Err
	}
	return os.WriteFile(path, []byte(res.Stdout), 0o644)
}

func (f *Fake) CombinedToFile(ctx context.Context, path, name string, args ...string) error {
	return f.ToFile(ctx, path, name, args...)
}
