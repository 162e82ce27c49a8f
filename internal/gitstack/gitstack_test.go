package gitstack

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/devkit-labs/devkit/internal/run"
	"github.com/devkit-labs/devkit/internal/run/runtest"
	"github.com/devkit-labs/devkit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	t.Run("ahead", func(t *testing.T) {
		fake := runtest.NewFake().Stub("git status -sb",
			"## mybranch...origin/master [ahead 3]\n M internal/foo/foo.go\n")
		st, err := New(fake, nil).Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Status{Branch: "mybranch", Upstream: "origin/master", Ahead: 3}, st)
	})

	t.Run("not ahead", func(t *testing.T) {
		fake := runtest.NewFake().Stub("git status -sb", "## master...origin/master\n")
		_, err := New(fake, nil).Status(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not ahead")
	})

	t.Run("empty", func(t *testing.T) {
		fake := runtest.NewFake().Stub("git status -sb", "")
		_, err := New(fake, nil).Status(context.Background())
		require.Error(t, err)
	})
}

func TestCommitsOldestFirst(t *testing.T) {
	fake := runtest.NewFake().Stub("git log --oneline -3",
		"ca3b66ca8d finalthing\n51df6b49da anotherthing\n2b3ddf5180 firstthing\n")
	commits, err := New(fake, nil).Commits(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, commits, 3)
	assert.Equal(t, Commit{Hash: "2b3ddf5180", Subject: "firstthing"}, commits[0])
	assert.Equal(t, Commit{Hash: "ca3b66ca8d", Subject: "finalthing"}, commits[2])
}

func TestLocalBranches(t *testing.T) {
	fake := runtest.NewFake().Stub("git branch",
		"* master\n  feature-x\n+ feature-y\n")
	branches, err := New(fake, nil).LocalBranches(context.Background(), "master")
	require.NoError(t, err)
	assert.Equal(t, []string{"feature-x", "feature-y"}, branches)
}

func TestExplode(t *testing.T) {
	out := t.TempDir()
	fake := runtest.NewFake().
		Stub("git status -sb", "## mybranch...origin/master [ahead 2]\n").
		Stub("git log --oneline -2", "bbbb second\naaaa first\n").
		Stub("git log --name-only -1 aaaa", "commit aaaa\n\n    first\n\nfile1.go\n").
		Stub("git log --name-only -1 bbbb", "commit bbbb\n\n    second\n\nfile2.go\n").
		Stub("git diff aaaa^ aaaa", "diff --git a/file1.go b/file1.go\n+one\n").
		Stub("git diff bbbb^ bbbb", "diff --git a/file2.go b/file2.go\n+two\n").
		Stub("git log --name-only -2 HEAD", "commit bbbb\ncommit aaaa\n")

	res, err := New(fake, testutil.NewTestLogger(t)).Explode(context.Background(), ExplodeOptions{OutDir: out})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join(out, "item=1.branch=mybranch.commit=aaaa.txt"), res.Files[0])
	assert.Equal(t, filepath.Join(out, "item=2.branch=mybranch.commit=bbbb.txt"), res.Files[1])

	data, err := os.ReadFile(res.Files[0])
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "// comment: first")
	assert.Contains(t, content, "file1.go")
	assert.Contains(t, content, diffSeparator)
	assert.Contains(t, content, "+one")

	idx, err := os.ReadFile(res.IndexFile)
	require.NoError(t, err)
	assert.Contains(t, string(idx), "Files emitted:")
	assert.Contains(t, string(idx), "item=1.branch=mybranch.commit=aaaa.txt")
	assert.Equal(t, filepath.Join(out, "item=3.branch=mybranch.index.txt"), res.IndexFile)
}

func TestExplodeTagInFileName(t *testing.T) {
	s := New(runtest.NewFake(), nil)
	fn := s.dumpName(ExplodeOptions{OutDir: "/tmp", Tag: "rc1"}, 2, "branch=b", "abcd")
	assert.Equal(t, "/tmp/item=2.branch=b.tag=rc1.commit=abcd.txt", fn)
}

// TestExplodeDryRun drives Explode through a real Exec runner in dry-run
// mode, with a stub git on PATH. The read-only git queries must still run,
// so the explode proceeds instead of failing on empty status output.
func TestExplodeDryRun(t *testing.T) {
	bin := t.TempDir()
	stub := `#!/bin/sh
case "$*" in
"status -sb") echo "## mybranch...origin/master [ahead 1]" ;;
"log --oneline -1") echo "aaaa first" ;;
"log --name-only -1 aaaa") printf 'commit aaaa\n\n    first\n\nfile1.go\n' ;;
"diff aaaa^ aaaa") printf 'diff --git a/file1.go b/file1.go\n+one\n' ;;
"log --name-only -1 HEAD") echo "commit aaaa" ;;
*) exit 1 ;;
esac
`
	require.NoError(t, os.WriteFile(filepath.Join(bin, "git"), []byte(stub), 0o755))
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	var stderr bytes.Buffer
	e := run.NewExec(testutil.NewTestLogger(t))
	e.DryRun = true
	e.Stderr = &stderr

	out := t.TempDir()
	res, err := New(e, testutil.NewTestLogger(t)).Explode(context.Background(), ExplodeOptions{OutDir: out})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Contains(t, stderr.String(), "executing: git status -sb")
}

func TestExplodeEmptyDiffIsError(t *testing.T) {
	out := t.TempDir()
	fake := runtest.NewFake().
		Stub("git status -sb", "## b...o/m [ahead 1]\n").
		Stub("git log --oneline -1", "aaaa only\n").
		Stub("git log --name-only -1 aaaa", "commit aaaa\n").
		Stub("git diff aaaa^ aaaa", "")
	_, err := New(fake, nil).Explode(context.Background(), ExplodeOptions{OutDir: out})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty output from git diff")
}

func TestExplodeStash(t *testing.T) {
	out := t.TempDir()
	fake := runtest.NewFake().
		Stub("git stash list", "stash@{0}: WIP on master: 1234 work in progress\n").
		Stub("git diff stash@{0}^ stash@{0}", "diff --git a/x b/x\n+x\n")

	res, err := New(fake, nil).Explode(context.Background(), ExplodeOptions{OutDir: out, Stash: true})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, filepath.Join(out, "item=1.stash.commit=stash0.txt"), res.Files[0])

	data, err := os.ReadFile(res.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Stash entry: stash@{0}")
}

func TestExplodeStashEmptyList(t *testing.T) {
	fake := runtest.NewFake().Stub("git stash list", "")
	res, err := New(fake, nil).Explode(context.Background(), ExplodeOptions{OutDir: t.TempDir(), Stash: true})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
}

func TestTestStack(t *testing.T) {
	out := t.TempDir()
	fake := runtest.NewFake().
		Stub("git status -sb", "## mybranch...origin/master [ahead 1]\n").
		Stub("git log --oneline -1", "aaaa first\n").
		Stub("git checkout aaaa", "").
		Stub("git log --name-only -1 aaaa", "commit aaaa\nfile1.go\n").
		Stub("git diff aaaa^ aaaa", "+one\n").
		Stub("go test ./mypkg", "ok  \tmypkg\t0.1s\n").
		Stub("git checkout mybranch", "")

	res, err := New(fake, nil).TestStack(context.Background(), TestOptions{
		OutDir:   out,
		Packages: []string{"./mypkg"},
	})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Empty(t, res.Failures)

	data, err := os.ReadFile(res.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "// --------------- test go test ./mypkg")
	assert.Contains(t, string(data), "ok")

	// The branch is restored at the end.
	calls := fake.Calls()
	assert.Equal(t, "git checkout mybranch", calls[len(calls)-1])
}

func TestTestStackRecordsFailures(t *testing.T) {
	out := t.TempDir()
	fake := runtest.NewFake().
		Stub("git status -sb", "## mybranch...origin/master [ahead 1]\n").
		Stub("git log --oneline -1", "aaaa first\n").
		Stub("git checkout aaaa", "").
		Stub("git log --name-only -1 aaaa", "commit aaaa\n").
		Stub("git diff aaaa^ aaaa", "+one\n").
		StubErr("go test ./bad", assert.AnError).
		Stub("git checkout mybranch", "")

	res, err := New(fake, nil).TestStack(context.Background(), TestOptions{
		OutDir:   out,
		Packages: []string{"./bad"},
	})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "hash aaaa failed action: go test ./bad")

	idx, err := os.ReadFile(res.IndexFile)
	require.NoError(t, err)
	assert.Contains(t, string(idx), "failed action: go test ./bad")
}

func TestTestStackMissingScript(t *testing.T) {
	fake := runtest.NewFake()
	_, err := New(fake, nil).TestStack(context.Background(), TestOptions{
		OutDir: t.TempDir(),
		Script: "definitely-missing.bash",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't proceed")
}

func TestCleanup(t *testing.T) {
	fake := runtest.NewFake().
		Stub("git branch", "* master\n  done-branch\n").
		Stub("git checkout master", "").
		Stub("git pull", "").
		Stub("git checkout done-branch", "").
		Stub("git rev-parse --symbolic-full-name --abbrev-ref @{u}", "origin/master\n").
		Stub("git rebase", "").
		Stub("git branch -d done-branch", "")

	err := New(fake, nil).Cleanup(context.Background(), CleanupOptions{
		Branches: []string{"done-branch"},
		Base:     "master",
	})
	require.NoError(t, err)
	assert.Contains(t, fake.Calls(), "git branch -d done-branch")
}

func TestCleanupSkipsBranchWithoutUpstream(t *testing.T) {
	fake := runtest.NewFake().
		Stub("git branch", "* master\n  local-only\n").
		Stub("git checkout master", "").
		Stub("git pull", "").
		Stub("git checkout local-only", "").
		StubErr("git rev-parse --symbolic-full-name --abbrev-ref @{u}", assert.AnError)

	err := New(fake, nil).Cleanup(context.Background(), CleanupOptions{
		All:  true,
		Base: "master",
	})
	require.NoError(t, err)
	assert.NotContains(t, fake.Calls(), "git branch -d local-only")
}

func TestCleanupUnknownBranch(t *testing.T) {
	fake := runtest.NewFake().Stub("git branch", "* master\n")
	err := New(fake, nil).Cleanup(context.Background(), CleanupOptions{
		Branches: []string{"nope"},
		Base:     "master",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "branch nope not present")
}
