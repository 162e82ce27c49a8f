package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devkit-labs/devkit/internal/cli/config"
	"github.com/devkit-labs/devkit/internal/cli/output"
	"github.com/devkit-labs/devkit/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestChatFilterCommand(t *testing.T) {
	cmd := NewChatFilterCommand()
	in := strings.NewReader(
		"12:01 <rsc> morning\n" +
			"12:02 -!- gopher [~g@host] has joined #go-nuts\n" +
			"12:03 <iant> hello\n")
	out := new(bytes.Buffer)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "12:01 <rsc> morning\n12:03 <iant> hello\n", out.String())
}

func TestChatFilterCommandFiles(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.txt")
	outPath := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(inPath, []byte("keep me\n"), 0o644))

	cmd := NewChatFilterCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"-i", inPath, "-o", outPath})

	require.NoError(t, cmd.Execute())
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "keep me\n", string(data))
}

func TestFiltPick(t *testing.T) {
	cmd := NewFiltCommand()
	out := new(bytes.Buffer)
	cmd.SetIn(strings.NewReader("one\ntwo\nthree\nfour\n"))
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"pick", "2", "3"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "two\nthree\n", out.String())
}

func TestFiltPickBadArgs(t *testing.T) {
	cmd := NewFiltCommand()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"pick", "x", "3"})

	require.Error(t, cmd.Execute())
}

func TestFiltTrim(t *testing.T) {
	cmd := NewFiltCommand()
	out := new(bytes.Buffer)
	cmd.SetIn(strings.NewReader("  padded  \n"))
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"trim"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "padded\n", out.String())
}

func TestFiltNumber(t *testing.T) {
	cmd := NewFiltCommand()
	out := new(bytes.Buffer)
	cmd.SetIn(strings.NewReader("a\nb\n"))
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"number"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "1: a\n2: b\n", out.String())
}

func TestFiltSortLen(t *testing.T) {
	t.Run("longest first by default", func(t *testing.T) {
		cmd := NewFiltCommand()
		out := new(bytes.Buffer)
		cmd.SetIn(strings.NewReader("longest line\nmid one\nhi\n"))
		cmd.SetOut(out)
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{"sortlen"})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "longest line\nmid one\nhi\n", out.String())
	})

	t.Run("shortest first with -r", func(t *testing.T) {
		cmd := NewFiltCommand()
		out := new(bytes.Buffer)
		cmd.SetIn(strings.NewReader("longest line\nmid one\nhi\n"))
		cmd.SetOut(out)
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{"sortlen", "-r"})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "hi\nmid one\nlongest line\n", out.String())
	})
}

func TestFiltPlain(t *testing.T) {
	cmd := NewFiltCommand()
	out := new(bytes.Buffer)
	cmd.SetIn(strings.NewReader("clean\nhas space inside\n\"quoted\"\n"))
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"plain"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "clean\n", out.String())
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	testutil.Chdir(t, dir)
	t.Setenv("DEVTAGS", "pixel:ABC123")
	t.Setenv("ANDROID_SERIAL", "ABC123")

	cmd := NewInitCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "devkit initialized!")

	data, err := os.ReadFile(filepath.Join(dir, "devkit.yaml"))
	require.NoError(t, err)

	var got starterConfig
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "ABC123", got.AndroidSerial)
	assert.Equal(t, map[string]string{"pixel": "ABC123"}, got.DevTags)
	assert.Equal(t, "master", got.BaseBranch)
}

func TestInitCommandRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	testutil.Chdir(t, dir)
	require.NoError(t, os.WriteFile("devkit.yaml", []byte("output: json\n"), 0o644))

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)
	require.Error(t, cmd.Execute())

	// --force overwrites
	cmd = NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--force"})
	require.NoError(t, cmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("9.9.9")
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "devkit v9.9.9")
}

func TestStackCommandFlags(t *testing.T) {
	stack := NewStackCommand()
	explode, _, err := stack.Find([]string{"explode"})
	require.NoError(t, err)
	assert.NotNil(t, explode.Flags().Lookup("tag"))
	assert.NotNil(t, explode.Flags().Lookup("stash"))

	test, _, err := stack.Find([]string{"test"})
	require.NoError(t, err)
	for _, name := range []string{"tag", "script", "make", "no-script", "package"} {
		assert.NotNil(t, test.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestSnapshotCommandFlags(t *testing.T) {
	snap := NewSnapshotCommand()
	save, _, err := snap.Find([]string{"save"})
	require.NoError(t, err)
	for _, name := range []string{"shas", "branch", "base"} {
		assert.NotNil(t, save.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestCommandContextFromContext(t *testing.T) {
	cfg := &config.Config{OutputDir: "/tmp/elsewhere", OutputFormat: "json"}
	r := output.NewRendererWithTTY(new(bytes.Buffer), new(bytes.Buffer), output.ModeJSON, false)

	ctx := context.WithValue(context.Background(), config.ConfigKey(), cfg)
	ctx = context.WithValue(ctx, output.RendererKey(), r)

	cmd := &cobra.Command{Use: "carrier"}
	cmd.SetContext(ctx)

	cmdCtx := NewCommandContext(cmd)
	assert.Same(t, cfg, cmdCtx.Cfg)
	assert.Same(t, r, cmdCtx.Renderer)
}

func TestCommandContextStandaloneFallback(t *testing.T) {
	cmd := &cobra.Command{Use: "bare"}
	cmd.SetContext(context.Background())

	cmdCtx := NewCommandContext(cmd)
	require.NotNil(t, cmdCtx.Cfg)
	require.NotNil(t, cmdCtx.Renderer)
	assert.Equal(t, config.DefaultBaseBranch, cmdCtx.Cfg.BaseBranch)
}

func TestIndexCommandNoRoots(t *testing.T) {
	cmd := NewIndexCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(nil)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source roots")
}

func TestDevicesCommandFlags(t *testing.T) {
	cmd := NewDevicesCommand()
	assert.NotNil(t, cmd.Flags().Lookup("all"))
}
