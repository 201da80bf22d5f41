package cli

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKramScript writes a shell stand-in for kram that creates the file
// named by -o and exits with code.
func fakeKramScript(t *testing.T, code int) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	body := "#!/bin/sh\n" +
		"out=\"\"\n" +
		"while [ $# -gt 0 ]; do\n" +
		"  if [ \"$1\" = \"-o\" ]; then out=\"$2\"; fi\n" +
		"  shift\n" +
		"done\n"
	if code == 0 {
		body += "[ -n \"$out\" ] && : > \"$out\"\n"
	}
	body += "exit " + strconv.Itoa(code) + "\n"

	path := filepath.Join(t.TempDir(), "kram")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

// sourceTree creates a source directory holding the named files, each an
// hour old, and returns it with a sibling destination path.
func sourceTree(t *testing.T, names ...string) (src, dst string) {
	t.Helper()
	root := t.TempDir()
	src = filepath.Join(root, "src")
	dst = filepath.Join(root, "out")
	old := time.Now().Add(-time.Hour)
	for _, n := range names {
		path := filepath.Join(src, filepath.FromSlash(n))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("PNG"), 0o644))
		require.NoError(t, os.Chtimes(path, old, old))
	}
	require.NoError(t, os.MkdirAll(src, 0o755))
	return src, dst
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()
	fs := cmd.Flags()

	for _, name := range []string{
		"platform", "container", "quality", "mipmax", "jobs", "force",
		"script", "script-file", "kram", "validator", "validate", "presets",
		"journal", "dry-run", "analyze", "check", "verbose", "color", "no-color", "log",
	} {
		assert.NotNil(t, fs.Lookup(name), "flag --%s", name)
	}

	assert.Equal(t, "ktx", fs.Lookup("container").DefValue)
	assert.Equal(t, "49", fs.Lookup("quality").DefValue)
	assert.Equal(t, "1024", fs.Lookup("mipmax").DefValue)
	assert.Equal(t, "64", fs.Lookup("jobs").DefValue)
	assert.Equal(t, "kram", fs.Lookup("kram").DefValue)
	assert.Equal(t, "ktx2check", fs.Lookup("validator").DefValue)
	assert.Equal(t, "auto", fs.Lookup("color").DefValue)
	assert.Equal(t, "p", fs.Lookup("platform").Shorthand)
	assert.Equal(t, "j", fs.Lookup("jobs").Shorthand)
}

func TestRootCommand_HasHistory(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)
	assert.Equal(t, "history", sub.Name())
}

func TestRootCommand_RejectsBadEnums(t *testing.T) {
	src, dst := sourceTree(t)
	for _, args := range [][]string{
		{"-p", "xbox", src, dst},
		{"-p", "mac", "-c", "dds", src, dst},
		{"-p", "mac", "--color", "sometimes", src, dst},
	} {
		_, err := runCLI(t, args...)
		require.Error(t, err, "%v", args)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	}
}

func TestRootCommand_EnumCaseInsensitive(t *testing.T) {
	src, dst := sourceTree(t, "brick-a.png")
	_, err := runCLI(t, "-p", "MAC", "-c", "KTX2", "--dry-run", src, dst)
	assert.NoError(t, err)
}

func TestRootCommand_ArgCount(t *testing.T) {
	src, _ := sourceTree(t)
	_, err := runCLI(t, "-p", "mac", src)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommand_InvalidSettings(t *testing.T) {
	src, dst := sourceTree(t)
	for _, args := range [][]string{
		{src, dst},
		{"-p", "mac", "-q", "101", src, dst},
		{"-p", "mac", "-j", "0", src, dst},
		{"-p", "mac", "--script", "--dry-run", src, dst},
	} {
		_, err := runCLI(t, args...)
		require.Error(t, err, "%v", args)
		assert.Equal(t, ExitCommandError, GetExitCode(err), "%v", args)
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "x")))
	assert.Equal(t, ExitCommandError, GetExitCode(assert.AnError))

	wrapped := WrapExitError(ExitFailure, "build", assert.AnError)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Equal(t, "build: "+assert.AnError.Error(), wrapped.Error())
}

func TestBuild_SourceMissing(t *testing.T) {
	root := t.TempDir()
	_, err := runCLI(t, "-p", "mac", "--dry-run", filepath.Join(root, "nope"), filepath.Join(root, "out"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBuild_DestinationInsideSource(t *testing.T) {
	src, _ := sourceTree(t, "brick-a.png")
	_, err := runCLI(t, "-p", "mac", "--kram", fakeKramScript(t, 0), src, filepath.Join(src, "out"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBuild_DryRunWritesNothing(t *testing.T) {
	src, dst := sourceTree(t, "brick-a.png", "rock-n.png")
	logFile := filepath.Join(t.TempDir(), "build.log")

	_, err := runCLI(t, "-p", "mac", "--dry-run", "-l", logFile, src, dst)
	require.NoError(t, err)

	assert.NoDirExists(t, dst)
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DRY] kram encode")
}

func TestBuild_MissingKram(t *testing.T) {
	src, dst := sourceTree(t, "brick-a.png")
	_, err := runCLI(t, "-p", "mac", "--kram", filepath.Join(t.TempDir(), "no-kram"), src, dst)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBuild_EncodesWithKram(t *testing.T) {
	src, dst := sourceTree(t, "brick-a.png", "terrain/rock-h.png", ".DS_Store")
	kram := fakeKramScript(t, 0)

	_, err := runCLI(t, "-p", "mac", "--kram", kram, src, dst)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dst, "brick-a.ktx"))
	assert.FileExists(t, filepath.Join(dst, "terrain", "rock-n.ktx"))

	// Second run finds everything up to date.
	logFile := filepath.Join(t.TempDir(), "second.log")
	_, err = runCLI(t, "-p", "mac", "--kram", kram, "-l", logFile, src, dst)
	require.NoError(t, err)
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Nothing to encode")
}

func TestBuild_FailedJobExitsOne(t *testing.T) {
	src, dst := sourceTree(t, "brick-a.png")
	_, err := runCLI(t, "-p", "mac", "--kram", fakeKramScript(t, 3), src, dst)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.NoFileExists(t, filepath.Join(dst, "brick-a.ktx"))
}

func TestBuild_ScriptMode(t *testing.T) {
	src, dst := sourceTree(t, "brick-a.png")
	_, err := runCLI(t, "-p", "mac", "--script", "--kram", fakeKramScript(t, 0), src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dst, "kramscript.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "encode ")
}

func TestBuild_Analyze(t *testing.T) {
	src, dst := sourceTree(t, "brick-a.png", "sky-cube.png")
	out, err := runCLI(t, "-p", "mac", "--analyze", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "brick-a.png")
	assert.Contains(t, out, "sky-cube.png")
	assert.NoDirExists(t, dst)
}

func TestCheck_NoArgs(t *testing.T) {
	_, err := runCLI(t, "--check", "--kram", fakeKramScript(t, 0))
	assert.NoError(t, err)
}

func TestHistory(t *testing.T) {
	src, dst := sourceTree(t, "brick-a.png")
	db := filepath.Join(t.TempDir(), "journal.db")

	_, err := runCLI(t, "-p", "win", "--journal", db, "--kram", fakeKramScript(t, 0), src, dst)
	require.NoError(t, err)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"history", "--journal", db, "-n", "5"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "PLATFORM")
	assert.Contains(t, out.String(), "win")
	assert.Contains(t, out.String(), "direct")
}

func TestHistory_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"history", "--journal", db})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No runs recorded.")
}

func TestHistory_RequiresJournal(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"history"})
	assert.Error(t, cmd.Execute())
}
