package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/backmassage/kramtex/internal/config"
	"github.com/backmassage/kramtex/internal/logging"
	"github.com/backmassage/kramtex/internal/planner"
)

// fakeKram stands in for the kram and ktx2check binaries. Encodes write a
// small file at the -o path; script runs do the same for every line.
type fakeKram struct {
	validatorPath string

	// failSrc maps a source basename to the exit code its encode returns.
	failSrc map[string]int
	// failDst maps a destination basename to the validator's exit code.
	failDst map[string]int

	scriptCode int
	delay      time.Duration
	onEncode   func()

	mu           sync.Mutex
	calls        []fakeCall
	scriptLines  []string
	running      atomic.Int32
	maxRunning   atomic.Int32
	encodeCalls  atomic.Int32
	validateRuns atomic.Int32
}

type fakeCall struct {
	name string
	args []string
}

func newFakeKram() *fakeKram {
	return &fakeKram{
		validatorPath: "ktx2check",
		failSrc:       map[string]int{},
		failDst:       map[string]int{},
	}
}

func (f *fakeKram) Run(_ context.Context, name string, args []string) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{name: name, args: append([]string(nil), args...)})
	f.mu.Unlock()

	if name == f.validatorPath {
		f.validateRuns.Add(1)
		return f.failDst[filepath.Base(args[len(args)-1])], nil
	}
	switch args[0] {
	case "encode":
		return f.encode(args)
	case "script":
		return f.script(args)
	}
	return 2, nil
}

func (f *fakeKram) encode(args []string) (int, error) {
	f.encodeCalls.Add(1)
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		cur := f.maxRunning.Load()
		if n <= cur || f.maxRunning.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.onEncode != nil {
		f.onEncode()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if code := f.failSrc[filepath.Base(argAfter(args, "-i"))]; code != 0 {
		return code, nil
	}
	return 0, os.WriteFile(argAfter(args, "-o"), []byte("KTX"), 0o644)
}

func (f *fakeKram) script(args []string) (int, error) {
	data, err := os.ReadFile(argAfter(args, "-i"))
	if err != nil {
		return -1, err
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	f.mu.Lock()
	f.scriptLines = lines
	f.mu.Unlock()
	for _, line := range lines {
		if dst := argAfter(strings.Fields(line), "-o"); dst != "" {
			if err := os.WriteFile(dst, []byte("KTX"), 0o644); err != nil {
				return -1, err
			}
		}
	}
	return f.scriptCode, nil
}

func (f *fakeKram) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// testTree creates src and out directories under a temp root and returns a
// config pointing at them.
func testTree(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Platform = config.PlatformMac
	cfg.ColorMode = config.ColorNever
	cfg.SourceDir = filepath.Join(root, "src")
	cfg.DestDir = filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(cfg.SourceDir, 0o755))
	return &cfg
}

// addSource writes an empty source file with a modification time an hour in
// the past, so outputs written during the test are strictly newer.
func addSource(t *testing.T, cfg *config.Config, rel string) string {
	t.Helper()
	path := filepath.Join(cfg.SourceDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("PNG"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	return path
}

func newTestRun(t *testing.T, cfg *config.Config, fk *fakeKram, host int) (*BuildRun, *bytes.Buffer) {
	t.Helper()
	return newTestRunOpts(t, cfg, Options{Runner: fk, HostCPUs: host})
}

func newTestRunOpts(t *testing.T, cfg *config.Config, opts Options) (*BuildRun, *bytes.Buffer) {
	t.Helper()
	require.NoError(t, cfg.Validate())
	presets, err := planner.LoadPresets(cfg)
	require.NoError(t, err)
	var buf bytes.Buffer
	log := logging.NewWriterLogger(&buf, true)
	return NewBuildRun(cfg, presets, log, opts), &buf
}
