// Package check provides system diagnostics (--check mode) and pre-run
// dependency validation (CheckDeps) for the kram encoder and the ktx2check
// validator.
package check

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/backmassage/kramtex/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrKramNotFound      = errors.New("kram encoder not found")
	ErrValidatorNotFound = errors.New("ktx2check validator not found")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...any)
	Success(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
	Debug(string, ...any)
}

// RunCheck runs the --check flow: reports where kram and ktx2check resolve,
// the host core count, and the worker count a build would use. It is
// informational only and does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	checkTool(log, "kram", cfg.KramPath)
	checkTool(log, "ktx2check", cfg.ValidatorPath)

	workers := min(runtime.NumCPU(), cfg.Jobs)
	log.Info("Host cores: %d, job cap: %d, workers: %d", runtime.NumCPU(), cfg.Jobs, max(workers, 1))

	if cfg.DestDir != "" {
		checkWritable(log, cfg.DestDir)
	}
}

// checkTool logs where name resolves, or an error when it does not.
func checkTool(log Logger, name, path string) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		log.Error("%s not found (%s)", name, path)
		return
	}
	log.Success("%s: %s", name, resolved)
}

// checkWritable verifies a file can be created in dir (or its nearest
// existing parent, since the build creates dir on demand).
func checkWritable(log Logger, dir string) {
	probeDir := dir
	for {
		if fi, err := os.Stat(probeDir); err == nil && fi.IsDir() {
			break
		}
		parent := filepath.Dir(probeDir)
		if parent == probeDir {
			log.Error("No existing parent for %s", dir)
			return
		}
		probeDir = parent
	}
	f, err := os.CreateTemp(probeDir, ".kramtex-check-*")
	if err != nil {
		log.Error("Output location not writable: %v", err)
		return
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	log.Success("Output location writable: %s", probeDir)
}

// CheckDeps is the pre-run validation: it verifies that kram resolves, and
// that ktx2check resolves when validation will run (direct mode, ktx2
// output, --validate). Dry runs and analyze runs never start either tool and
// are not checked. Returns a wrapped sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if cfg.DryRun || cfg.Analyze {
		return nil
	}
	if _, err := exec.LookPath(cfg.KramPath); err != nil {
		return fmt.Errorf("%w: %s", ErrKramNotFound, cfg.KramPath)
	}
	if cfg.ValidateOutput && cfg.SecondGeneration() && !cfg.ScriptMode {
		if _, err := exec.LookPath(cfg.ValidatorPath); err != nil {
			return fmt.Errorf("%w: %s", ErrValidatorNotFound, cfg.ValidatorPath)
		}
	}
	return nil
}
