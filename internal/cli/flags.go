package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/backmassage/kramtex/internal/config"
)

// enumValue adapts a string-typed enum field to pflag.Value, rejecting
// values outside allowed at parse time.
type enumValue[T ~string] struct {
	target  *T
	allowed []T
}

func newEnumValue[T ~string](target *T, allowed ...T) *enumValue[T] {
	return &enumValue[T]{target: target, allowed: allowed}
}

func (e *enumValue[T]) String() string {
	if e.target == nil {
		return ""
	}
	return string(*e.target)
}

func (e *enumValue[T]) Set(s string) error {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(e.allowed, v) {
		return fmt.Errorf("must be one of %s", e.choices())
	}
	*e.target = v
	return nil
}

func (e *enumValue[T]) Type() string { return "string" }

func (e *enumValue[T]) choices() string {
	names := make([]string, len(e.allowed))
	for i, a := range e.allowed {
		names[i] = string(a)
	}
	return strings.Join(names, "|")
}

// buildFlags holds flag values that do not map one-to-one onto Config.
type buildFlags struct {
	noColor bool
}

// bindFlags registers every build flag on fs, writing into cfg.
func bindFlags(fs *pflag.FlagSet, cfg *config.Config, bf *buildFlags) {
	fs.VarP(newEnumValue(&cfg.Platform, config.Platforms...), "platform", "p",
		"target platform (ios|mac|win|android)")
	fs.VarP(newEnumValue(&cfg.Container, config.ContainerKTX, config.ContainerKTX2, config.ContainerKTXA),
		"container", "c", "output container (ktx|ktx2|ktxa)")
	fs.IntVarP(&cfg.Quality, "quality", "q", cfg.Quality,
		fmt.Sprintf("encoder quality %d-%d; affects encode speed", config.QualityMin, config.QualityMax))
	fs.IntVar(&cfg.MipMax, "mipmax", cfg.MipMax, "largest mip dimension kept")
	fs.IntVarP(&cfg.Jobs, "jobs", "j", cfg.Jobs, "maximum concurrent encodes (capped by host cores)")
	fs.BoolVar(&cfg.Force, "force", false, "rebuild every texture, ignoring modification times")

	fs.BoolVar(&cfg.ScriptMode, "script", false, "write a kram script and run it in one kram process")
	fs.StringVar(&cfg.ScriptFile, "script-file", "",
		"script path for --script (default <dst_dir>/"+config.DefaultScriptName+")")

	fs.StringVar(&cfg.KramPath, "kram", cfg.KramPath, "path to the kram encoder")
	fs.StringVar(&cfg.ValidatorPath, "validator", cfg.ValidatorPath, "path to the ktx2check validator")
	fs.BoolVar(&cfg.ValidateOutput, "validate", false, "run ktx2check on every ktx2 output (direct mode only)")
	fs.StringVar(&cfg.PresetFile, "presets", "", "YAML file overriding per-platform format presets")
	fs.StringVar(&cfg.JournalPath, "journal", "", "SQLite build journal to record runs in")

	fs.BoolVar(&cfg.DryRun, "dry-run", false, "print kram commands without running them")
	fs.BoolVar(&cfg.Analyze, "analyze", false, "classify the source tree and print a report; encode nothing")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "check for kram and ktx2check and exit")

	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "verbose output (passes -v to kram, shows its output)")
	fs.Var(newEnumValue(&cfg.ColorMode, config.ColorAuto, config.ColorAlways, config.ColorNever),
		"color", "color output (auto|always|never)")
	fs.BoolVar(&bf.noColor, "no-color", false, "same as --color=never")
	fs.StringVarP(&cfg.LogFile, "log", "l", "", "append plain log lines to this file")
}

// apply folds the derived flags into cfg.
func (bf *buildFlags) apply(cfg *config.Config) {
	if bf.noColor {
		cfg.ColorMode = config.ColorNever
	}
}
