// Package config holds runtime configuration: defaults, enum types for the
// validated string fields, and validation. CLI flag binding lives in the cli
// package; this package never touches os.Args.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// --- Enum types for validated string fields ---

// Platform selects the per-platform format preset table.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformMac     Platform = "mac"
	PlatformWin     Platform = "win"
)

// Platforms lists every supported platform in help-text order.
var Platforms = []Platform{PlatformIOS, PlatformMac, PlatformWin, PlatformAndroid}

// Container is the output texture container format.
type Container string

const (
	ContainerKTX  Container = "ktx"  // KTX1 (default).
	ContainerKTX2 Container = "ktx2" // KTX2 with zstd supercompression.
	ContainerKTXA Container = "ktxa" // KTX1 with aligned mip levels.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Quality bounds accepted by kram's -quality flag.
const (
	QualityMin = 0
	QualityMax = 100
)

// DefaultScriptName is the script file written inside the destination root
// when --script is used without an explicit --script-file.
const DefaultScriptName = "kramscript.txt"

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by flag parsing before being passed (by pointer) to packages
// that need it.
type Config struct {
	// Paths (set from positional args).
	SourceDir string
	DestDir   string

	// Target.
	Platform  Platform
	Container Container

	// Encoder settings appended to every preset fragment.
	Quality int // Default: 49.
	MipMax  int // Default: 1024. Downsample to this maximum dimension.

	// External tools.
	KramPath       string // Default: "kram" (resolved via PATH).
	ValidatorPath  string // Default: "ktx2check".
	ValidateOutput bool   // Run the validator after each ktx2 encode.

	// Dispatch.
	Jobs       int    // Worker cap. Default: 64.
	Force      bool   // Ignore modification times and rebuild everything.
	ScriptMode bool   // Emit a script and hand it to "kram script".
	ScriptFile string // Derived: <DestDir>/kramscript.txt unless set.

	// Optional extras.
	PresetFile  string // YAML preset overrides.
	JournalPath string // SQLite build journal.
	DryRun      bool
	Analyze     bool // Print the classification report and exit.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode
	LogFile   string
	CheckOnly bool
}

// DefaultConfig returns a Config with the stock build settings. Platform is
// left empty on purpose: it has no sensible default and must be supplied.
func DefaultConfig() Config {
	return Config{
		Container:     ContainerKTX,
		Quality:       49,
		MipMax:        1024,
		KramPath:      "kram",
		ValidatorPath: "ktx2check",
		Jobs:          64,
		ColorMode:     ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and numeric ranges. When not in CheckOnly mode
// it also requires both directory paths and fills in the derived ScriptFile.
func (c *Config) Validate() error {
	if err := ValidatePlatform(c.Platform); err != nil && !c.CheckOnly {
		return err
	}

	switch c.Container {
	case ContainerKTX, ContainerKTX2, ContainerKTXA:
		// valid
	default:
		return errors.New("invalid container (use 'ktx', 'ktx2' or 'ktxa')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.Quality < QualityMin || c.Quality > QualityMax {
		return fmt.Errorf("quality must be between %d and %d (got %d)", QualityMin, QualityMax, c.Quality)
	}
	if c.MipMax <= 0 {
		return fmt.Errorf("mipmax must be positive (got %d)", c.MipMax)
	}
	if c.Jobs <= 0 {
		return fmt.Errorf("jobs must be positive (got %d)", c.Jobs)
	}
	if c.ScriptMode && c.DryRun {
		return errors.New("--script and --dry-run are mutually exclusive")
	}

	if c.CheckOnly {
		return nil
	}
	if c.SourceDir == "" || c.DestDir == "" {
		return errors.New("need exactly src_dir and dst_dir")
	}
	if c.ScriptMode && c.ScriptFile == "" {
		c.ScriptFile = filepath.Join(c.DestDir, DefaultScriptName)
	}
	return nil
}

// ValidatePlatform reports whether p names a supported platform.
func ValidatePlatform(p Platform) error {
	for _, known := range Platforms {
		if p == known {
			return nil
		}
	}
	if p == "" {
		return errors.New("platform is required (use 'ios', 'mac', 'win' or 'android')")
	}
	return fmt.Errorf("invalid platform %q (use 'ios', 'mac', 'win' or 'android')", string(p))
}

// ValidatePaths ensures the resolved destination directory is not inside (or
// equal to) the resolved source directory. This prevents the walker from
// discovering its own output files. Both arguments must be absolute,
// symlink-resolved paths.
func (c *Config) ValidatePaths(sourceAbs, destAbs string) error {
	sep := string(filepath.Separator)
	if destAbs == sourceAbs || strings.HasPrefix(destAbs+sep, sourceAbs+sep) {
		return errors.New("destination directory must not be inside source directory")
	}
	return nil
}

// OutputExt returns the destination file extension (with dot) for the
// configured container.
func (c *Config) OutputExt() string {
	return "." + string(c.Container)
}

// SecondGeneration reports whether the container supports supercompression
// and therefore needs a compressor selection and optional validation pass.
func (c *Config) SecondGeneration() bool {
	return c.Container == ContainerKTX2
}

// GlobalArgs returns the argument fragment appended to every preset:
// quality, mip cap, and the verbose switch.
func (c *Config) GlobalArgs() string {
	args := " -quality " + strconv.Itoa(c.Quality) + " -mipmax " + strconv.Itoa(c.MipMax)
	if c.Verbose {
		args += " -v"
	}
	return args
}
