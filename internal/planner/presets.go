package planner

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/backmassage/kramtex/internal/config"
	"github.com/backmassage/kramtex/internal/naming"
)

// ErrUnknownPlatform is returned when no builtin table exists for a platform.
var ErrUnknownPlatform = errors.New("no preset table for platform")

// ErrUnknownContentKey is returned when a preset file names a content kind
// that does not exist.
var ErrUnknownContentKey = errors.New("unknown content kind in preset file")

// PresetTable maps a content kind to the encoder argument fragment for it.
// An empty fragment means "no format configured": jobs of that kind are
// skipped. Built once at startup and read-only afterwards.
type PresetTable map[naming.ContentKind]string

// Builtin fragments. -optopaque drops bc7 to bc1 (and etc2rgba to etc2rgb)
// on opaque textures. Height maps are converted to normal maps by kram.
var builtinPresets = map[config.Platform]PresetTable{
	config.PlatformIOS: {
		naming.ContentAlbedo:         "-f astc4x4 -srgb -premul",
		naming.ContentNormal:         "-f etc2rg -signed -normal",
		naming.ContentHeight:         "-f etc2rg -signed -normal -height",
		naming.ContentMetalRoughness: "-f etc2rg",
		naming.ContentMask:           "-f etc2r",
		naming.ContentSDF:            "-f etc2r -signed -sdf",
	},
	config.PlatformAndroid: {
		naming.ContentAlbedo:         "-f etc2rgba -srgb -premul -optopaque",
		naming.ContentNormal:         "-f etc2rg -signed -normal",
		naming.ContentHeight:         "-f etc2rg -signed -normal -height",
		naming.ContentMetalRoughness: "-f etc2rg",
		naming.ContentMask:           "-f etc2r",
		naming.ContentSDF:            "-f etc2r -signed -sdf",
	},
	config.PlatformMac: {
		naming.ContentAlbedo:         "-f bc7 -srgb -premul -optopaque",
		naming.ContentNormal:         "-f bc5 -signed -normal",
		naming.ContentHeight:         "-f bc5 -signed -normal -height",
		naming.ContentMetalRoughness: "-f bc5",
		naming.ContentMask:           "-f bc4",
		naming.ContentSDF:            "-f bc4 -signed -sdf",
	},
	config.PlatformWin: {
		naming.ContentAlbedo:         "-f bc7 -srgb -premul -optopaque",
		naming.ContentNormal:         "-f bc5 -signed -normal",
		naming.ContentHeight:         "-f bc5 -signed -normal -height",
		naming.ContentMetalRoughness: "-f bc5",
		naming.ContentMask:           "-f bc4",
		naming.ContentSDF:            "-f bc4 -signed -sdf",
	},
}

// BuiltinPresets returns a fresh copy of the builtin table for platform.
// Unknown content falls back to the albedo fragment.
func BuiltinPresets(platform config.Platform) (PresetTable, error) {
	src, ok := builtinPresets[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
	table := make(PresetTable, len(src)+1)
	for k, v := range src {
		table[k] = v
	}
	table[naming.ContentUnknown] = src[naming.ContentAlbedo]
	return table, nil
}

// WithGlobalArgs returns a copy of t with args appended to every non-empty
// fragment. Empty fragments stay empty so disabled kinds remain disabled.
func (t PresetTable) WithGlobalArgs(args string) PresetTable {
	out := make(PresetTable, len(t))
	for k, v := range t {
		if strings.TrimSpace(v) == "" {
			out[k] = ""
			continue
		}
		out[k] = strings.TrimSpace(v) + args
	}
	return out
}

// presetFile is the on-disk override format:
//
//	platforms:
//	  mac:
//	    albedo: "-f bc7 -srgb"
//	    unknown: ""        # disable unclassified files
type presetFile struct {
	Platforms map[string]map[string]string `yaml:"platforms"`
}

// LoadPresetFile reads a YAML override file and merges the entries for
// platform onto the builtin table. Keys are content kind names (see
// [naming.ContentKind.String]); an explicit empty value disables that kind.
func LoadPresetFile(path string, platform config.Platform) (PresetTable, error) {
	table, err := BuiltinPresets(platform)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}
	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse preset file %s: %w", path, err)
	}

	for key, fragment := range pf.Platforms[string(platform)] {
		kind, ok := naming.ParseContentKind(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownContentKey, key, path)
		}
		table[kind] = strings.TrimSpace(fragment)
	}
	return table, nil
}

// LoadPresets returns the table for cfg: the builtin table, or the builtin
// table merged with cfg.PresetFile, with the global args appended.
func LoadPresets(cfg *config.Config) (PresetTable, error) {
	var (
		table PresetTable
		err   error
	)
	if cfg.PresetFile != "" {
		table, err = LoadPresetFile(cfg.PresetFile, cfg.Platform)
	} else {
		table, err = BuiltinPresets(cfg.Platform)
	}
	if err != nil {
		return nil, err
	}
	return table.WithGlobalArgs(cfg.GlobalArgs()), nil
}
