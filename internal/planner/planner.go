package planner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/backmassage/kramtex/internal/config"
	"github.com/backmassage/kramtex/internal/naming"
)

// compressorArgs selects zstd supercompression for second-generation
// containers. Level 0 lets kram pick its default level.
var compressorArgs = []string{"-zstd", "0"}

// ignoredNames are editor and OS metadata files skipped without a log line.
var ignoredNames = map[string]bool{
	".ds_store":   true,
	"thumbs.db":   true,
	"desktop.ini": true,
}

// NewJob classifies asset and derives its destination directory, mirroring
// the asset's location under cfg.SourceDir inside cfg.DestDir.
func NewJob(cfg *config.Config, asset SourceAsset) (Job, error) {
	c := naming.Classify(filepath.Base(asset.Path))
	dst, err := naming.OutputPath(cfg.SourceDir, cfg.DestDir, asset.Path, cfg.OutputExt(), c)
	if err != nil {
		return Job{}, err
	}
	return Job{Asset: asset, DestDir: filepath.Dir(dst), Classification: c}, nil
}

// AcceptsExtension reports whether ext (lowercase, with dot) is a valid
// source for the container: PNG images and existing KTX files always, and
// KTX2 files when the output is KTX2.
func AcceptsExtension(ctr config.Container, ext string) bool {
	switch ext {
	case ".png", ".ktx":
		return true
	case ".ktx2":
		return ctr == config.ContainerKTX2
	default:
		return false
	}
}

// TopologyArgs returns the -type fragment for t. Every Topology value is
// listed; the default arm covers values outside the enum.
func TopologyArgs(t naming.Topology) []string {
	switch t {
	case naming.Tex2D:
		return []string{"-type", "2d"}
	case naming.Tex3D:
		return []string{"-type", "3d"}
	case naming.Cube:
		return []string{"-type", "cube"}
	case naming.Tex1DArray:
		return []string{"-type", "1darray"}
	case naming.Tex2DArray:
		return []string{"-type", "2darray"}
	case naming.CubeArray:
		return []string{"-type", "cubearray"}
	default:
		return []string{"-type", "2d"}
	}
}

// Synthesize builds the plan for job without touching the filesystem.
//
// Flow:
//  1. Reject unsupported extensions (silently for ignorable metadata files)
//  2. Look up the preset for the content kind; empty means skip
//  3. Append the topology fragment
//  4. Append the chunk layout for 2D array atlases
//  5. Append the compressor for second-generation containers
//  6. Append the source and destination flags
//
// Two calls with equal inputs return equal plans.
func Synthesize(cfg *config.Config, table PresetTable, job Job) *JobPlan {
	plan := &JobPlan{Job: job, Action: ActionSkip}

	base := filepath.Base(job.Asset.Path)
	if ignoredNames[strings.ToLower(base)] {
		plan.SkipReason = SkipIgnored
		return plan
	}
	ext := strings.ToLower(filepath.Ext(base))
	if !AcceptsExtension(cfg.Container, ext) {
		plan.SkipReason = SkipExtension
		return plan
	}

	c := job.Classification
	preset := strings.Fields(table[c.Content])
	if len(preset) == 0 {
		plan.SkipReason = SkipNoPreset
		return plan
	}

	stem := strings.TrimSuffix(base, filepath.Ext(base))
	plan.DestPath = filepath.Join(job.DestDir, naming.DestinationBase(stem, c)+cfg.OutputExt())

	args := make([]string, 0, len(preset)+12)
	args = append(args, "encode")
	args = append(args, preset...)
	args = append(args, TopologyArgs(c.Topology)...)
	if c.Topology == naming.Tex2DArray && c.Chunks.IsAtlas() {
		args = append(args, "-chunks", c.Chunks.String())
	}
	if cfg.SecondGeneration() {
		args = append(args, compressorArgs...)
	}
	args = append(args, "-i", job.Asset.Path, "-o", plan.DestPath)

	plan.Args = args
	plan.Action = ActionEncode
	return plan
}

// BuildPlan synthesizes the plan for job and then applies the incremental
// filter: an encode whose destination is newer than the source becomes a
// SkipUpToDate plan.
func BuildPlan(cfg *config.Config, table PresetTable, job Job) *JobPlan {
	plan := Synthesize(cfg, table, job)
	if plan.Action == ActionEncode && ShouldSkip(cfg.Force, job.Asset.ModTime, plan.DestPath) {
		plan.Action = ActionSkip
		plan.SkipReason = SkipUpToDate
	}
	return plan
}

// Describe returns a short human label for a plan, used in dry-run and
// analyze output.
func Describe(p *JobPlan) string {
	if p.Action == ActionSkip {
		return fmt.Sprintf("skip (%s)", p.SkipReason)
	}
	return "encode -> " + filepath.Base(p.DestPath)
}
