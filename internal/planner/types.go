package planner

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/backmassage/kramtex/internal/naming"
)

// SourceAsset is one regular file found by the directory walker.
type SourceAsset struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Job is the unit of concurrent work: one source asset, the destination
// directory mirroring its location, and its classification.
type Job struct {
	Asset          SourceAsset
	DestDir        string
	Classification naming.Classification
}

// Action describes the per-job decision.
type Action int

const (
	ActionEncode Action = iota
	ActionSkip
)

// SkipReason explains an ActionSkip plan. None of them is a failure.
type SkipReason int

const (
	SkipNone      SkipReason = iota
	SkipIgnored              // Editor/OS metadata file; not logged.
	SkipExtension            // Unsupported extension for the container.
	SkipNoPreset             // No format configured for the content kind.
	SkipUpToDate             // Destination is newer than the source.
	SkipCollision            // Another source already owns the destination.
)

func (r SkipReason) String() string {
	switch r {
	case SkipIgnored:
		return "ignored"
	case SkipExtension:
		return "unsupported extension"
	case SkipNoPreset:
		return "no preset"
	case SkipUpToDate:
		return "up to date"
	case SkipCollision:
		return "destination collision"
	default:
		return ""
	}
}

// JobPlan holds the complete decision for one job. It is produced by
// [BuildPlan] and consumed by the dispatcher.
type JobPlan struct {
	Job        Job
	Action     Action
	SkipReason SkipReason

	// Args is the kram argument list, starting with the "encode" operation.
	// Empty when Action is ActionSkip for a reason decided before synthesis.
	Args     []string
	DestPath string
}

// Command returns the self-contained command line (without the kram binary)
// as written to a script file.
func (p *JobPlan) Command() string {
	return strings.Join(p.Args, " ")
}

// ScriptSafe reports whether Command splits back into Args on whitespace.
// A source or destination path containing a space does not.
func (p *JobPlan) ScriptSafe() bool {
	return !slices.ContainsFunc(p.Args, func(a string) bool {
		return strings.ContainsFunc(a, unicode.IsSpace)
	})
}
