package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/backmassage/kramtex/internal/config"
	"github.com/backmassage/kramtex/internal/display"
	"github.com/backmassage/kramtex/internal/logging"
	"github.com/backmassage/kramtex/internal/planner"
	"github.com/backmassage/kramtex/internal/term"
)

// AnalyzeRow is one line of the analysis table.
type AnalyzeRow struct {
	Name     string
	Content  string
	Topology string
	Chunks   string
	Plan     string
	Size     int64
}

// Analyze walks cfg.SourceDir, classifies and plans every file without
// encoding anything, and writes a table to w: content kind, topology,
// atlas chunks, and the planned action. Source files whose size is a
// statistical outlier for the tree are flagged. Returns the rows in
// discovery order.
func Analyze(ctx context.Context, cfg *config.Config, presets planner.PresetTable, log *logging.Logger, w io.Writer) []AnalyzeRow {
	var rows []AnalyzeRow
	var sizes []float64

	for asset, err := range Walk(cfg.SourceDir) {
		if ctx.Err() != nil {
			log.Warn("Interrupted")
			return rows
		}
		if err != nil {
			log.Warn("Cannot read: %v", err)
			continue
		}
		job, err := planner.NewJob(cfg, asset)
		if err != nil {
			log.Warn("Cannot map output for %s: %v", asset.Path, err)
			continue
		}
		plan := planner.BuildPlan(cfg, presets, job)
		if plan.SkipReason == planner.SkipIgnored {
			continue
		}

		c := job.Classification
		row := AnalyzeRow{
			Name:     relOrBase(cfg.SourceDir, asset.Path),
			Content:  c.Content.String(),
			Topology: c.Topology.String(),
			Chunks:   "-",
			Plan:     planner.Describe(plan),
			Size:     asset.Size,
		}
		if c.Chunks.IsAtlas() {
			row.Chunks = c.Chunks.String()
		}
		rows = append(rows, row)
		if asset.Size > 0 {
			sizes = append(sizes, float64(asset.Size))
		}
	}

	if len(rows) == 0 {
		log.Warn("No files found in %s", cfg.SourceDir)
		return rows
	}

	bounds := computeStats(sizes)
	printAnalysisTable(w, log.Palette(), rows, bounds)
	printAnalysisSummary(log, rows, bounds)
	return rows
}

func relOrBase(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return filepath.Base(path)
}

// iqrBounds holds the IQR-based thresholds for outlier classification.
type iqrBounds struct {
	q1, q3    float64
	outlierLo float64 // Q1 - 1.5*IQR
	outlierHi float64 // Q3 + 1.5*IQR
	extremeLo float64 // Q1 - 3.0*IQR
	extremeHi float64 // Q3 + 3.0*IQR
	valid     bool
}

func computeStats(vals []float64) iqrBounds {
	if len(vals) < 4 {
		return iqrBounds{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1

	return iqrBounds{
		q1:        q1,
		q3:        q3,
		outlierLo: q1 - 1.5*iqr,
		outlierHi: q3 + 1.5*iqr,
		extremeLo: q1 - 3.0*iqr,
		extremeHi: q3 + 3.0*iqr,
		valid:     iqr > 0,
	}
}

// classify returns "" (normal), "outlier", or "extreme" for a value.
func (b *iqrBounds) classify(v float64) string {
	if !b.valid || v <= 0 {
		return ""
	}
	if v < b.extremeLo || v > b.extremeHi {
		return "extreme"
	}
	if v < b.outlierLo || v > b.outlierHi {
		return "outlier"
	}
	return ""
}

func printAnalysisTable(w io.Writer, p term.Palette, rows []AnalyzeRow, bounds iqrBounds) {
	nameW := len("File")
	contentW := len("Content")
	topoW := len("Type")
	chunkW := len("Chunks")
	sizeW := len("Size")

	for _, r := range rows {
		nameW = max(nameW, len(r.Name))
		contentW = max(contentW, len(r.Content))
		topoW = max(topoW, len(r.Topology))
		chunkW = max(chunkW, len(r.Chunks))
		sizeW = max(sizeW, len(display.FormatBytes(r.Size)))
	}
	nameW = min(nameW, 50)

	header := fmt.Sprintf("  %-*s  %-*s  %-*s  %-*s  %-*s  %s",
		nameW, "File",
		contentW, "Content",
		topoW, "Type",
		chunkW, "Chunks",
		sizeW, "Size",
		"Plan",
	)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "  "+strings.Repeat("─", len(header)-2))

	for _, r := range rows {
		name := r.Name
		if len(name) > nameW {
			name = name[:nameW-1] + "…"
		}

		class := bounds.classify(float64(r.Size))
		// Pad the plain text first, then wrap in ANSI color. %-*s would
		// count escape bytes as visible width.
		sizeCell := colorPad(p, display.FormatBytes(r.Size), sizeW, class)

		fmt.Fprintf(w, "  %-*s  %-*s  %-*s  %-*s  %s  %s%s\n",
			nameW, name,
			contentW, r.Content,
			topoW, r.Topology,
			chunkW, r.Chunks,
			sizeCell,
			r.Plan,
			formatFlag(p, class),
		)
	}
	fmt.Fprintln(w)
}

func printAnalysisSummary(log *logging.Logger, rows []AnalyzeRow, bounds iqrBounds) {
	var encode, outliers, extremes int
	kinds := make(map[string]int)
	for _, r := range rows {
		if strings.HasPrefix(r.Plan, "encode") {
			encode++
		}
		kinds[r.Content]++
		switch bounds.classify(float64(r.Size)) {
		case "extreme":
			extremes++
		case "outlier":
			outliers++
		}
	}

	log.Info("Analyzed %s, %d to encode", display.FormatCount(len(rows), "file"), encode)

	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", k, kinds[k]))
	}
	log.Info("  Content: %s", strings.Join(parts, " "))

	if bounds.valid {
		log.Info("  Source size IQR: %s – %s (outlier > %s)",
			display.FormatBytes(int64(bounds.q1)), display.FormatBytes(int64(bounds.q3)),
			display.FormatBytes(int64(bounds.outlierHi)))
	}
	if outliers > 0 {
		log.Outlier("  %d size outlier(s) flagged [*]", outliers)
	}
	if extremes > 0 {
		log.Error("  %d extreme size outlier(s) flagged [!]", extremes)
	}
}

func formatFlag(p term.Palette, flag string) string {
	switch flag {
	case "extreme":
		return " " + p.Paint(p.Red, "[!]")
	case "outlier":
		return " " + p.Paint(p.Orange, "[*]")
	default:
		return ""
	}
}

// colorPad pads a plain string to width, then wraps in ANSI color.
func colorPad(p term.Palette, s string, width int, class string) string {
	padded := fmt.Sprintf("%-*s", width, s)
	switch class {
	case "extreme":
		return p.Paint(p.Red, padded)
	case "outlier":
		return p.Paint(p.Orange, padded)
	default:
		return padded
	}
}

// percentile computes the p-th percentile using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
