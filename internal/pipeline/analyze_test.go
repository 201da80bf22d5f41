package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/kramtex/internal/logging"
	"github.com/backmassage/kramtex/internal/planner"
)

func TestAnalyze_Rows(t *testing.T) {
	cfg := testTree(t)
	addSource(t, cfg, "env/rock-h.png")
	addSource(t, cfg, "tile-2darray-atlas4x3-a.png")
	addSource(t, cfg, "notes.txt")
	addSource(t, cfg, "Thumbs.db")
	require.NoError(t, cfg.Validate())
	presets, err := planner.LoadPresets(cfg)
	require.NoError(t, err)

	var logs, table bytes.Buffer
	rows := Analyze(context.Background(), cfg, presets, logging.NewWriterLogger(&logs, false), &table)

	require.Len(t, rows, 3, "ignored files are not listed")
	assert.Equal(t, AnalyzeRow{
		Name: filepath.Join("env", "rock-h.png"), Content: "height", Topology: "2d",
		Chunks: "-", Plan: "encode -> rock-n.ktx", Size: 3,
	}, rows[0])
	assert.Equal(t, "skip (unsupported extension)", rows[1].Plan)
	assert.Equal(t, "2darray", rows[2].Topology)
	assert.Equal(t, "4x3", rows[2].Chunks)

	out := table.String()
	assert.True(t, strings.HasPrefix(out, "  File"))
	assert.Contains(t, out, "rock-n.ktx")
	assert.Contains(t, logs.String(), "Analyzed 3 files, 2 to encode")
	assert.NoDirExists(t, cfg.DestDir, "analyze writes nothing")
}

func TestAnalyze_FlagsSizeOutlier(t *testing.T) {
	cfg := testTree(t)
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		addSource(t, cfg, n+"-a.png")
	}
	huge := filepath.Join(cfg.SourceDir, "z-a.png")
	require.NoError(t, os.WriteFile(huge, make([]byte, 1<<20), 0o644))
	// Give the small files distinct sizes so the IQR is nonzero.
	for i, n := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.SourceDir, n+"-a.png"), make([]byte, 100+i*10), 0o644))
	}
	require.NoError(t, cfg.Validate())
	presets, err := planner.LoadPresets(cfg)
	require.NoError(t, err)

	var logs, table bytes.Buffer
	Analyze(context.Background(), cfg, presets, logging.NewWriterLogger(&logs, false), &table)

	assert.Contains(t, table.String(), "[!]")
	assert.Contains(t, logs.String(), "extreme size outlier")
}

func TestAnalyze_Empty(t *testing.T) {
	cfg := testTree(t)
	var logs, table bytes.Buffer
	rows := Analyze(context.Background(), cfg, planner.PresetTable{}, logging.NewWriterLogger(&logs, false), &table)
	assert.Empty(t, rows)
	assert.Empty(t, table.String())
	assert.Contains(t, logs.String(), "No files found")
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 3.0, percentile(sorted, 50))
	assert.Equal(t, 2.0, percentile(sorted, 25))
	assert.Equal(t, 1.0, percentile(sorted, 0))
	assert.Equal(t, 0.0, percentile(nil, 50))
}
