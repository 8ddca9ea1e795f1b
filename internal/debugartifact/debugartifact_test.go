package debugartifact_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highlightlab/clipline/internal/anchors"
	"github.com/highlightlab/clipline/internal/boundaries"
	"github.com/highlightlab/clipline/internal/debugartifact"
	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
	"github.com/highlightlab/clipline/internal/postfilter"
	"github.com/highlightlab/clipline/internal/windows"
)

func sampleFeatures() *features.ExtractedFeatures {
	n := 10
	times := make([]float64, n)
	excitement := make([]float64, n)
	audio := make([]float64, n)
	motion := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * 0.5
		excitement[i] = float64(i) / float64(n)
		audio[i] = -20
		motion[i] = 0.1
	}
	return &features.ExtractedFeatures{
		Times: times, Excitement: excitement, AudioRMSZ: audio, MotionScoreZ: motion,
		SceneCuts: []float64{2.0}, Duration: 4.5, StepSec: 0.5, Version: "v2.0.0",
	}
}

func TestWriteDebugJSONProducesValidSchema(t *testing.T) {
	cfg := pipelineconfig.Default()
	f := sampleFeatures()
	anchorList := []anchors.Anchor{{TimeSec: 2, Score: 1.0, Reason: "excitement_peak"}}
	boundaryList := []boundaries.Candidate{{TimeSec: 2, Score: 0.5}}
	clips := []windows.ClipWindow{{StartSec: 0, EndSec: 4, QualityScore: 0.7, AnchorTimeSec: 2}}
	report := postfilter.Report{
		Overlap: []postfilter.FilterDecision{{ClipIndex: 0, Action: "keep", Reason: "ok"}},
	}

	outPath := filepath.Join(t.TempDir(), "debug", "segmentation_v2_debug.json")
	err := debugartifact.WriteDebugJSON(outPath, cfg, f, anchorList, boundaryList, clips, report, clips)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "v2", doc["pipeline_version"])
	assert.Contains(t, doc, "features_summary")
	assert.Contains(t, doc, "final_clips")
	assert.Contains(t, doc, "statistics")

	finalClips, ok := doc["final_clips"].([]any)
	require.True(t, ok)
	assert.Len(t, finalClips, 1)
}

func TestWriteDebugJSONCreatesParentDirectories(t *testing.T) {
	cfg := pipelineconfig.Default()
	f := sampleFeatures()
	outPath := filepath.Join(t.TempDir(), "nested", "dir", "debug.json")

	err := debugartifact.WriteDebugJSON(outPath, cfg, f, nil, nil, nil, postfilter.Report{}, nil)
	require.NoError(t, err)

	_, statErr := os.Stat(outPath)
	assert.NoError(t, statErr)
}

func TestWriteDebugPlotProducesAPNGFile(t *testing.T) {
	f := sampleFeatures()
	anchorList := []anchors.Anchor{{TimeSec: 2, Score: 1.0}}
	clips := []windows.ClipWindow{{StartSec: 0, EndSec: 4, QualityScore: 0.7}}

	outPath := filepath.Join(t.TempDir(), "debug", "segmentation_v2_plot.png")
	err := debugartifact.WriteDebugPlot(outPath, f, anchorList, clips)
	require.NoError(t, err)

	info, statErr := os.Stat(outPath)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
}
