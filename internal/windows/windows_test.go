package windows_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highlightlab/clipline/internal/anchors"
	"github.com/highlightlab/clipline/internal/boundaries"
	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
	"github.com/highlightlab/clipline/internal/windows"
)

func buildFeatures(n int, stepSec float64) *features.ExtractedFeatures {
	times := make([]float64, n)
	excitement := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * stepSec
		excitement[i] = 0.5
	}
	return &features.ExtractedFeatures{
		Times: times, Excitement: excitement,
		AudioRMSZ: make([]float64, n), MotionScoreZ: make([]float64, n),
		Duration: float64(n-1) * stepSec, StepSec: stepSec,
	}
}

func TestSelectFallsBackWhenNoBoundariesNearby(t *testing.T) {
	cfg := pipelineconfig.Default()
	f := buildFeatures(400, 0.5) // 199.5s video

	anchorList := []anchors.Anchor{{TimeSec: 100, Score: 1.0, Reason: "excitement_peak"}}
	windowsOut := windows.Select(anchorList, nil, f, cfg)

	require.Len(t, windowsOut, 1)
	w := windowsOut[0]
	assert.Equal(t, "fallback_offset", w.StartReason)
	assert.GreaterOrEqual(t, w.Duration(), cfg.MinClipSeconds-1e-6)
	assert.LessOrEqual(t, w.Duration(), cfg.MaxClipSeconds+1e-6)
}

func TestSelectEnforcesMaxClipSeconds(t *testing.T) {
	cfg := pipelineconfig.Default()
	cfg.MaxClipSeconds = 10
	cfg.FallbackPre = 4
	cfg.FallbackPost = 20 // would overshoot MaxClipSeconds if the fallback end were not capped at start+MaxClipSeconds
	f := buildFeatures(400, 0.5)

	anchorList := []anchors.Anchor{{TimeSec: 100, Score: 1.0}}
	windowsOut := windows.Select(anchorList, nil, f, cfg)

	require.Len(t, windowsOut, 1)
	assert.LessOrEqual(t, windowsOut[0].Duration(), cfg.MaxClipSeconds+1e-9)
}

func TestSelectSnapsToBoundaryCandidate(t *testing.T) {
	cfg := pipelineconfig.Default()
	f := buildFeatures(400, 0.5)

	cands := []boundaries.Candidate{
		{TimeSec: 100 - cfg.PreMin - 1, Score: 0.9},
		{TimeSec: 100 + cfg.PostMin + 1, Score: 0.9},
	}
	anchorList := []anchors.Anchor{{TimeSec: 100, Score: 1.0}}
	windowsOut := windows.Select(anchorList, cands, f, cfg)

	require.Len(t, windowsOut, 1)
	assert.Equal(t, "boundary_snap", windowsOut[0].StartReason)
	assert.Equal(t, "boundary_snap", windowsOut[0].EndReason)
}

func TestSelectDropsDegenerateWindow(t *testing.T) {
	cfg := pipelineconfig.Default()
	f := buildFeatures(10, 0.5) // 4.5s video, too short for any real window

	anchorList := []anchors.Anchor{{TimeSec: 0, Score: 1.0}}
	windowsOut := windows.Select(anchorList, nil, f, cfg)

	assert.Empty(t, windowsOut)
	for _, w := range windowsOut {
		assert.Greater(t, w.EndSec, w.StartSec)
	}
}

func TestComputeQualityScoreRewardsExcitement(t *testing.T) {
	cfg := pipelineconfig.Default()
	n := 40
	hot := buildFeatures(n, 0.5)
	for i := range hot.Excitement {
		hot.Excitement[i] = 1.0
	}
	cold := buildFeatures(n, 0.5)
	for i := range cold.Excitement {
		cold.Excitement[i] = 0.0
	}

	hotScore, _, _, _, _ := windows.ComputeQualityScore(2, 10, 5, 1.0, hot, 0.5, 0.5, cfg)
	coldScore, _, _, _, _ := windows.ComputeQualityScore(2, 10, 5, 1.0, cold, 0.5, 0.5, cfg)

	assert.Greater(t, hotScore, coldScore)
}
