package boundaries_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highlightlab/clipline/internal/boundaries"
	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

func buildFeatures(n int, stepSec float64, sceneCuts []float64) *features.ExtractedFeatures {
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * stepSec
	}
	return &features.ExtractedFeatures{
		Times:        times,
		AudioRMSZ:    make([]float64, n),
		MotionScoreZ: make([]float64, n),
		SceneCuts:    sceneCuts,
		Duration:     float64(n-1) * stepSec,
		StepSec:      stepSec,
	}
}

func TestComputeProducesCandidateNearSceneCut(t *testing.T) {
	cfg := pipelineconfig.Default()
	f := buildFeatures(40, 0.5, []float64{10.0})

	candidates := boundaries.Compute(f, cfg)
	require.NotEmpty(t, candidates)

	found := false
	for _, c := range candidates {
		if c.TimeSec == 10.0 {
			found = true
			assert.Greater(t, c.SceneStrength, 0.0)
		}
	}
	assert.True(t, found, "expected a candidate at the scene cut time, got %+v", candidates)
}

func TestComputeNoSignalsYieldsNoCandidates(t *testing.T) {
	cfg := pipelineconfig.Default()
	f := buildFeatures(20, 0.5, nil)

	candidates := boundaries.Compute(f, cfg)
	assert.Empty(t, candidates)
}

func TestInRangeFiltersByWindow(t *testing.T) {
	cands := []boundaries.Candidate{
		{TimeSec: 1, Score: 0.1},
		{TimeSec: 5, Score: 0.9},
		{TimeSec: 9, Score: 0.2},
	}
	got := boundaries.InRange(cands, 2, 8)
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0].TimeSec)
}

func TestBestInRangePicksHighestScore(t *testing.T) {
	cands := []boundaries.Candidate{
		{TimeSec: 1, Score: 0.1},
		{TimeSec: 2, Score: 0.9},
		{TimeSec: 3, Score: 0.5},
	}
	best, ok := boundaries.BestInRange(cands, 0, 10)
	require.True(t, ok)
	assert.Equal(t, 2.0, best.TimeSec)
}

func TestBestInRangeEmptyReturnsFalse(t *testing.T) {
	_, ok := boundaries.BestInRange(nil, 0, 10)
	assert.False(t, ok)
}
