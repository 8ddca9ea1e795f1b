package featurecache_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highlightlab/clipline/internal/featurecache"
	"github.com/highlightlab/clipline/internal/features"
)

func TestPathForMatchesOnDiskLayout(t *testing.T) {
	got := featurecache.PathFor("/tmp/project")
	assert.Equal(t, filepath.Join("/tmp/project", "features", "features_v2.json"), got)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	f, ok, err := featurecache.Load(filepath.Join(t.TempDir(), "nope.json"), "v2.0.0")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, f)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features", "features_v2.json")
	original := &features.ExtractedFeatures{
		Times:      []float64{0, 0.5, 1.0},
		AudioRMS:   []float64{-40, -35, -20},
		Excitement: []float64{0.1, 0.2, 0.3},
		Duration:   1.0,
		StepSec:    0.5,
		Version:    "v2.0.0",
	}

	require.NoError(t, featurecache.Save(path, original))

	loaded, ok, err := featurecache.Load(path, "v2.0.0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original.Times, loaded.Times)
	assert.Equal(t, original.AudioRMS, loaded.AudioRMS)
	assert.Equal(t, original.Version, loaded.Version)
}

func TestLoadRejectsMismatchedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features", "features_v2.json")
	require.NoError(t, featurecache.Save(path, &features.ExtractedFeatures{Version: "v2.0.0"}))

	loaded, ok, err := featurecache.Load(path, "v3.0.0")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, loaded)
}
