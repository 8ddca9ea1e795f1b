// Package featurecache persists ExtractedFeatures to disk so a re-run
// against the same video and Config can skip straight to anchor detection
// (spec §4.3). Writes go through a temp-file-then-rename so a crash
// mid-write never leaves a corrupt cache entry behind, the same pattern
// the teacher uses for its own on-disk config updates.
package featurecache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineerr"
)

type onDisk struct {
	Version          string    `json:"version"`
	Duration         float64   `json:"duration"`
	StepSec          float64   `json:"step_sec"`
	Times            []float64 `json:"times"`
	AudioRMS         []float64 `json:"audio_rms"`
	AudioRMSZ        []float64 `json:"audio_rms_z"`
	MotionScore      []float64 `json:"motion_score"`
	MotionScoreZ     []float64 `json:"motion_score_z"`
	Excitement       []float64 `json:"excitement"`
	SceneCuts        []float64 `json:"scene_cuts"`
	FadeTimestamps   []float64 `json:"fade_timestamps"`
	FreezeTimestamps []float64 `json:"freeze_timestamps"`
}

// PathFor returns the project-scoped cache file path, per spec §6's
// on-disk layout. Validity (not just presence) is gated on the embedded
// version field matching the caller's current cache_version.
func PathFor(projectDir string) string {
	return filepath.Join(projectDir, "features", "features_v2.json")
}

// Load reads a cached feature set from path. A missing file, like a
// version mismatch, is reported as (nil, false, nil) — not an error —
// since "no cache yet" is the expected steady state on a first run.
func Load(path, expectedVersion string) (*features.ExtractedFeatures, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pipelineerr.CacheErr("featurecache.load", err)
	}

	var d onDisk
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, false, pipelineerr.CacheErr("featurecache.load", err)
	}
	if d.Version != expectedVersion {
		return nil, false, nil
	}

	return &features.ExtractedFeatures{
		Times: d.Times, AudioRMS: d.AudioRMS, AudioRMSZ: d.AudioRMSZ,
		MotionScore: d.MotionScore, MotionScoreZ: d.MotionScoreZ, Excitement: d.Excitement,
		SceneCuts: d.SceneCuts, FadeTimestamps: d.FadeTimestamps, FreezeTimestamps: d.FreezeTimestamps,
		Duration: d.Duration, StepSec: d.StepSec, Version: d.Version,
	}, true, nil
}

// Save atomically writes f to path via a same-directory temp file plus
// rename.
func Save(path string, f *features.ExtractedFeatures) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pipelineerr.CacheErr("featurecache.save", err)
	}

	d := onDisk{
		Version: f.Version, Duration: f.Duration, StepSec: f.StepSec, Times: f.Times,
		AudioRMS: f.AudioRMS, AudioRMSZ: f.AudioRMSZ, MotionScore: f.MotionScore,
		MotionScoreZ: f.MotionScoreZ, Excitement: f.Excitement, SceneCuts: f.SceneCuts,
		FadeTimestamps: f.FadeTimestamps, FreezeTimestamps: f.FreezeTimestamps,
	}
	data, err := json.Marshal(d)
	if err != nil {
		return pipelineerr.CacheErr("featurecache.save", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "features.*.tmp")
	if err != nil {
		return pipelineerr.CacheErr("featurecache.save", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return pipelineerr.CacheErr("featurecache.save", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return pipelineerr.CacheErr("featurecache.save", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return pipelineerr.CacheErr("featurecache.save", err)
	}
	return nil
}
