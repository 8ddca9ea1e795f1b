// Package debugartifact writes the per-run diagnostic JSON (and optional
// timeline PNG) that explains every decision the pipeline made (spec
// §4.8). Writing a debug artifact never aborts a run: both functions
// return their error to the caller, who is expected to log it and treat
// it as non-fatal.
package debugartifact

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/highlightlab/clipline/internal/anchors"
	"github.com/highlightlab/clipline/internal/boundaries"
	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
	"github.com/highlightlab/clipline/internal/pipelineerr"
	"github.com/highlightlab/clipline/internal/postfilter"
	"github.com/highlightlab/clipline/internal/windows"
)

type statRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

func statsOf(arr []float64) statRange {
	if len(arr) == 0 {
		return statRange{}
	}
	min, max, sum := arr[0], arr[0], 0.0
	for _, v := range arr {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	return statRange{Min: min, Max: max, Mean: sum / float64(len(arr))}
}

type clipDict struct {
	StartSec           float64 `json:"start_sec"`
	EndSec             float64 `json:"end_sec"`
	Duration           float64 `json:"duration"`
	AnchorTimeSec      float64 `json:"anchor_time_sec"`
	AnchorScore        float64 `json:"anchor_score"`
	QualityScore       float64 `json:"quality_score"`
	ExcitementScore    float64 `json:"excitement_score"`
	DeadTimePenalty    float64 `json:"dead_time_penalty"`
	BoundaryQuality    float64 `json:"boundary_quality"`
	NarrativeScore     float64 `json:"narrative_score"`
	StartBoundaryScore float64 `json:"start_boundary_score"`
	EndBoundaryScore   float64 `json:"end_boundary_score"`
	StartReason        string  `json:"start_reason"`
	EndReason          string  `json:"end_reason"`
}

func toClipDict(w windows.ClipWindow) clipDict {
	return clipDict{
		StartSec: w.StartSec, EndSec: w.EndSec, Duration: w.Duration(),
		AnchorTimeSec: w.AnchorTimeSec, AnchorScore: w.AnchorScore,
		QualityScore: w.QualityScore, ExcitementScore: w.ExcitementScore,
		DeadTimePenalty: w.DeadTimePenalty, BoundaryQuality: w.BoundaryQuality,
		NarrativeScore: w.NarrativeScore, StartBoundaryScore: w.StartBoundaryScore,
		EndBoundaryScore: w.EndBoundaryScore, StartReason: w.StartReason, EndReason: w.EndReason,
	}
}

type anchorDict struct {
	TimeSec float64 `json:"time_sec"`
	Score   float64 `json:"score"`
	AudioZ  float64 `json:"audio_z"`
	MotionZ float64 `json:"motion_z"`
	Reason  string  `json:"reason"`
}

type boundaryDict struct {
	TimeSec              float64 `json:"time_sec"`
	Score                float64 `json:"score"`
	SceneStrength        float64 `json:"scene_strength"`
	AudioDipStrength     float64 `json:"audio_dip_strength"`
	FadeStrength         float64 `json:"fade_strength"`
	MotionValleyStrength float64 `json:"motion_valley_strength"`
}

type decisionDict struct {
	ClipIndex        int    `json:"clip_index"`
	Action           string `json:"action"`
	Reason           string `json:"reason"`
	RelatedClipIndex *int   `json:"related_clip_index"`
}

func toDecisionDicts(in []postfilter.FilterDecision) []decisionDict {
	out := make([]decisionDict, len(in))
	for i, d := range in {
		out[i] = decisionDict{ClipIndex: d.ClipIndex, Action: d.Action, Reason: d.Reason, RelatedClipIndex: d.RelatedClipIndex}
	}
	return out
}

// Document is the exact on-disk schema written by WriteDebugJSON.
type Document struct {
	GeneratedAt     string        `json:"generated_at"`
	PipelineVersion string        `json:"pipeline_version"`
	Config          interface{}   `json:"config"`
	FeaturesSummary featSummary   `json:"features_summary"`
	SceneCuts       []float64     `json:"scene_cuts"`
	Anchors         []anchorDict  `json:"anchors"`
	TopBoundaries   []boundaryDict `json:"top_boundaries"`
	CandidateWindows []clipDict   `json:"candidate_windows"`
	FilterReport    filterReport  `json:"filter_report"`
	FinalClips      []clipDict    `json:"final_clips"`
	Statistics      statistics    `json:"statistics"`
}

type featSummary struct {
	Duration            float64   `json:"duration"`
	StepSec             float64   `json:"step_sec"`
	NumSamples          int       `json:"num_samples"`
	SceneCutsCount       int       `json:"scene_cuts_count"`
	FadeTimestampsCount  int       `json:"fade_timestamps_count"`
	FreezeTimestampsCount int      `json:"freeze_timestamps_count"`
	AudioRMSStats       statRange `json:"audio_rms_stats"`
	MotionStats         statRange `json:"motion_stats"`
}

type filterReport struct {
	Overlap   []decisionDict `json:"overlap"`
	Boring    []decisionDict `json:"boring"`
	Duplicate []decisionDict `json:"duplicate"`
	Quality   []decisionDict `json:"quality"`
}

type statistics struct {
	TotalAnchors     int     `json:"total_anchors"`
	TotalBoundaries  int     `json:"total_boundaries"`
	CandidateWindows int     `json:"candidate_windows"`
	FinalClips       int     `json:"final_clips"`
	AvgClipDuration  float64 `json:"avg_clip_duration"`
	AvgQualityScore  float64 `json:"avg_quality_score"`
}

// WriteDebugJSON writes the comprehensive diagnostic document to
// outputPath, creating parent directories as needed.
func WriteDebugJSON(
	outputPath string,
	cfg pipelineconfig.Config,
	f *features.ExtractedFeatures,
	anchorList []anchors.Anchor,
	boundaryList []boundaries.Candidate,
	candidateWindows []windows.ClipWindow,
	report postfilter.Report,
	finalClips []windows.ClipWindow,
) error {
	log := slog.Default()

	sceneCuts := f.SceneCuts
	if len(sceneCuts) > 100 {
		sceneCuts = sceneCuts[:100]
	}

	sortedBoundaries := make([]boundaries.Candidate, len(boundaryList))
	copy(sortedBoundaries, boundaryList)
	sort.Slice(sortedBoundaries, func(a, b int) bool { return sortedBoundaries[a].Score > sortedBoundaries[b].Score })
	if len(sortedBoundaries) > 100 {
		sortedBoundaries = sortedBoundaries[:100]
	}

	topBoundaries := make([]boundaryDict, len(sortedBoundaries))
	for i, b := range sortedBoundaries {
		topBoundaries[i] = boundaryDict{
			TimeSec: b.TimeSec, Score: b.Score, SceneStrength: b.SceneStrength,
			AudioDipStrength: b.AudioDipStrength, FadeStrength: b.FadeStrength,
			MotionValleyStrength: b.MotionValleyStrength,
		}
	}

	anchorDicts := make([]anchorDict, len(anchorList))
	for i, a := range anchorList {
		anchorDicts[i] = anchorDict{TimeSec: a.TimeSec, Score: a.Score, AudioZ: a.AudioZ, MotionZ: a.MotionZ, Reason: a.Reason}
	}

	candidateDicts := make([]clipDict, len(candidateWindows))
	for i, w := range candidateWindows {
		candidateDicts[i] = toClipDict(w)
	}

	finalDicts := make([]clipDict, len(finalClips))
	var durationSum, qualitySum float64
	for i, w := range finalClips {
		finalDicts[i] = toClipDict(w)
		durationSum += w.Duration()
		qualitySum += w.QualityScore
	}
	var avgDuration, avgQuality float64
	if len(finalClips) > 0 {
		avgDuration = durationSum / float64(len(finalClips))
		avgQuality = qualitySum / float64(len(finalClips))
	}

	doc := Document{
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		PipelineVersion: "v2",
		Config:          cfg,
		FeaturesSummary: featSummary{
			Duration: f.Duration, StepSec: f.StepSec, NumSamples: f.N(),
			SceneCutsCount: len(f.SceneCuts), FadeTimestampsCount: len(f.FadeTimestamps),
			FreezeTimestampsCount: len(f.FreezeTimestamps),
			AudioRMSStats: statsOf(f.AudioRMS), MotionStats: statsOf(f.MotionScore),
		},
		SceneCuts:        sceneCuts,
		Anchors:          anchorDicts,
		TopBoundaries:    topBoundaries,
		CandidateWindows: candidateDicts,
		FilterReport: filterReport{
			Overlap:   toDecisionDicts(report.Overlap),
			Boring:    toDecisionDicts(report.Boring),
			Duplicate: toDecisionDicts(report.Duplicate),
			Quality:   toDecisionDicts(report.Quality),
		},
		FinalClips: finalDicts,
		Statistics: statistics{
			TotalAnchors: len(anchorList), TotalBoundaries: len(boundaryList),
			CandidateWindows: len(candidateWindows), FinalClips: len(finalClips),
			AvgClipDuration: avgDuration, AvgQualityScore: avgQuality,
		},
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_json", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_json", err)
	}

	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_json", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return pipelineerr.DebugWriteErr("debugartifact.write_json", err)
	}

	log.Info("wrote debug JSON", "path", outputPath)
	return nil
}
