// Package windows snaps each anchor to a start/end boundary pair, enforces
// duration limits, and scores the resulting clip (spec §4.6).
package windows

import (
	"log/slog"

	"github.com/highlightlab/clipline/internal/anchors"
	"github.com/highlightlab/clipline/internal/boundaries"
	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

// ClipWindow is a fully-scored candidate clip.
type ClipWindow struct {
	StartSec      float64
	EndSec        float64
	AnchorTimeSec float64
	AnchorScore   float64

	QualityScore    float64
	ExcitementScore float64
	DeadTimePenalty float64
	BoundaryQuality float64
	NarrativeScore  float64

	StartBoundaryScore float64
	EndBoundaryScore   float64
	StartReason        string
	EndReason          string
}

func (w ClipWindow) Duration() float64 { return w.EndSec - w.StartSec }

func selectStartBoundary(anchorTime float64, cands []boundaries.Candidate, cfg pipelineconfig.Config) (start, score float64, reason string) {
	searchStart := max0(anchorTime - cfg.PreMax)
	searchEnd := max0(anchorTime - cfg.PreMin)

	if searchStart >= searchEnd {
		return max0(anchorTime - cfg.FallbackPre), 0, "fallback_offset"
	}

	if best, ok := boundaries.BestInRange(cands, searchStart, searchEnd); ok {
		return best.TimeSec, best.Score, "boundary_snap"
	}
	return max0(anchorTime - cfg.FallbackPre), 0, "fallback_offset"
}

func selectEndBoundary(anchorTime, startTime float64, cands []boundaries.Candidate, f *features.ExtractedFeatures, cfg pipelineconfig.Config, videoDuration float64) (end, score float64, reason string) {
	maxEnd := minOf(videoDuration, startTime+cfg.MaxClipSeconds)

	searchStart := anchorTime + cfg.PostMin
	searchEnd := minOf(maxEnd, anchorTime+cfg.PostMax)

	fallback := func() (float64, float64, string) {
		e := minOf(videoDuration, anchorTime+cfg.FallbackPost)
		e = minOf(e, startTime+cfg.MaxClipSeconds)
		return e, 0, "fallback_offset"
	}

	if searchStart >= searchEnd {
		return fallback()
	}

	candidates := boundaries.InRange(cands, searchStart, searchEnd)
	if len(candidates) == 0 {
		return fallback()
	}

	bestIdx := 0
	bestPref := endPreferenceScore(candidates[0], anchorTime, f)
	for i := 1; i < len(candidates); i++ {
		pref := endPreferenceScore(candidates[i], anchorTime, f)
		if pref > bestPref {
			bestPref = pref
			bestIdx = i
		}
	}
	best := candidates[bestIdx]
	return best.TimeSec, best.Score, "boundary_snap"
}

func endPreferenceScore(b boundaries.Candidate, anchorTime float64, f *features.ExtractedFeatures) float64 {
	lookbackStart := maxOf(anchorTime, b.TimeSec-3.0)
	excitement := anchors.ExcitementIntegral(f, lookbackStart, b.TimeSec)
	bonus := minOf(0.2, excitement*0.1)
	return b.Score + bonus
}

// ComputeQualityScore scores a candidate window: a weighted blend of
// excitement density, boundary quality, and narrative shape (anchor
// sitting away from both edges), penalized for dead time and scaled by
// the originating anchor's own score.
func ComputeQualityScore(startSec, endSec, anchorTimeSec, anchorScore float64, f *features.ExtractedFeatures, startBoundaryScore, endBoundaryScore float64, cfg pipelineconfig.Config) (total, excitementScore, deadTimePenalty, boundaryQuality, narrativeScore float64) {
	duration := endSec - startSec

	excitement := anchors.ExcitementIntegral(f, startSec, endSec)
	excitementScore = excitement / maxOf(1, duration)

	startIdx := int(startSec / f.StepSec)
	endIdx := int(endSec / f.StepSec)
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx++
	if endIdx > len(f.Excitement) {
		endIdx = len(f.Excitement)
	}

	if endIdx > startIdx {
		window := f.Excitement[startIdx:endIdx]
		lowCount := 0
		for _, v := range window {
			if v < 0.1 {
				lowCount++
			}
		}
		lowActivityRatio := float64(lowCount) / float64(len(window))
		deadTimePenalty = lowActivityRatio * cfg.QualityWDeadTimePenalty
	}

	boundaryQuality = (startBoundaryScore + endBoundaryScore) / 2

	offsetFromStart := anchorTimeSec - startSec
	offsetFromEnd := endSec - anchorTimeSec
	minOffset := minOf(offsetFromStart, offsetFromEnd)

	idealOffset := duration * 0.2
	if minOffset < idealOffset {
		narrativeScore = minOffset / idealOffset
	} else {
		narrativeScore = 1.0
	}

	total = cfg.QualityWExcitement*excitementScore +
		cfg.QualityWBoundaryQuality*boundaryQuality +
		cfg.QualityWNarrative*narrativeScore -
		deadTimePenalty

	clampedAnchorScore := anchorScore
	if clampedAnchorScore > 1.0 {
		clampedAnchorScore = 1.0
	}
	total *= 0.5 + 0.5*clampedAnchorScore
	return
}

// Select builds a ClipWindow for every anchor, snapping start/end to the
// best nearby boundary, enforcing Min/MaxClipSeconds, and scoring the
// result. Anchors whose constraint-adjusted window is still degenerate
// (end <= start, or shorter than MinClipSeconds because the video itself
// is) are dropped and logged rather than propagated.
func Select(anchorList []anchors.Anchor, cands []boundaries.Candidate, f *features.ExtractedFeatures, cfg pipelineconfig.Config) []ClipWindow {
	log := slog.Default()
	duration := f.Duration
	var result []ClipWindow

	for _, a := range anchorList {
		start, startScore, startReason := selectStartBoundary(a.TimeSec, cands, cfg)
		end, endScore, endReason := selectEndBoundary(a.TimeSec, start, cands, f, cfg, duration)

		clipDuration := end - start

		if clipDuration < cfg.MinClipSeconds {
			needed := cfg.MinClipSeconds - clipDuration
			end = minOf(duration, end+needed/2)
			start = max0(start - needed/2)
			clipDuration = end - start

			if clipDuration < cfg.MinClipSeconds {
				if end < duration {
					end = minOf(duration, start+cfg.MinClipSeconds)
				} else {
					start = max0(end - cfg.MinClipSeconds)
				}
			}
		}

		if clipDuration > cfg.MaxClipSeconds {
			end = start + cfg.MaxClipSeconds
			endReason = "hard_cut_max_duration"
		}

		if end <= start || end-start < cfg.MinClipSeconds-1e-9 {
			log.Warn("invalid window for anchor, skipping", "anchor_time_sec", a.TimeSec, "duration", end-start)
			continue
		}

		quality, excitement, deadPenalty, boundaryQual, narrative := ComputeQualityScore(
			start, end, a.TimeSec, a.Score, f, startScore, endScore, cfg)

		result = append(result, ClipWindow{
			StartSec:           start,
			EndSec:             end,
			AnchorTimeSec:      a.TimeSec,
			AnchorScore:        a.Score,
			QualityScore:       quality,
			ExcitementScore:    excitement,
			DeadTimePenalty:    deadPenalty,
			BoundaryQuality:    boundaryQual,
			NarrativeScore:     narrative,
			StartBoundaryScore: startScore,
			EndBoundaryScore:   endScore,
			StartReason:        startReason,
			EndReason:          endReason,
		})
	}
	return result
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
