// Package anchors detects highlight anchor points — the candidate "center"
// of each interesting moment the rest of the pipeline builds a clip window
// around (spec §4.4).
package anchors

import (
	"math"
	"sort"

	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

// Anchor is a single detected highlight moment.
type Anchor struct {
	TimeSec float64
	Score   float64
	AudioZ  float64
	MotionZ float64
	Reason  string // "excitement_peak", "audio_peak", or "action_sequence"
}

type peak struct {
	time  float64
	value float64
	idx   int
}

// findLocalMaxima returns every index that is the maximum of its own
// minDistanceSec window and exceeds threshold, then greedily suppresses
// lower-scoring peaks within minDistanceSec of an already-selected one —
// a direct port of the reference implementation's two-pass
// scan-then-non-max-suppress approach.
func findLocalMaxima(arr, times []float64, minDistanceSec, stepSec, threshold float64) []peak {
	minDistanceSamples := int(minDistanceSec / stepSec)

	var candidates []peak
	for i := 1; i < len(arr)-1; i++ {
		if arr[i] <= threshold {
			continue
		}
		start := i - minDistanceSamples
		if start < 0 {
			start = 0
		}
		end := i + minDistanceSamples + 1
		if end > len(arr) {
			end = len(arr)
		}
		if arr[i] == maxOf(arr[start:end]) {
			candidates = append(candidates, peak{times[i], arr[i], i})
		}
	}

	sort.Slice(candidates, func(a, b int) bool { return candidates[a].value > candidates[b].value })

	var selected []peak
	for _, c := range candidates {
		tooClose := false
		for _, s := range selected {
			if math.Abs(c.time-s.time) < minDistanceSec {
				tooClose = true
				break
			}
		}
		if !tooClose {
			selected = append(selected, c)
		}
	}
	return selected
}

func maxOf(arr []float64) float64 {
	m := arr[0]
	for _, v := range arr[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Detect runs all three detection rounds — excitement peaks, audio-only
// peaks, and motion/scene-cut action sequences — in that priority order,
// rounds 2 and 3 skipping any time already within AnchorSuppressionWindowSec
// of an anchor accepted by an earlier round or earlier in the same round,
// then caps the result to an adaptive per-minute budget.
func Detect(f *features.ExtractedFeatures, cfg pipelineconfig.Config) []Anchor {
	times := f.Times
	stepSec := f.StepSec
	duration := f.Duration

	maxAnchors := int(duration / 60 * cfg.MaxAnchorsPerMinute)
	if maxAnchors < 10 {
		maxAnchors = 10
	}
	if cap := cfg.TargetClipCountSoft * 2; maxAnchors > cap {
		maxAnchors = cap
	}

	var result []Anchor

	excitementPeaks := findLocalMaxima(f.Excitement, times, cfg.AnchorSuppressionWindowSec, stepSec, cfg.AnchorExcitementThreshold)
	for _, p := range excitementPeaks {
		result = append(result, Anchor{
			TimeSec: p.time,
			Score:   p.value,
			AudioZ:  f.AudioRMSZ[p.idx],
			MotionZ: f.MotionScoreZ[p.idx],
			Reason:  "excitement_peak",
		})
	}

	existing := make(map[float64]struct{}, len(result))
	for _, a := range result {
		existing[a.TimeSec] = struct{}{}
	}
	closeToExisting := func(t float64) bool {
		for et := range existing {
			if math.Abs(t-et) < cfg.AnchorSuppressionWindowSec {
				return true
			}
		}
		return false
	}

	audioPeaks := findLocalMaxima(f.AudioRMSZ, times, cfg.AnchorSuppressionWindowSec, stepSec, 1.5)
	for _, p := range audioPeaks {
		if closeToExisting(p.time) {
			continue
		}
		result = append(result, Anchor{
			TimeSec: p.time,
			Score:   p.value * 0.7,
			AudioZ:  f.AudioRMSZ[p.idx],
			MotionZ: f.MotionScoreZ[p.idx],
			Reason:  "audio_peak",
		})
		existing[p.time] = struct{}{}
	}

	if len(f.SceneCuts) > 0 {
		cutDensity := make([]float64, len(times))
		const windowSec = 5.0
		for _, cutTime := range f.SceneCuts {
			for i, t := range times {
				if math.Abs(t-cutTime) < windowSec {
					cutDensity[i] += 1.0 / (1.0 + math.Abs(t-cutTime))
				}
			}
		}
		actionScore := make([]float64, len(times))
		for i := range actionScore {
			actionScore[i] = f.MotionScoreZ[i] * (1 + cutDensity[i]*0.5)
		}

		actionPeaks := findLocalMaxima(actionScore, times, cfg.AnchorSuppressionWindowSec, stepSec, 1.0)
		for _, p := range actionPeaks {
			if closeToExisting(p.time) {
				continue
			}
			result = append(result, Anchor{
				TimeSec: p.time,
				Score:   p.value * 0.6,
				AudioZ:  f.AudioRMSZ[p.idx],
				MotionZ: f.MotionScoreZ[p.idx],
				Reason:  "action_sequence",
			})
			existing[p.time] = struct{}{}
		}
	}

	sort.Slice(result, func(a, b int) bool { return result[a].Score > result[b].Score })
	if len(result) > maxAnchors {
		result = result[:maxAnchors]
	}
	sort.Slice(result, func(a, b int) bool { return result[a].TimeSec < result[b].TimeSec })

	return result
}

// ExcitementAt returns the excitement value at the sample at or before
// timeSec (index floor(timeSec/StepSec)), clamped to the array bounds.
func ExcitementAt(f *features.ExtractedFeatures, timeSec float64) float64 {
	idx := int(timeSec / f.StepSec)
	if idx < 0 {
		idx = 0
	}
	if idx > len(f.Excitement)-1 {
		idx = len(f.Excitement) - 1
	}
	return f.Excitement[idx]
}

// ExcitementIntegral sums excitement*StepSec over [startSec, endSec].
func ExcitementIntegral(f *features.ExtractedFeatures, startSec, endSec float64) float64 {
	startIdx := int(startSec / f.StepSec)
	endIdx := int(endSec/f.StepSec) + 1
	if startIdx < 0 {
		startIdx = 0
	}
	if endIdx > len(f.Excitement) {
		endIdx = len(f.Excitement)
	}
	if startIdx >= endIdx {
		return 0
	}
	sum := 0.0
	for _, v := range f.Excitement[startIdx:endIdx] {
		sum += v
	}
	return sum * f.StepSec
}
