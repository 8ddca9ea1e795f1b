// Package boundaries scores every sampled time point on how good a clip
// start/end point it would make, combining scene-cut, fade, audio-dip and
// motion-valley proximity into one candidate list (spec §4.5).
package boundaries

import (
	"math"

	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

// Candidate is a single scored boundary point.
type Candidate struct {
	TimeSec              float64
	Score                float64
	SceneStrength        float64
	AudioDipStrength     float64
	FadeStrength         float64
	MotionValleyStrength float64
}

type valley struct {
	time     float64
	strength float64
}

// findValleys locates strict local minima of arr that are also the minimum
// of their own minSpacingSec window, converting each into a "strength"
// value (only negative z-scores count — a valley above the mean isn't a
// quiet moment).
func findValleys(arr, times []float64, stepSec, minSpacingSec float64) []valley {
	minSpacingSamples := int(minSpacingSec / stepSec)
	if minSpacingSamples < 1 {
		minSpacingSamples = 1
	}

	var out []valley
	for i := 1; i < len(arr)-1; i++ {
		if !(arr[i] < arr[i-1] && arr[i] < arr[i+1]) {
			continue
		}
		start := i - minSpacingSamples
		if start < 0 {
			start = 0
		}
		end := i + minSpacingSamples + 1
		if end > len(arr) {
			end = len(arr)
		}
		if arr[i] == minOf(arr[start:end]) {
			strength := 0.0
			if arr[i] < 0 {
				strength = -arr[i]
			}
			out = append(out, valley{times[i], strength})
		}
	}
	return out
}

func minOf(arr []float64) float64 {
	m := arr[0]
	for _, v := range arr[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func proximityScores(times, events []float64, decaySec float64) []float64 {
	scores := make([]float64, len(times))
	for _, eventTime := range events {
		for i, t := range times {
			proximity := math.Exp(-math.Abs(t-eventTime) / decaySec)
			if proximity > scores[i] {
				scores[i] = proximity
			}
		}
	}
	return scores
}

func spreadValleyScores(times []float64, valleys []valley) []float64 {
	scores := make([]float64, len(times))
	for _, v := range valleys {
		for i, t := range times {
			if math.Abs(t-v.time) >= 1.0 {
				continue
			}
			decay := math.Exp(-math.Abs(t-v.time) / 0.3)
			if s := v.strength * decay; s > scores[i] {
				scores[i] = s
			}
		}
	}
	return scores
}

func normalize(arr []float64) []float64 {
	out := make([]float64, len(arr))
	maxVal := arr[0]
	for _, v := range arr {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal <= 0 {
		copy(out, arr)
		return out
	}
	for i, v := range arr {
		out[i] = v / maxVal
	}
	return out
}

// Compute scores every sampled time point in f and returns every point
// whose final (post-spacing-penalty) score clears
// cfg.BoundaryCandidateThreshold.
func Compute(f *features.ExtractedFeatures, cfg pipelineconfig.Config) []Candidate {
	times := f.Times
	stepSec := f.StepSec

	sceneScores := normalize(proximityScores(times, f.SceneCuts, 0.5))
	fadeScores := normalize(proximityScores(times, f.FadeTimestamps, 0.5))

	audioValleys := findValleys(f.AudioRMSZ, times, stepSec, cfg.BoundaryMinSpacingSec)
	audioValleyScores := normalize(spreadValleyScores(times, audioValleys))

	motionValleys := findValleys(f.MotionScoreZ, times, stepSec, cfg.BoundaryMinSpacingSec)
	motionValleyScores := normalize(spreadValleyScores(times, motionValleys))

	combined := make([]float64, len(times))
	for i := range combined {
		combined[i] = cfg.BoundaryWScene*sceneScores[i] +
			cfg.BoundaryWAudioDip*audioValleyScores[i] +
			cfg.BoundaryWFade*fadeScores[i] +
			cfg.BoundaryWMotionValley*motionValleyScores[i]
	}

	spacingSamples := int(cfg.BoundaryMinSpacingSec / stepSec)
	spacingPenalty := make([]float64, len(times))
	for i := range times {
		start := i - spacingSamples
		if start < 0 {
			start = 0
		}
		end := i + spacingSamples + 1
		if end > len(times) {
			end = len(times)
		}
		for j := start; j < end; j++ {
			if j == i || combined[j] <= combined[i] {
				continue
			}
			dist := math.Abs(times[i] - times[j])
			if dist < cfg.BoundaryMinSpacingSec {
				spacingPenalty[i] += 0.3 * (1 - dist/cfg.BoundaryMinSpacingSec)
			}
		}
	}

	var candidates []Candidate
	for i, t := range times {
		final := combined[i] - spacingPenalty[i]
		if final < 0 {
			final = 0
		}
		if final >= cfg.BoundaryCandidateThreshold {
			candidates = append(candidates, Candidate{
				TimeSec:              t,
				Score:                final,
				SceneStrength:        sceneScores[i],
				AudioDipStrength:     audioValleyScores[i],
				FadeStrength:         fadeScores[i],
				MotionValleyStrength: motionValleyScores[i],
			})
		}
	}
	return candidates
}

// InRange returns every candidate whose TimeSec falls within [startSec, endSec].
func InRange(candidates []Candidate, startSec, endSec float64) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.TimeSec >= startSec && c.TimeSec <= endSec {
			out = append(out, c)
		}
	}
	return out
}

// BestInRange returns the highest-scoring candidate in [startSec, endSec],
// or false if none exist.
func BestInRange(candidates []Candidate, startSec, endSec float64) (Candidate, bool) {
	inRange := InRange(candidates, startSec, endSec)
	if len(inRange) == 0 {
		return Candidate{}, false
	}
	best := inRange[0]
	for _, c := range inRange[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}
