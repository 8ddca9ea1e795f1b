// Package features builds the sampled time-series and sparse event lists
// the rest of the pipeline operates on (spec §4.2). A failing signal is
// treated as absent rather than fatal: the per-signal extraction helpers
// return their error, and Extract logs it and substitutes the signal's
// neutral value (zeros or an empty slice).
package features

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/highlightlab/clipline/internal/decoder"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

// ExtractedFeatures holds every sampled array and sparse event list
// produced by the Feature Extractor. All "times"-aligned arrays share
// length N = Config.NumSamples(Duration). Immutable after construction —
// later stages only ever read from it.
type ExtractedFeatures struct {
	Times        []float64 // time axis, seconds, times[i] = i*StepSec
	AudioRMS     []float64
	AudioRMSZ    []float64
	MotionScore  []float64
	MotionScoreZ []float64
	Excitement   []float64

	SceneCuts        []float64
	FadeTimestamps   []float64
	FreezeTimestamps []float64

	Duration float64
	StepSec  float64
	Version  string
}

// N returns the shared length of every sampled array.
func (f *ExtractedFeatures) N() int { return len(f.Times) }

// Extract runs the full feature extraction pipeline against dec for a
// video of the given duration. Audio, motion, and scene-cut extraction run
// concurrently (each owns its own Decoder subprocess); fade/freeze
// extraction runs alongside them. A single signal's failure degrades that
// signal to its neutral value and is logged — it never aborts extraction
// as a whole, matching spec §4.2's per-signal failure semantics.
func Extract(ctx context.Context, dec decoder.Decoder, duration float64, cfg pipelineconfig.Config, progress func(pct float64, msg string)) (*ExtractedFeatures, error) {
	log := slog.Default()
	n := cfg.NumSamples(duration)
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * cfg.StepSec
	}

	var audioRMS, motionScore []float64
	var sceneCuts, fadeTimestamps, freezeTimestamps []float64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := extractAudioRMS(gctx, dec, duration, cfg, n)
		if err != nil {
			log.Warn("audio extraction degraded to neutral value", "error", err)
			v = make([]float64, n)
		}
		audioRMS = v
		if progress != nil {
			progress(25, "audio features extracted")
		}
		return nil
	})

	g.Go(func() error {
		v, err := extractMotionScore(gctx, dec, duration, cfg, n)
		if err != nil {
			log.Warn("motion extraction degraded to neutral value", "error", err)
			v = make([]float64, n)
		}
		motionScore = v
		if progress != nil {
			progress(50, "motion features extracted")
		}
		return nil
	})

	g.Go(func() error {
		v, err := dec.SceneEvents(gctx, cfg.SceneThreshold)
		if err != nil {
			log.Warn("scene cut detection degraded to empty list", "error", err)
			v = nil
		}
		sceneCuts = sortedDedupPositive(v)
		if progress != nil {
			progress(65, "scene cuts detected")
		}
		return nil
	})

	g.Go(func() error {
		fades, err := dec.BlackEvents(gctx)
		if err != nil {
			log.Warn("fade detection degraded to empty list", "error", err)
			fades = nil
		}
		fadeTimestamps = sortedDedupPositive(fades)

		if duration < 600 {
			freezes, err := dec.FreezeEvents(gctx)
			if err != nil {
				log.Warn("freeze detection degraded to empty list", "error", err)
				freezes = nil
			}
			freezeTimestamps = sortedDedupPositive(freezes)
		}
		if progress != nil {
			progress(75, "transition detection complete")
		}
		return nil
	})

	// Each goroutine already recovers its own decoder error into a
	// neutral value, so g.Wait only ever reports a programmer error.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	audioRMS = truncateOrEdgePad(audioRMS, n)
	motionScore = truncateOrEdgePad(motionScore, n)

	audioRMSZ := zScore(audioRMS)
	motionScoreZ := zScore(motionScore)

	excitement := make([]float64, n)
	for i := range excitement {
		excitement[i] = 0.6*posOrZero(audioRMSZ[i]) + 0.4*posOrZero(motionScoreZ[i])
	}

	if progress != nil {
		progress(80, "feature extraction complete")
	}

	return &ExtractedFeatures{
		Times:            times,
		AudioRMS:         audioRMS,
		AudioRMSZ:        audioRMSZ,
		MotionScore:      motionScore,
		MotionScoreZ:     motionScoreZ,
		Excitement:       excitement,
		SceneCuts:        sceneCuts,
		FadeTimestamps:   fadeTimestamps,
		FreezeTimestamps: freezeTimestamps,
		Duration:         duration,
		StepSec:          cfg.StepSec,
		Version:          cfg.CacheVersion,
	}, nil
}

func posOrZero(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func sortedDedupPositive(in []float64) []float64 {
	seen := make(map[float64]struct{}, len(in))
	out := make([]float64, 0, len(in))
	for _, t := range in {
		if t <= 0 {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

func truncateOrEdgePad(arr []float64, n int) []float64 {
	if len(arr) >= n {
		return arr[:n]
	}
	out := make([]float64, n)
	copy(out, arr)
	var edge float64
	if len(arr) > 0 {
		edge = arr[len(arr)-1]
	}
	for i := len(arr); i < n; i++ {
		out[i] = edge
	}
	return out
}
