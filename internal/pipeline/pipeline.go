// Package pipeline orchestrates a single end-to-end segmentation run:
// probe, extract (or load cached) features, detect anchors, score
// boundaries, select windows, post-filter, and optionally write debug
// artifacts (spec §4.9). Every stage reports a progress percentage on
// the fixed schedule the spec defines, so a caller can drive a progress
// bar without understanding pipeline internals.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/highlightlab/clipline/internal/anchors"
	"github.com/highlightlab/clipline/internal/boundaries"
	"github.com/highlightlab/clipline/internal/debugartifact"
	"github.com/highlightlab/clipline/internal/decoder"
	"github.com/highlightlab/clipline/internal/featurecache"
	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/logging"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
	"github.com/highlightlab/clipline/internal/pipelineerr"
	"github.com/highlightlab/clipline/internal/pipelinemetrics"
	"github.com/highlightlab/clipline/internal/postfilter"
	"github.com/highlightlab/clipline/internal/windows"
)

// ProgressFunc receives a percentage in [0,100] and a short human-readable
// message at each stage boundary. The Runner calls it synchronously, never
// concurrently, with non-decreasing percentages; the feature-extraction
// calls come from the extraction goroutines rather than the goroutine that
// called Run, so a UI-backed implementation should not block.
type ProgressFunc func(pct float64, message string)

// Request describes a single video to segment.
type Request struct {
	VideoPath  string
	ProjectDir string
	Config     pipelineconfig.Config
	Progress   ProgressFunc
}

// Result is everything the Runner produced for one video.
type Result struct {
	RunID            string
	Features         *features.ExtractedFeatures
	Anchors          []anchors.Anchor
	Boundaries       []boundaries.Candidate
	CandidateWindows []windows.ClipWindow
	FilterReport     postfilter.Report
	FinalClips       []windows.ClipWindow
	DebugJSONPath    string
	DebugPlotPath    string
}

// ClipResult is the Host-facing shape of a final clip (spec §6) — a
// narrower view than windows.ClipWindow, which also carries internal
// scoring fields the host has no use for.
type ClipResult struct {
	StartTime        float64 `json:"start_time"`
	EndTime          float64 `json:"end_time"`
	Duration         float64 `json:"duration"`
	QualityScore     float64 `json:"quality_score,omitempty"`
	AnchorTimeSec    float64 `json:"anchor_time_sec,omitempty"`
	GenerationVersion string `json:"generation_version"`
}

// Clips returns the final, time-sorted clip list in the Host-facing
// ClipResult shape — the Go analogue of the reference implementation's
// to_clip_list(), for callers that only want the clip list and none of
// the diagnostic detail.
func (r *Result) Clips() []ClipResult {
	out := make([]ClipResult, len(r.FinalClips))
	for i, w := range r.FinalClips {
		out[i] = ClipResult{
			StartTime: w.StartSec, EndTime: w.EndSec, Duration: w.Duration(),
			QualityScore: w.QualityScore, AnchorTimeSec: w.AnchorTimeSec,
			GenerationVersion: "v2",
		}
	}
	return out
}

// Runner executes the pipeline against a Decoder Factory.
type Runner struct {
	Factory decoder.Factory
	Metrics *pipelinemetrics.Collector
}

// New returns a Runner backed by factory. If metrics is nil, the
// collector from pipelinemetrics.Get is used, which records nothing until
// pipelinemetrics.Init has run.
func New(factory decoder.Factory, metrics *pipelinemetrics.Collector) *Runner {
	if metrics == nil {
		metrics = pipelinemetrics.Get()
	}
	return &Runner{Factory: factory, Metrics: metrics}
}

func (r *Runner) report(p ProgressFunc, pct float64, msg string) {
	if p != nil {
		p(pct, msg)
	}
}

func stageTimer(r *Runner, stage string) func() {
	start := time.Now()
	return func() { r.Metrics.ObserveStage(stage, time.Since(start)) }
}

// Run executes the full pipeline for req, honoring ctx cancellation
// between every stage. A cancellation mid-run surfaces as a
// *pipelineerr.Error of kind KindCancelled and a failed probe as its
// KindFatalDecoder error; every other failure mode degrades gracefully
// per spec §7 rather than aborting.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.ForService("pipeline").With("run_id", runID, "video", req.VideoPath)
	cfg := req.Config

	checkCancel := func() error {
		select {
		case <-ctx.Done():
			return pipelineerr.CancelledErr("pipeline.run", ctx.Err())
		default:
			return nil
		}
	}

	r.report(req.Progress, 0, "starting")
	if err := checkCancel(); err != nil {
		r.Metrics.RunFinished("cancelled")
		return nil, err
	}

	dec := r.Factory.Open(req.VideoPath)
	probe, err := dec.Probe(ctx)
	if err != nil {
		r.Metrics.RunFinished("error")
		return nil, err
	}
	r.report(req.Progress, 5, "extracting features...")

	cachePath := featurecache.PathFor(req.ProjectDir)

	var f *features.ExtractedFeatures
	if cached, ok, err := featurecache.Load(cachePath, cfg.CacheVersion); err == nil && ok {
		f = cached
		r.Metrics.CacheHit()
		log.Info("feature cache hit", "path", cachePath)
		r.report(req.Progress, 40, "loaded cached features")
	} else {
		r.Metrics.CacheMiss()
		stop := stageTimer(r, "extract_features")
		var progressMu sync.Mutex
		lastPct := 5.0
		f, err = features.Extract(ctx, dec, probe.DurationSec, cfg, func(pct float64, msg string) {
			// Extraction tasks report from their own goroutines in any
			// order: serialize the calls and drop any lower percentage.
			progressMu.Lock()
			defer progressMu.Unlock()
			if scaled := 5 + pct*0.35; scaled >= lastPct {
				lastPct = scaled
				r.report(req.Progress, scaled, msg)
			}
		})
		stop()
		if err != nil {
			r.Metrics.RunFinished("error")
			return nil, err
		}
		if err := checkCancel(); err != nil {
			r.Metrics.RunFinished("cancelled")
			return nil, err
		}
		if err := featurecache.Save(cachePath, f); err != nil {
			log.Warn("failed to persist feature cache", "error", err)
		}
		r.report(req.Progress, 40, "features cached")
	}

	if err := checkCancel(); err != nil {
		r.Metrics.RunFinished("cancelled")
		return nil, err
	}

	r.report(req.Progress, 45, "detecting anchors...")
	anchorList := anchors.Detect(f, cfg)
	r.report(req.Progress, 55, fmt.Sprintf("found %d anchors", len(anchorList)))

	if err := checkCancel(); err != nil {
		r.Metrics.RunFinished("cancelled")
		return nil, err
	}

	r.report(req.Progress, 60, "computing boundaries...")
	boundaryList := boundaries.Compute(f, cfg)
	r.report(req.Progress, 70, fmt.Sprintf("found %d boundary candidates", len(boundaryList)))

	r.report(req.Progress, 75, "selecting clip windows...")
	candidateWindows := windows.Select(anchorList, boundaryList, f, cfg)
	r.report(req.Progress, 80, fmt.Sprintf("selected %d candidate windows", len(candidateWindows)))

	r.report(req.Progress, 82, "applying post-filters...")
	stop := stageTimer(r, "post_filter")
	finalClips, filterReport := postfilter.Apply(ctx, candidateWindows, f, dec, cfg)
	stop()
	r.report(req.Progress, 90, fmt.Sprintf("final clip count: %d", len(finalClips)))
	r.Metrics.ClipsEmitted(len(finalClips))
	r.Metrics.FilterDropped("overlap", countDropped(filterReport.Overlap))
	r.Metrics.FilterDropped("boring", countDropped(filterReport.Boring))
	r.Metrics.FilterDropped("duplicate", countDropped(filterReport.Duplicate))
	r.Metrics.FilterDropped("quality", countDropped(filterReport.Quality))

	result := &Result{
		RunID:            runID,
		Features:         f,
		Anchors:          anchorList,
		Boundaries:       boundaryList,
		CandidateWindows: candidateWindows,
		FilterReport:     filterReport,
		FinalClips:       finalClips,
	}

	if cfg.WriteDebugJSON {
		jsonPath := filepath.Join(req.ProjectDir, "debug", "segmentation_v2_debug.json")
		if err := debugartifact.WriteDebugJSON(jsonPath, cfg, f, anchorList, boundaryList, candidateWindows, filterReport, finalClips); err != nil {
			log.Warn("failed to write debug JSON", "error", err)
		} else {
			result.DebugJSONPath = jsonPath
		}
	}

	if cfg.WriteDebugPlot {
		plotPath := filepath.Join(req.ProjectDir, "debug", "segmentation_v2_plot.png")
		if err := debugartifact.WriteDebugPlot(plotPath, f, anchorList, finalClips); err != nil {
			log.Warn("failed to write debug plot", "error", err)
		} else {
			result.DebugPlotPath = plotPath
		}
	}
	if err := os.MkdirAll(req.ProjectDir, 0o755); err != nil {
		log.Warn("failed to ensure project directory exists", "error", err)
	}

	r.report(req.Progress, 95, "v2 pipeline complete")
	r.Metrics.RunFinished("success")
	return result, nil
}

func countDropped(decisions []postfilter.FilterDecision) int {
	n := 0
	for _, d := range decisions {
		if d.Action != "keep" {
			n++
		}
	}
	return n
}
