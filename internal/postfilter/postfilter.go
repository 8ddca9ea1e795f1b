// Package postfilter runs the four-pass audit pipeline that turns a raw
// window list into the final clip set: overlap resolution, boring-clip
// removal, perceptual-hash deduplication, and a soft quality cap (spec
// §4.7). Every pass emits a FilterDecision per clip it touches so the
// debug artifact can explain exactly why a clip survived or was dropped.
package postfilter

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/highlightlab/clipline/internal/decoder"
	"github.com/highlightlab/clipline/internal/features"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
	"github.com/highlightlab/clipline/internal/windows"
)

// FilterDecision records, for one clip (by its index in the pre-filter
// window list), what happened to it and why.
type FilterDecision struct {
	ClipIndex        int
	Action           string // "keep", "drop_overlap", "drop_boring", "drop_duplicate", "drop_quality"
	Reason           string
	RelatedClipIndex *int
}

// Report groups the per-pass decision lists, mirroring the on-disk debug
// artifact's filter_report shape (spec §6).
type Report struct {
	Overlap   []FilterDecision
	Boring    []FilterDecision
	Duplicate []FilterDecision
	Quality   []FilterDecision
}

// indexed pairs a ClipWindow with its position in the original,
// pre-filter list — the Go analogue of the reference implementation's
// list.index() identity lookups, made explicit instead of relying on
// value equality.
type indexed struct {
	origIndex int
	w         windows.ClipWindow
}

func computeIoU(a, b windows.ClipWindow) float64 {
	start := math.Max(a.StartSec, b.StartSec)
	end := math.Min(a.EndSec, b.EndSec)
	intersection := math.Max(0, end-start)
	union := (a.Duration() + b.Duration()) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// resolveOverlaps keeps clips greedily in quality-descending order,
// dropping any clip whose IoU with an already-kept clip exceeds the
// configured threshold.
func resolveOverlaps(in []indexed, cfg pipelineconfig.Config) ([]indexed, []FilterDecision) {
	if len(in) == 0 {
		return nil, nil
	}

	sorted := make([]indexed, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].w.QualityScore > sorted[b].w.QualityScore })

	var kept []indexed
	var decisions []FilterDecision

	for _, cand := range sorted {
		var overlapWith *int
		var iouValue float64
		for _, k := range kept {
			iou := computeIoU(cand.w, k.w)
			if iou > cfg.OverlapIoUThreshold {
				idx := k.origIndex
				overlapWith = &idx
				iouValue = iou
				break
			}
		}
		if overlapWith != nil {
			decisions = append(decisions, FilterDecision{
				ClipIndex:        cand.origIndex,
				Action:           "drop_overlap",
				Reason:           fmt.Sprintf("IoU %.2f > threshold %.2f", iouValue, cfg.OverlapIoUThreshold),
				RelatedClipIndex: overlapWith,
			})
		} else {
			kept = append(kept, cand)
			decisions = append(decisions, FilterDecision{ClipIndex: cand.origIndex, Action: "keep", Reason: "Passed overlap check"})
		}
	}
	return kept, decisions
}

// filterBoring drops clips whose excitement is both low on average and
// low for most of the window duration, unless the originating anchor was
// itself a strong one (anchor score >= 0.5), matching the reference
// implementation's "don't drop if anchor score is high" guard.
func filterBoring(in []indexed, f *features.ExtractedFeatures, cfg pipelineconfig.Config) ([]indexed, []FilterDecision) {
	var kept []indexed
	var decisions []FilterDecision

	for _, item := range in {
		w := item.w
		startIdx := int(w.StartSec / f.StepSec)
		endIdx := int(w.EndSec / f.StepSec)
		if startIdx < 0 {
			startIdx = 0
		}
		endIdx++
		if endIdx > len(f.Excitement) {
			endIdx = len(f.Excitement)
		}

		if endIdx <= startIdx {
			kept = append(kept, item)
			decisions = append(decisions, FilterDecision{ClipIndex: item.origIndex, Action: "keep", Reason: "No excitement data"})
			continue
		}

		window := f.Excitement[startIdx:endIdx]
		sum := 0.0
		lowCount := 0
		for _, v := range window {
			sum += v
			if v < cfg.BoringThreshold {
				lowCount++
			}
		}
		avgExcitement := sum / float64(len(window))
		lowRatio := float64(lowCount) / float64(len(window))

		isBoring := avgExcitement < cfg.BoringThreshold && lowRatio > cfg.BoringDurationRatio && w.AnchorScore < 0.5

		if isBoring {
			decisions = append(decisions, FilterDecision{
				ClipIndex: item.origIndex,
				Action:    "drop_boring",
				Reason:    fmt.Sprintf("Avg excitement %.2f, low ratio %.2f", avgExcitement, lowRatio),
			})
		} else {
			kept = append(kept, item)
			decisions = append(decisions, FilterDecision{ClipIndex: item.origIndex, Action: "keep", Reason: "Passed boring filter"})
		}
	}
	return kept, decisions
}

// simpleFrameHash computes a 16-hex-character average-threshold
// perceptual hash of the 16x16 grayscale frame at timeSec, returning ""
// if the frame could not be decoded.
func simpleFrameHash(ctx context.Context, dec decoder.Decoder, timeSec float64) string {
	const w, h = 16, 16
	pixels, err := dec.FrameAt(ctx, timeSec, w, h)
	if err != nil || len(pixels) != w*h {
		return ""
	}
	sum := 0
	for _, p := range pixels {
		sum += int(p)
	}
	avg := float64(sum) / float64(len(pixels))

	bits := make([]byte, len(pixels))
	for i, p := range pixels {
		if float64(p) > avg {
			bits[i] = '1'
		} else {
			bits[i] = '0'
		}
	}
	sum16 := md5.Sum(bits)
	return hex.EncodeToString(sum16[:])[:16]
}

// deduplicateClips drops clips whose mid-point frame hash matches an
// already-kept clip within 30 seconds and whose quality is lower — the
// same-scene "we detected this highlight twice" case.
func deduplicateClips(ctx context.Context, in []indexed, dec decoder.Decoder) ([]indexed, []FilterDecision) {
	if len(in) < 2 {
		decisions := make([]FilterDecision, len(in))
		for i, item := range in {
			decisions[i] = FilterDecision{ClipIndex: item.origIndex, Action: "keep", Reason: "Single clip"}
		}
		return in, decisions
	}

	byTime := make([]indexed, len(in))
	copy(byTime, in)
	sort.SliceStable(byTime, func(a, b int) bool { return byTime[a].w.StartSec < byTime[b].w.StartSec })

	hashes := make(map[int]string, len(in))
	for _, item := range byTime {
		mid := (item.w.StartSec + item.w.EndSec) / 2
		if h := simpleFrameHash(ctx, dec, mid); h != "" {
			hashes[item.origIndex] = h
		}
	}

	byOrigIndex := make(map[int]indexed, len(in))
	for _, item := range in {
		byOrigIndex[item.origIndex] = item
	}

	kept := make(map[int]struct{})
	keptOrder := make([]int, 0, len(byTime)) // insertion order == ascending start time, for deterministic scans below
	droppedOf := make(map[int]int)

	for _, item := range byTime {
		if _, isDropped := droppedOf[item.origIndex]; isDropped {
			continue
		}

		dupOf := -1
		for _, keptIdx := range keptOrder {
			keptItem := byOrigIndex[keptIdx]
			if math.Abs(item.w.StartSec-keptItem.w.StartSec) > 30 {
				continue
			}
			h1, ok1 := hashes[item.origIndex]
			h2, ok2 := hashes[keptIdx]
			if ok1 && ok2 && h1 == h2 && item.w.QualityScore < keptItem.w.QualityScore {
				dupOf = keptIdx
				break
			}
		}

		if dupOf >= 0 {
			droppedOf[item.origIndex] = dupOf
		} else {
			kept[item.origIndex] = struct{}{}
			keptOrder = append(keptOrder, item.origIndex)
		}
	}

	var result []indexed
	var decisions []FilterDecision
	for _, item := range in {
		if _, ok := kept[item.origIndex]; ok {
			result = append(result, item)
			decisions = append(decisions, FilterDecision{ClipIndex: item.origIndex, Action: "keep", Reason: "Unique clip"})
			continue
		}
		dupOf, ok := droppedOf[item.origIndex]
		if !ok {
			continue
		}
		idx := dupOf
		decisions = append(decisions, FilterDecision{
			ClipIndex:        item.origIndex,
			Action:           "drop_duplicate",
			Reason:           fmt.Sprintf("Duplicate of clip at %.1fs", byOrigIndex[dupOf].w.StartSec),
			RelatedClipIndex: &idx,
		})
	}
	return result, decisions
}

// filterByQualityTarget caps the surviving clip count at
// TargetClipCountSoft, dropping the lowest-quality excess.
func filterByQualityTarget(in []indexed, cfg pipelineconfig.Config) ([]indexed, []FilterDecision) {
	if len(in) <= cfg.TargetClipCountSoft {
		decisions := make([]FilterDecision, len(in))
		for i, item := range in {
			decisions[i] = FilterDecision{ClipIndex: item.origIndex, Action: "keep", Reason: "Under target count"}
		}
		return in, decisions
	}

	sorted := make([]indexed, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].w.QualityScore > sorted[b].w.QualityScore })

	keptSet := make(map[int]struct{}, cfg.TargetClipCountSoft)
	for _, item := range sorted[:cfg.TargetClipCountSoft] {
		keptSet[item.origIndex] = struct{}{}
	}

	var kept []indexed
	var decisions []FilterDecision
	for _, item := range in {
		if _, ok := keptSet[item.origIndex]; ok {
			kept = append(kept, item)
			decisions = append(decisions, FilterDecision{ClipIndex: item.origIndex, Action: "keep", Reason: "Above quality cutoff"})
		} else {
			decisions = append(decisions, FilterDecision{
				ClipIndex: item.origIndex,
				Action:    "drop_quality",
				Reason:    fmt.Sprintf("Below quality cutoff (score: %.3f)", item.w.QualityScore),
			})
		}
	}
	return kept, decisions
}

// Apply runs all four passes in order and returns the final, time-sorted
// clip list alongside the full per-pass decision report.
func Apply(ctx context.Context, in []windows.ClipWindow, f *features.ExtractedFeatures, dec decoder.Decoder, cfg pipelineconfig.Config) ([]windows.ClipWindow, Report) {
	log := slog.Default()

	indexedWindows := make([]indexed, len(in))
	for i, w := range in {
		indexedWindows[i] = indexed{origIndex: i, w: w}
	}

	var report Report

	indexedWindows, report.Overlap = resolveOverlaps(indexedWindows, cfg)
	log.Info("overlap resolution complete", "kept", len(indexedWindows), "total", len(in))

	indexedWindows, report.Boring = filterBoring(indexedWindows, f, cfg)
	log.Info("boring filter complete", "kept", len(indexedWindows))

	indexedWindows, report.Duplicate = deduplicateClips(ctx, indexedWindows, dec)
	log.Info("deduplication complete", "kept", len(indexedWindows))

	indexedWindows, report.Quality = filterByQualityTarget(indexedWindows, cfg)
	log.Info("quality cap complete", "kept", len(indexedWindows))

	sort.SliceStable(indexedWindows, func(a, b int) bool { return indexedWindows[a].w.StartSec < indexedWindows[b].w.StartSec })

	result := make([]windows.ClipWindow, len(indexedWindows))
	for i, item := range indexedWindows {
		result[i] = item.w
	}
	return result, report
}
