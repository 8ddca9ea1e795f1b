// Package decoder defines the Pipeline's external Decoder contract (spec
// §4.1) and a concrete implementation backed by real ffmpeg/ffprobe
// subprocesses (spec §4.1a).
package decoder

import (
	"context"
	"io"
)

// ProbeResult is the metadata the pipeline needs before it can extract any
// feature: duration drives every sample count in the system.
type ProbeResult struct {
	DurationSec float64
	Width       int
	Height      int
	FPS         float64
	Codecs      []string
}

// Decoder is the Pipeline's sole external collaborator for turning a video
// file into signals. A Decoder value is scoped to exactly one video file
// (constructed by a Factory, see ffmpeg.go); every method may fail with a
// *pipelineerr.Error of kind KindDecoder (or KindFatalDecoder for Probe),
// and callers other than the Pipeline Runner itself should treat a
// non-nil error as "this signal is absent" rather than aborting.
type Decoder interface {
	// Probe reads container/stream metadata. A Probe failure is fatal:
	// without a duration the pipeline cannot size any sampled array.
	Probe(ctx context.Context) (ProbeResult, error)

	// PCMMono streams signed 16-bit little-endian mono PCM samples at the
	// given sample rate. The caller owns the returned ReadCloser.
	PCMMono(ctx context.Context, sampleRate int) (io.ReadCloser, error)

	// GrayFrames streams raw grayscale frames at the given fps and width;
	// height is floor(width*9/16). The caller owns the returned
	// ReadCloser and must read exactly width*height bytes per frame.
	GrayFrames(ctx context.Context, fps, width int) (io.ReadCloser, error)

	// FrameAt extracts a single width x height grayscale frame at
	// timeSec, used only by the post-filter's perceptual-hash duplicate
	// check (spec §4.7c).
	FrameAt(ctx context.Context, timeSec float64, width, height int) ([]byte, error)

	// SceneEvents returns sorted timestamps where inter-frame difference
	// exceeds threshold.
	SceneEvents(ctx context.Context, threshold float64) ([]float64, error)

	// BlackEvents returns black-frame start/end timestamps (unsorted,
	// deduplication is the caller's responsibility).
	BlackEvents(ctx context.Context) ([]float64, error)

	// FreezeEvents returns freeze-frame start timestamps. Only meaningful
	// — and only ever called by the Feature Extractor — when the probed
	// duration is under 600s.
	FreezeEvents(ctx context.Context) ([]float64, error)
}

// Factory constructs a Decoder scoped to one video file. The Pipeline
// Runner calls this once per invocation and shares that Decoder across
// the Feature Extractor's fan-out tasks; every method call spawns its own
// subprocess, so the tasks share no process state (spec §5).
type Factory interface {
	Open(videoPath string) Decoder
}
