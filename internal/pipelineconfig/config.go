// Package pipelineconfig defines the immutable parameter bundle the
// segmentation pipeline runs with. A Config is constructed once per
// invocation (by the Host, see internal/hostconf) and passed by value into
// every pipeline stage; no stage ever reads configuration from anywhere
// else.
package pipelineconfig

// Config bundles every tunable of the highlight-aware segmentation
// pipeline. All fields are immutable once a Config value is constructed —
// stages only ever read from it.
type Config struct {
	// Feature extraction
	StepSec         float64 // time step for feature sampling, seconds
	AudioSampleRate int     // sample rate requested from the Decoder for PCM
	MotionFPS       int     // frames per second requested for grayscale frames
	MotionWidth     int     // downscaled frame width for motion analysis

	// Clip duration constraints
	MinClipSeconds float64
	MaxClipSeconds float64

	// Window selection ranges, relative to the anchor time
	PreMax      float64 // max lookback for start boundary search
	PreMin      float64 // min lookback for start boundary search
	PostMax     float64 // max lookahead for end boundary search
	PostMin     float64 // min lookahead for end boundary search
	FallbackPre float64 // start offset used when no boundary is found
	FallbackPost float64 // end offset used when no boundary is found

	// Anchor detection
	AnchorSuppressionWindowSec float64 // min spacing enforced within each detection method
	AnchorExcitementThreshold  float64 // minimum excitement value to seed an anchor
	MaxAnchorsPerMinute        float64 // adaptive cap on anchor count

	// Boundary scoring weights
	BoundaryWScene         float64
	BoundaryWAudioDip      float64
	BoundaryWFade          float64
	BoundaryWMotionValley  float64
	BoundaryMinSpacingSec  float64
	BoundaryCandidateThreshold float64

	// Post-filtering
	TargetClipCountSoft  int
	OverlapIoUThreshold  float64
	BoringThreshold      float64
	BoringDurationRatio  float64

	// Quality scoring weights
	QualityWExcitement       float64
	QualityWDeadTimePenalty  float64
	QualityWBoundaryQuality  float64
	QualityWNarrative        float64

	// Scene detection
	SceneThreshold float64

	// Debug artifacts
	WriteDebugJSON bool
	WriteDebugPlot bool

	// CacheVersion is an opaque token stamped onto persisted features;
	// bumping it invalidates every cache on disk, with no migration.
	CacheVersion string
}

// Default returns the pipeline's stock configuration, matching the
// reference implementation's defaults exactly.
func Default() Config {
	return Config{
		StepSec:         0.5,
		AudioSampleRate: 16000,
		MotionFPS:       4,
		MotionWidth:     160,

		MinClipSeconds: 5.0,
		MaxClipSeconds: 60.0,

		PreMax:       14.0,
		PreMin:       2.0,
		PostMax:      28.0,
		PostMin:      2.0,
		FallbackPre:  8.0,
		FallbackPost: 12.0,

		AnchorSuppressionWindowSec: 4.0,
		AnchorExcitementThreshold:  0.3,
		MaxAnchorsPerMinute:        8.0,

		BoundaryWScene:             0.45,
		BoundaryWAudioDip:          0.25,
		BoundaryWFade:              0.15,
		BoundaryWMotionValley:      0.15,
		BoundaryMinSpacingSec:      1.5,
		BoundaryCandidateThreshold: 0.1,

		TargetClipCountSoft: 200,
		OverlapIoUThreshold: 0.35,
		BoringThreshold:     0.15,
		BoringDurationRatio: 0.7,

		QualityWExcitement:      0.4,
		QualityWDeadTimePenalty: 0.2,
		QualityWBoundaryQuality: 0.2,
		QualityWNarrative:       0.2,

		SceneThreshold: 0.3,

		WriteDebugJSON: true,
		WriteDebugPlot: false,

		CacheVersion: "v2.0.0",
	}
}

// NumSamples returns N = floor(duration/StepSec) + 1, the length every
// sampled ExtractedFeatures array must share for a video of the given
// duration under this Config.
func (c Config) NumSamples(durationSec float64) int {
	return int(durationSec/c.StepSec) + 1
}
