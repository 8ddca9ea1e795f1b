package features

import (
	"context"
	"io"

	"github.com/highlightlab/clipline/internal/decoder"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

// extractMotionScore streams grayscale frames from dec at cfg.MotionFPS /
// cfg.MotionWidth, scores each consecutive pair by mean absolute pixel
// difference normalized to [0,1], resamples the resulting sparse per-frame
// series onto the StepSec-aligned time axis via linear interpolation, then
// applies the same 3-tap moving-average smoothing as extractAudioRMS —
// mirroring the reference implementation's decode-at-low-fps-then-resample
// approach rather than decoding at full frame rate.
func extractMotionScore(ctx context.Context, dec decoder.Decoder, duration float64, cfg pipelineconfig.Config, n int) ([]float64, error) {
	width := cfg.MotionWidth
	height := width * 9 / 16
	frameSize := width * height
	if frameSize <= 0 {
		return make([]float64, n), nil
	}

	stream, err := dec.GrayFrames(ctx, cfg.MotionFPS, width)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var frameTimes, frameScores []float64
	prev := make([]byte, frameSize)
	haveLast := false
	frame := make([]byte, frameSize)
	frameIdx := 0

	for {
		_, err := io.ReadFull(stream, frame)
		if err != nil {
			break
		}
		if haveLast {
			var sumDiff int
			for i := range frame {
				d := int(frame[i]) - int(prev[i])
				if d < 0 {
					d = -d
				}
				sumDiff += d
			}
			score := float64(sumDiff) / float64(frameSize) / 255.0
			t := float64(frameIdx) / float64(cfg.MotionFPS)
			frameTimes = append(frameTimes, t)
			frameScores = append(frameScores, score)
		}
		copy(prev, frame)
		haveLast = true
		frameIdx++
	}

	dstTimes := make([]float64, n)
	for i := range dstTimes {
		dstTimes[i] = float64(i) * cfg.StepSec
	}

	if len(frameTimes) == 0 {
		return make([]float64, n), nil
	}
	return smooth(interpLinear(dstTimes, frameTimes, frameScores), 3), nil
}
