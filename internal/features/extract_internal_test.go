package features

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highlightlab/clipline/internal/decoder"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

// silentDecoder replays whatever PCM bytes and gray frames a test gives
// it, just enough to drive extractAudioRMS/extractMotionScore without a
// real ffmpeg binary.
type silentDecoder struct {
	pcm    []byte
	frames []byte
}

func (d *silentDecoder) Probe(ctx context.Context) (decoder.ProbeResult, error) {
	return decoder.ProbeResult{}, nil
}
func (d *silentDecoder) PCMMono(ctx context.Context, sampleRate int) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(d.pcm)), nil
}
func (d *silentDecoder) GrayFrames(ctx context.Context, fps, width int) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(d.frames)), nil
}
func (d *silentDecoder) FrameAt(ctx context.Context, timeSec float64, width, height int) ([]byte, error) {
	return nil, nil
}
func (d *silentDecoder) SceneEvents(ctx context.Context, threshold float64) ([]float64, error) {
	return nil, nil
}
func (d *silentDecoder) BlackEvents(ctx context.Context) ([]float64, error)  { return nil, nil }
func (d *silentDecoder) FreezeEvents(ctx context.Context) ([]float64, error) { return nil, nil }

func pcmOf(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestExtractAudioRMSFloorsSilence(t *testing.T) {
	cfg := pipelineconfig.Default()
	cfg.StepSec = 1.0
	cfg.AudioSampleRate = 100

	dec := &silentDecoder{pcm: pcmOf(make([]int16, 50))} // fewer samples than 1 step
	out, err := extractAudioRMS(context.Background(), dec, 2.0, cfg, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 0.0, out[0]) // partial window of zeros: rms floors to 1e-10, dB clamps to 0
	assert.Equal(t, 0.0, out[1]) // no samples at all for this step
}

func TestExtractAudioRMSLoudWindowIsLouderThanQuiet(t *testing.T) {
	cfg := pipelineconfig.Default()
	cfg.StepSec = 0.1
	cfg.AudioSampleRate = 100 // 10 samples/step

	quiet := make([]int16, 10)
	loud := make([]int16, 10)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 30000
		} else {
			loud[i] = -30000
		}
	}
	pcm := append(pcmOf(quiet), pcmOf(loud)...)

	dec := &silentDecoder{pcm: pcm}
	out, err := extractAudioRMS(context.Background(), dec, 0.2, cfg, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Greater(t, out[1], out[0])
}

func TestExtractMotionScoreDetectsBurst(t *testing.T) {
	cfg := pipelineconfig.Default()
	cfg.StepSec = 1.0
	cfg.MotionFPS = 2
	cfg.MotionWidth = 4 // height = 4*9/16 = 2

	width, height := 4, 2
	frameSize := width * height
	numFrames := 6 // 3 seconds at 2fps

	frames := make([]byte, 0, numFrames*frameSize)
	for i := 0; i < numFrames; i++ {
		base := byte(10)
		if i == 3 {
			base = 250 // sudden jump mid-stream
		}
		frame := make([]byte, frameSize)
		for j := range frame {
			frame[j] = base
		}
		frames = append(frames, frame...)
	}

	dec := &silentDecoder{frames: frames}
	out, err := extractMotionScore(context.Background(), dec, 3.0, cfg, cfg.NumSamples(3.0))
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	var maxV float64
	for _, v := range out {
		if v > maxV {
			maxV = v
		}
	}
	assert.Greater(t, maxV, 0.0)
}
