package pipeline_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/highlightlab/clipline/internal/decoder"
	"github.com/highlightlab/clipline/internal/pipeline"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

// fakeDecoder synthesizes deterministic signals: a sine-wave PCM track
// with a loud patch a third of the way in, and grayscale frames with a
// motion burst at the same point, so the pipeline has something worth selecting
// as an anchor without needing a real ffmpeg binary on the test host.
type fakeDecoder struct {
	duration float64
}

func (f *fakeDecoder) Probe(ctx context.Context) (decoder.ProbeResult, error) {
	return decoder.ProbeResult{DurationSec: f.duration, Width: 160, Height: 90, FPS: 30}, nil
}

func (f *fakeDecoder) PCMMono(ctx context.Context, sampleRate int) (io.ReadCloser, error) {
	n := int(f.duration * float64(sampleRate))
	buf := make([]byte, 0, n*2)
	loudStart := n / 3
	loudEnd := loudStart + n/10
	for i := 0; i < n; i++ {
		amp := 0.05
		if i >= loudStart && i < loudEnd {
			amp = 0.8
		}
		s := int16(amp * 30000 * math.Sin(float64(i)*0.1))
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(s))
		buf = append(buf, b...)
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (f *fakeDecoder) GrayFrames(ctx context.Context, fps, width int) (io.ReadCloser, error) {
	height := width * 9 / 16
	frameSize := width * height
	numFrames := int(f.duration * float64(fps))
	buf := make([]byte, 0, numFrames*frameSize)
	burstStart := numFrames / 3
	burstEnd := burstStart + numFrames/10
	for i := 0; i < numFrames; i++ {
		frame := make([]byte, frameSize)
		base := byte(40)
		if i >= burstStart && i < burstEnd && i%2 == 0 {
			base = 200
		}
		for j := range frame {
			frame[j] = base
		}
		buf = append(buf, frame...)
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (f *fakeDecoder) FrameAt(ctx context.Context, timeSec float64, width, height int) ([]byte, error) {
	frame := make([]byte, width*height)
	for i := range frame {
		frame[i] = 50
	}
	return frame, nil
}

func (f *fakeDecoder) SceneEvents(ctx context.Context, threshold float64) ([]float64, error) {
	return []float64{f.duration / 3}, nil
}

func (f *fakeDecoder) BlackEvents(ctx context.Context) ([]float64, error) {
	return nil, nil
}

func (f *fakeDecoder) FreezeEvents(ctx context.Context) ([]float64, error) {
	return nil, nil
}

type fakeFactory struct {
	duration float64
}

func (ff *fakeFactory) Open(videoPath string) decoder.Decoder {
	return &fakeDecoder{duration: ff.duration}
}

func TestRunnerRunProducesClips(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := pipelineconfig.Default()
	cfg.WriteDebugJSON = true
	cfg.WriteDebugPlot = false

	projectDir := t.TempDir()
	runner := pipeline.New(&fakeFactory{duration: 120}, nil)

	var progressed []string
	req := pipeline.Request{
		VideoPath:  "fake.mp4",
		ProjectDir: projectDir,
		Config:     cfg,
		Progress: func(pct float64, msg string) {
			progressed = append(progressed, msg)
		},
	}

	result, err := runner.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)
	assert.NotEmpty(t, progressed)

	clips := result.Clips()
	for _, c := range clips {
		assert.Equal(t, "v2", c.GenerationVersion)
		assert.Greater(t, c.EndTime, c.StartTime)
		assert.GreaterOrEqual(t, c.Duration, cfg.MinClipSeconds-1e-6)
		assert.LessOrEqual(t, c.Duration, cfg.MaxClipSeconds+1e-6)
	}

	_, err = os.Stat(filepath.Join(projectDir, "debug", "segmentation_v2_debug.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(projectDir, "features", "features_v2.json"))
	assert.NoError(t, err)
}

func TestRunnerRunUsesFeatureCacheOnSecondRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := pipelineconfig.Default()
	cfg.WriteDebugJSON = false

	projectDir := t.TempDir()
	runner := pipeline.New(&fakeFactory{duration: 30}, nil)

	req := pipeline.Request{VideoPath: "fake.mp4", ProjectDir: projectDir, Config: cfg}

	first, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	second, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Features.N(), second.Features.N())
	assert.Equal(t, first.Features.Times, second.Features.Times)
}

func TestRunnerRunHonorsCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := pipelineconfig.Default()
	projectDir := t.TempDir()
	runner := pipeline.New(&fakeFactory{duration: 60}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, pipeline.Request{VideoPath: "fake.mp4", ProjectDir: projectDir, Config: cfg})
	require.Error(t, err)
}
