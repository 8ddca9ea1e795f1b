package features

import (
	"context"
	"encoding/binary"
	"io"
	"math"

	"github.com/highlightlab/clipline/internal/decoder"
	"github.com/highlightlab/clipline/internal/pipelineconfig"
)

// extractAudioRMS streams mono PCM from dec and reduces it to one RMS-in-dB
// sample per StepSec window, producing exactly n samples, then applies a
// 3-tap moving-average smoothing pass. A window with no samples (stream
// ended early) is recorded as 0.0, matching an empty-window read as silence
// rather than full scale.
//
// dB is computed as 20*log10(max(rms, 1e-10)) + 60, clamped at 0 below, so
// typical speech/music levels land in a positive, easily-thresholded range.
func extractAudioRMS(ctx context.Context, dec decoder.Decoder, duration float64, cfg pipelineconfig.Config, n int) ([]float64, error) {
	stream, err := dec.PCMMono(ctx, cfg.AudioSampleRate)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	const rmsFloor = 1e-10
	samplesPerStep := int(cfg.StepSec * float64(cfg.AudioSampleRate))
	if samplesPerStep <= 0 {
		samplesPerStep = 1
	}

	out := make([]float64, n)
	reader := newInt16Reader(stream)

	for i := 0; i < n; i++ {
		var sumSquares float64
		var count int
		for j := 0; j < samplesPerStep; j++ {
			sample, ok := reader.next()
			if !ok {
				break
			}
			v := float64(sample) / 32768.0
			sumSquares += v * v
			count++
		}
		if count == 0 {
			out[i] = 0.0
			continue
		}
		rms := math.Sqrt(sumSquares / float64(count))
		db := 20*math.Log10(math.Max(rms, rmsFloor)) + 60
		if db < 0 {
			db = 0
		}
		out[i] = db
	}
	return smooth(out, 3), nil
}

// int16Reader pulls little-endian signed 16-bit samples off an
// io.ReadCloser one at a time, buffering a small chunk at a time to avoid a
// syscall per sample.
type int16Reader struct {
	r   io.Reader
	buf []byte
	pos int
	n   int
}

func newInt16Reader(r io.Reader) *int16Reader {
	return &int16Reader{r: r, buf: make([]byte, 4096)}
}

func (d *int16Reader) next() (int16, bool) {
	if d.pos+2 > d.n {
		if !d.refill() {
			return 0, false
		}
	}
	v := int16(binary.LittleEndian.Uint16(d.buf[d.pos : d.pos+2]))
	d.pos += 2
	return v, true
}

func (d *int16Reader) refill() bool {
	// Preserve a dangling odd byte across refills.
	leftover := d.n - d.pos
	if leftover > 0 {
		copy(d.buf, d.buf[d.pos:d.n])
	}
	filled := leftover
	for filled < len(d.buf) {
		read, err := d.r.Read(d.buf[filled:])
		filled += read
		if err != nil {
			break
		}
	}
	d.n = filled
	d.pos = 0
	if d.n < 2 {
		return false
	}
	// Truncate to an even number of bytes; a trailing odd byte is dropped.
	if d.n%2 != 0 {
		d.n--
	}
	return true
}
