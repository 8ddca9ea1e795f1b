package decoder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/highlightlab/clipline/internal/logging"
	"github.com/highlightlab/clipline/internal/pipelineerr"
)

// FFmpegFactory builds Decoders backed by real ffmpeg/ffprobe binaries.
// Grounded on internal/audiocore/utils/ffmpeg/process.go's subprocess
// wrapper: context-scoped exec.CommandContext, structured logging per
// spawned process, no shared mutable state between processes.
type FFmpegFactory struct {
	FFmpegPath  string // defaults to "ffmpeg" on PATH
	FFprobePath string // defaults to "ffprobe" on PATH

	// Limiter throttles how many ffmpeg subprocesses may be spawned per
	// second across the whole process, grounded on the teacher's
	// declared (but otherwise unexercised) golang.org/x/time dependency.
	// A nil Limiter means unlimited.
	Limiter *rate.Limiter
}

// NewFFmpegFactory returns a Factory with sane defaults and a spawn rate
// limit of 8/s, generous enough for this pipeline's handful of
// concurrent extraction subprocesses per invocation.
func NewFFmpegFactory() *FFmpegFactory {
	return &FFmpegFactory{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Limiter:     rate.NewLimiter(rate.Limit(8), 8),
	}
}

func (f *FFmpegFactory) Open(videoPath string) Decoder {
	return &ffmpegDecoder{factory: f, videoPath: videoPath, log: logging.ForService("decoder")}
}

type ffmpegDecoder struct {
	factory   *FFmpegFactory
	videoPath string
	log       *slog.Logger
}

func (d *ffmpegDecoder) throttle(ctx context.Context) error {
	if d.factory.Limiter == nil {
		return nil
	}
	return d.factory.Limiter.Wait(ctx)
}

// run executes name with args, returning stdout and the exit error (if
// any). stderr is captured and attached to the error for diagnostics.
func (d *ffmpegDecoder) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := d.throttle(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		d.log.Debug("subprocess failed", "cmd", name, "stderr", truncate(stderr.String(), 500), "elapsed", time.Since(start))
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, truncate(stderr.String(), 500))
	}
	d.log.Debug("subprocess ok", "cmd", name, "elapsed", time.Since(start))
	return stdout.Bytes(), nil
}

// runStderr is like run but the signal of interest is the textual
// diagnostics ffmpeg writes to stderr (scene/black/freeze detection all
// work this way) rather than stdout.
func (d *ffmpegDecoder) runStderr(ctx context.Context, name string, args ...string) (string, error) {
	if err := d.throttle(ctx); err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	// ffmpeg -f null - legitimately exits non-zero on some inputs even
	// when the filter ran fine; only surface a hard failure if we got no
	// stderr at all (nothing to parse).
	_ = cmd.Run()
	out := stderr.String()
	if out == "" {
		return "", fmt.Errorf("%s produced no diagnostic output", name)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

func (d *ffmpegDecoder) Probe(ctx context.Context) (ProbeResult, error) {
	out, err := d.run(ctx, d.factory.FFprobePath,
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", d.videoPath)
	if err != nil {
		return ProbeResult{}, pipelineerr.FatalDecoderErr("decoder.probe", err)
	}

	var pf probeFormat
	if err := json.Unmarshal(out, &pf); err != nil {
		return ProbeResult{}, pipelineerr.FatalDecoderErr("decoder.probe", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(pf.Format.Duration), 64)
	if err != nil {
		return ProbeResult{}, pipelineerr.FatalDecoderErr("decoder.probe", fmt.Errorf("unparseable duration: %w", err))
	}

	res := ProbeResult{DurationSec: duration}
	for _, s := range pf.Streams {
		if s.CodecType == "video" && res.Width == 0 {
			res.Width, res.Height = s.Width, s.Height
			res.FPS = parseFrameRate(s.RFrameRate)
		}
		res.Codecs = append(res.Codecs, s.CodecName)
	}
	return res, nil
}

func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func (d *ffmpegDecoder) PCMMono(ctx context.Context, sampleRate int) (io.ReadCloser, error) {
	if err := d.throttle(ctx); err != nil {
		return nil, pipelineerr.DecoderErr("decoder.pcm_mono", err)
	}
	cmd := exec.CommandContext(ctx, d.factory.FFmpegPath,
		"-y", "-i", d.videoPath,
		"-vn", "-ac", "1", "-ar", strconv.Itoa(sampleRate),
		"-f", "s16le", "-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, pipelineerr.DecoderErr("decoder.pcm_mono", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, pipelineerr.DecoderErr("decoder.pcm_mono", err)
	}
	return &cmdReadCloser{ReadCloser: stdout, cmd: cmd}, nil
}

func (d *ffmpegDecoder) GrayFrames(ctx context.Context, fps, width int) (io.ReadCloser, error) {
	if err := d.throttle(ctx); err != nil {
		return nil, pipelineerr.DecoderErr("decoder.gray_frames", err)
	}
	height := width * 9 / 16
	vf := fmt.Sprintf("fps=%d,scale=%d:%d,format=gray", fps, width, height)
	cmd := exec.CommandContext(ctx, d.factory.FFmpegPath,
		"-y", "-i", d.videoPath,
		"-vf", vf, "-f", "rawvideo", "-pix_fmt", "gray", "-")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, pipelineerr.DecoderErr("decoder.gray_frames", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, pipelineerr.DecoderErr("decoder.gray_frames", err)
	}
	return &cmdReadCloser{ReadCloser: stdout, cmd: cmd}, nil
}

func (d *ffmpegDecoder) FrameAt(ctx context.Context, timeSec float64, width, height int) ([]byte, error) {
	vf := fmt.Sprintf("scale=%d:%d,format=gray", width, height)
	out, err := d.run(ctx, d.factory.FFmpegPath,
		"-y", "-ss", strconv.FormatFloat(timeSec, 'f', 3, 64), "-i", d.videoPath,
		"-vframes", "1", "-vf", vf, "-f", "rawvideo", "-pix_fmt", "gray", "-")
	if err != nil {
		return nil, pipelineerr.DecoderErr("decoder.frame_at", err)
	}
	if len(out) != width*height {
		return nil, pipelineerr.DecoderErr("decoder.frame_at", fmt.Errorf("expected %d bytes, got %d", width*height, len(out)))
	}
	return out, nil
}

func (d *ffmpegDecoder) SceneEvents(ctx context.Context, threshold float64) ([]float64, error) {
	vf := fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(threshold, 'f', -1, 64))
	stderr, err := d.runStderr(ctx, d.factory.FFmpegPath, "-i", d.videoPath, "-vf", vf, "-f", "null", "-")
	if err != nil {
		return nil, pipelineerr.DecoderErr("decoder.scene_events", err)
	}
	return parseTimestampTokens(stderr, "pts_time:"), nil
}

func (d *ffmpegDecoder) BlackEvents(ctx context.Context) ([]float64, error) {
	stderr, err := d.runStderr(ctx, d.factory.FFmpegPath, "-i", d.videoPath,
		"-vf", "blackdetect=d=0.1:pix_th=0.10", "-f", "null", "-")
	if err != nil {
		return nil, pipelineerr.DecoderErr("decoder.black_events", err)
	}
	ts := parseTimestampTokens(stderr, "black_start:")
	ts = append(ts, parseTimestampTokens(stderr, "black_end:")...)
	return ts, nil
}

func (d *ffmpegDecoder) FreezeEvents(ctx context.Context) ([]float64, error) {
	stderr, err := d.runStderr(ctx, d.factory.FFmpegPath, "-i", d.videoPath,
		"-vf", "freezedetect=n=0.003:d=0.5", "-f", "null", "-")
	if err != nil {
		return nil, pipelineerr.DecoderErr("decoder.freeze_events", err)
	}
	return parseTimestampTokens(stderr, "freeze_start:"), nil
}

// parseTimestampTokens scans ffmpeg stderr for "<prefix><float>" tokens,
// the shape every one of its filter diagnostics uses.
func parseTimestampTokens(stderr, prefix string) []float64 {
	var out []float64
	scanner := bufio.NewScanner(strings.NewReader(stderr))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, prefix) {
			continue
		}
		for _, field := range strings.Fields(line) {
			if !strings.HasPrefix(field, prefix) {
				continue
			}
			raw := strings.TrimPrefix(field, prefix)
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

// cmdReadCloser ties a subprocess's stdout pipe to its lifecycle: closing
// the reader also waits for (and reaps) the process.
type cmdReadCloser struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (c *cmdReadCloser) Close() error {
	closeErr := c.ReadCloser.Close()
	waitErr := c.cmd.Wait()
	if closeErr != nil {
		return closeErr
	}
	if waitErr != nil {
		// A non-zero exit after we've already consumed the stream we
		// wanted is not itself fatal to the caller.
		return nil
	}
	return nil
}
