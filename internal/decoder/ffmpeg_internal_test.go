package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFrameRateHandlesFraction(t *testing.T) {
	assert.InDelta(t, 30.0, parseFrameRate("30/1"), 1e-9)
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 1e-2)
}

func TestParseFrameRateHandlesMalformedInput(t *testing.T) {
	assert.Equal(t, 0.0, parseFrameRate("not-a-rate"))
	assert.Equal(t, 0.0, parseFrameRate("30/0"))
	assert.Equal(t, 0.0, parseFrameRate(""))
}

func TestParseTimestampTokensExtractsFloats(t *testing.T) {
	stderr := "frame=1 pts_time:12.500000 something\nframe=2 pts_time:13.25 other\nnoise line\n"
	got := parseTimestampTokens(stderr, "pts_time:")
	assert.Equal(t, []float64{12.5, 13.25}, got)
}

func TestParseTimestampTokensIgnoresUnrelatedLines(t *testing.T) {
	stderr := "black_start:5.0 black_end:6.5\nunrelated line with no tokens\n"
	starts := parseTimestampTokens(stderr, "black_start:")
	ends := parseTimestampTokens(stderr, "black_end:")
	assert.Equal(t, []float64{5.0}, starts)
	assert.Equal(t, []float64{6.5}, ends)
}

func TestParseTimestampTokensEmptyInput(t *testing.T) {
	assert.Empty(t, parseTimestampTokens("", "pts_time:"))
}

func TestTruncateShorterThanLimitReturnsUnchanged(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
}

func TestTruncateLongerThanLimitCutsExactly(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello world", 5))
}
