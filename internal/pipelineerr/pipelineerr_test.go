package pipelineerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/highlightlab/clipline/internal/pipelineerr"
)

func TestKindRecoverable(t *testing.T) {
	cases := []struct {
		kind        pipelineerr.Kind
		recoverable bool
	}{
		{pipelineerr.KindDecoder, true},
		{pipelineerr.KindCache, true},
		{pipelineerr.KindInvalidWindow, true},
		{pipelineerr.KindDebugWrite, true},
		{pipelineerr.KindCancelled, false},
		{pipelineerr.KindFatalDecoder, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.recoverable, c.kind.Recoverable(), c.kind.String())
	}
}

func TestErrorWrapsAndUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := pipelineerr.DecoderErr("decoder.probe", cause)

	assert.True(t, errors.Is(err, cause))
	assert.ErrorContains(t, err, "boom")
	assert.ErrorContains(t, err, "decoder.probe")
	assert.True(t, pipelineerr.IsKind(err, pipelineerr.KindDecoder))
	assert.False(t, pipelineerr.IsKind(err, pipelineerr.KindCache))
}

func TestWithContextChains(t *testing.T) {
	err := pipelineerr.CacheErr("featurecache.load", errors.New("eof")).
		WithContext("path", "/tmp/x.json")

	assert.Equal(t, "/tmp/x.json", err.Context["path"])
}

func TestIsKindFalseForPlainError(t *testing.T) {
	assert.False(t, pipelineerr.IsKind(errors.New("plain"), pipelineerr.KindDecoder))
}
