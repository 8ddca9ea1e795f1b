package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZScoreConstantSignalYieldsZeroVector(t *testing.T) {
	got := zScore([]float64{5, 5, 5, 5})
	for _, v := range got {
		assert.Zero(t, v)
	}
}

func TestZScoreMeanZeroUnitVariance(t *testing.T) {
	got := zScore([]float64{1, 2, 3, 4, 5})
	sum := 0.0
	for _, v := range got {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-9)

	sumSq := 0.0
	for _, v := range got {
		sumSq += v * v
	}
	assert.InDelta(t, 1, sumSq/float64(len(got)), 1e-9)
}

func TestSmoothPreservesLength(t *testing.T) {
	in := []float64{1, 2, 3, 4, 5, 6, 7}
	out := smooth(in, 3)
	assert.Len(t, out, len(in))
}

func TestSmoothNoOpForWindowOne(t *testing.T) {
	in := []float64{1, 2, 3}
	assert.Equal(t, in, smooth(in, 1))
}

func TestInterpLinearClampsOutsideRange(t *testing.T) {
	src := []float64{1, 2, 3}
	vals := []float64{10, 20, 30}
	dst := []float64{0, 1, 1.5, 2, 2.5, 3, 4}

	out := interpLinear(dst, src, vals)
	assert.Equal(t, 10.0, out[0])   // before range
	assert.Equal(t, 10.0, out[1])   // at first point
	assert.Equal(t, 15.0, out[2])   // midpoint
	assert.Equal(t, 20.0, out[3])   // exact
	assert.Equal(t, 25.0, out[4])   // midpoint
	assert.Equal(t, 30.0, out[5])   // last point
	assert.Equal(t, 30.0, out[6])   // beyond range
}

func TestInterpLinearEmptySource(t *testing.T) {
	out := interpLinear([]float64{0, 1, 2}, nil, nil)
	for _, v := range out {
		assert.Zero(t, v)
	}
}

func TestInterpLinearSinglePointBroadcasts(t *testing.T) {
	out := interpLinear([]float64{0, 1, 2}, []float64{5}, []float64{42})
	for _, v := range out {
		assert.Equal(t, 42.0, v)
	}
}

func TestSmoothHandlesConstantInput(t *testing.T) {
	in := make([]float64, 10)
	for i := range in {
		in[i] = 3.0
	}
	out := smooth(in, 3)
	for _, v := range out {
		assert.True(t, math.Abs(v-3.0) < 1e-9)
	}
}
