package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDivergence(t *testing.T) {
	mae, maxAbs, n := Divergence([]float64{1, 2, 3}, []float64{1, 2, 5})
	assert.Equal(t, 3, n)
	assert.InDelta(t, 2.0/3.0, mae, 1e-12)
	assert.Equal(t, 2.0, maxAbs)
}

func TestDivergenceTruncatesToShorter(t *testing.T) {
	mae, maxAbs, n := Divergence([]float64{1, 2, 3, 100}, []float64{2, 2})
	assert.Equal(t, 2, n)
	assert.Equal(t, 0.5, mae)
	assert.Equal(t, 1.0, maxAbs)
}

func TestDivergenceEmpty(t *testing.T) {
	for _, pair := range [][2][]float64{{nil, nil}, {{1, 2}, nil}, {nil, {3}}} {
		mae, maxAbs, n := Divergence(pair[0], pair[1])
		assert.Zero(t, mae)
		assert.Zero(t, maxAbs)
		assert.Zero(t, n)
	}
}

func TestSpeedup(t *testing.T) {
	assert.Equal(t, 2.0, Speedup(4, 2))
	assert.Equal(t, 0.0, Speedup(4, 0))
}
