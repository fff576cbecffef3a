package bench

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Divergence compares two outputs over their common prefix and returns the
// mean and maximum absolute difference and the prefix length. Both metrics
// are 0 when the prefix is empty.
func Divergence(a, b []float64) (mae, maxAbs float64, n int) {
	n = min(len(a), len(b))
	if n == 0 {
		return 0, 0, 0
	}
	a, b = a[:n], b[:n]
	mae = floats.Distance(a, b, 1) / float64(n)
	maxAbs = floats.Distance(a, b, math.Inf(1))
	return mae, maxAbs, n
}

// Speedup is baseline/accelerated, or 0 when accelerated is 0.
func Speedup(baselineMillis, acceleratedMillis float64) float64 {
	if acceleratedMillis == 0 {
		return 0
	}
	return baselineMillis / acceleratedMillis
}
