package bench

import (
	"strconv"
	"strings"
)

// Shape is one benchmark case: layer widths from input to output.
type Shape struct {
	ID     string
	Widths []int
}

// DefaultSuite is the fixed set of MNIST-sized cases, smallest first.
var DefaultSuite = []Shape{
	{ID: "S1", Widths: []int{784, 64, 10}},
	{ID: "S2", Widths: []int{784, 128, 10}},
	{ID: "S3", Widths: []int{784, 256, 10}},
	{ID: "M1", Widths: []int{784, 256, 256, 10}},
	{ID: "M2", Widths: []int{784, 384, 384, 10}},
	{ID: "M3", Widths: []int{784, 512, 512, 10}},
	{ID: "L1", Widths: []int{784, 768, 768, 768, 10}},
	{ID: "L2", Widths: []int{784, 1024, 1024, 1024, 10}},
	{ID: "XL1", Widths: []int{784, 1536, 1536, 1536, 1536, 10}},
	{ID: "XL2", Widths: []int{784, 2048, 2048, 2048, 2048, 10}},
}

// Join formats the widths separated by sep, e.g. "784→64→10".
func (s Shape) Join(sep string) string {
	parts := make([]string, len(s.Widths))
	for i, w := range s.Widths {
		parts[i] = strconv.Itoa(w)
	}
	return strings.Join(parts, sep)
}

// Parameters counts weights between adjacent layers plus one bias per
// non-input unit.
func (s Shape) Parameters() int64 {
	var params int64
	for i := 0; i+1 < len(s.Widths); i++ {
		params += int64(s.Widths[i]) * int64(s.Widths[i+1])
	}
	for i := 1; i < len(s.Widths); i++ {
		params += int64(s.Widths[i])
	}
	return params
}

// EstimatedMiB is the float32 weight footprint in mebibytes.
func (s Shape) EstimatedMiB() float64 {
	return float64(s.Parameters()) * 4 / (1024 * 1024)
}
