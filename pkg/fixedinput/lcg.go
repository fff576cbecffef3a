// Package fixedinput generates the benchmark input: a pseudo-random vector
// that is identical on every run and reproducible from any language that
// implements the same 32-bit linear congruential recurrence.
package fixedinput

const (
	// DefaultSeed is the seed used for the benchmark input.
	DefaultSeed uint32 = 123

	Multiplier uint32 = 1664525
	Increment  uint32 = 1013904223

	// DefaultLength matches the input width of every benchmark shape.
	DefaultLength = 784

	// divisor normalizes a uint32 state into [0, 1].
	divisor = 4294967295.0
)

// LCG is a 32-bit linear congruential generator. The zero value is seeded with 0.
type LCG struct {
	state uint32
}

func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Next advances the state (mod 2^32) and returns it normalized into [0, 1].
func (g *LCG) Next() float64 {
	g.state = g.state*Multiplier + Increment
	return float64(g.state) / divisor
}

// State returns the current raw state.
func (g *LCG) State() uint32 {
	return g.state
}

func Vector(seed uint32, n int) []float64 {
	if n <= 0 {
		return nil
	}
	g := NewLCG(seed)
	values := make([]float64, n)
	for i := range values {
		values[i] = g.Next()
	}
	return values
}

// Default returns the 784-element benchmark input.
func Default() []float64 {
	return Vector(DefaultSeed, DefaultLength)
}
