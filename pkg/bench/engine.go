// Package bench runs the baseline versus accelerated comparison for each
// benchmark shape and reports timing and divergence.
//
// Every case runs the same fixed sequence of states, strictly one after the
// other, so that timings are not disturbed by overlapping work.
package bench

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"k8s.io/examples/AI/paragonbench/pkg/capability"
	"k8s.io/examples/AI/paragonbench/pkg/network"
	"k8s.io/examples/AI/paragonbench/pkg/protocol"
)

// State is a step of a benchmark case.
type State string

const (
	StateConstructing    State = "constructing"
	StateAccelerating    State = "accelerating"
	StateBaselinePass    State = "baseline-pass"
	StateAcceleratedPass State = "accelerated-pass"
	StateComparing       State = "comparing"
	StateReporting       State = "reporting"
)

// Result holds everything measured for one shape.
type Result struct {
	Shape    Shape
	Strategy network.Strategy
	Handle   protocol.Handle
	// Err is set when the case stopped at construction.
	Err error

	InitReply  string
	InitMillis float64

	// AccelerationEnabled is set when the initialization call was bound and
	// did not reply with an error.
	AccelerationEnabled bool

	BaselineMillis    float64
	AcceleratedMillis float64
	BaselineReply     string
	AcceleratedReply  string
	BaselineOutput    []float64
	AcceleratedOutput []float64

	MeanAbsDiff float64
	MaxAbsDiff  float64
	Compared    int
}

// Failed reports whether the case stopped before running any pass.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Speedup is baseline/accelerated time, 0 if the accelerated time is 0.
func (r *Result) Speedup() float64 {
	return Speedup(r.BaselineMillis, r.AcceleratedMillis)
}

// Runner drives the library for each shape.
type Runner struct {
	table   *capability.Table
	builder *network.Builder

	forwardArgs string

	// MaxOutput bounds how many output values are decoded per reply.
	MaxOutput int
	// Warmup is the number of untimed Forward+ExtractOutput rounds before each timed pass.
	Warmup int
	// Probes are the optional calls tried after accelerator initialization.
	Probes []protocol.Probe
}

// NewRunner returns a Runner that feeds input to every network.
func NewRunner(table *capability.Table, input []float64) *Runner {
	return &Runner{
		table:       table,
		builder:     network.NewBuilder(table),
		forwardArgs: protocol.ForwardArgs(input),
		MaxOutput:   protocol.DefaultMaxValues,
		Probes:      protocol.AccelerationProbes(),
	}
}

// Run executes every shape in order. A failing shape does not stop the run;
// its Result carries the error and zero metrics. onResult, if not nil, is
// called after each case.
func (r *Runner) Run(ctx context.Context, suite []Shape, onResult func(*Result)) []*Result {
	log := klog.FromContext(ctx)

	results := make([]*Result, 0, len(suite))
	for _, shape := range suite {
		if err := ctx.Err(); err != nil {
			log.Info("benchmark interrupted", "remaining", len(suite)-len(results), "err", err)
			break
		}
		result := r.RunCase(ctx, shape)
		switch {
		case network.IsConstructionFailure(result.Err):
			log.Error(result.Err, "network not constructed, skipping case", "id", shape.ID, "shape", shape.Join("→"), "strategy", result.Strategy)
		case result.Failed():
			log.Error(result.Err, "skipping case", "id", shape.ID, "shape", shape.Join("→"))
		case !result.AccelerationEnabled:
			log.Info("accelerator not enabled, both passes may use the baseline path", "id", shape.ID, "initReply", result.InitReply)
		}
		if onResult != nil {
			onResult(result)
		}
		results = append(results, result)
	}
	return results
}

// RunCase benchmarks a single shape.
func (r *Runner) RunCase(ctx context.Context, shape Shape) *Result {
	log := klog.FromContext(ctx).WithValues("id", shape.ID)
	result := &Result{Shape: shape, Handle: protocol.InvalidHandle}

	log.V(2).Info("entering state", "state", StateConstructing)
	construction, err := r.builder.Build(ctx, shape.Widths)
	result.Strategy = construction.Strategy
	if err != nil {
		result.Err = err
		return result
	}
	h := construction.Handle
	result.Handle = h

	log.V(2).Info("entering state", "state", StateAccelerating)
	startInit := time.Now()
	initReply, ok := r.table.Call0(h, protocol.MethodInitializeGPU)
	result.InitMillis = millisSince(startInit)
	result.InitReply = initReply
	result.AccelerationEnabled = ok && !protocol.IsErrorReply(initReply)
	r.fireProbes(ctx, h)

	log.V(2).Info("entering state", "state", StateBaselinePass)
	result.BaselineReply, result.BaselineMillis = r.timedPass(h)

	log.V(2).Info("entering state", "state", StateAcceleratedPass)
	// Whether the toggle took effect is not observable; both passes may run the same path.
	if _, ok := r.table.Call0(h, protocol.MethodToggleGPU); !ok {
		log.V(2).Info("ToggleGPU unavailable, accelerated pass uses the current mode")
	}
	result.AcceleratedReply, result.AcceleratedMillis = r.timedPass(h)

	log.V(2).Info("entering state", "state", StateComparing)
	result.BaselineOutput = protocol.ParseVector(result.BaselineReply, r.MaxOutput)
	result.AcceleratedOutput = protocol.ParseVector(result.AcceleratedReply, r.MaxOutput)
	result.MeanAbsDiff, result.MaxAbsDiff, result.Compared = Divergence(result.BaselineOutput, result.AcceleratedOutput)

	log.V(2).Info("entering state", "state", StateReporting, "baselineMillis", result.BaselineMillis, "acceleratedMillis", result.AcceleratedMillis)
	return result
}

// fireProbes tries every acceleration probe. None of the replies are looked at.
func (r *Runner) fireProbes(ctx context.Context, h protocol.Handle) {
	log := klog.FromContext(ctx)
	for _, probe := range r.Probes {
		reply, ok := r.table.Call(h, probe.Method, probe.Args)
		if !ok {
			return
		}
		log.V(3).Info("probe", "method", probe.Method, "reply", reply)
	}
}

// timedPass runs the warm-up rounds, then one timed Forward+ExtractOutput,
// returning the raw output reply and elapsed milliseconds.
func (r *Runner) timedPass(h protocol.Handle) (string, float64) {
	for i := 0; i < r.Warmup; i++ {
		r.table.Call(h, protocol.MethodForward, r.forwardArgs)
		r.table.Call0(h, protocol.MethodExtractOutput)
	}

	start := time.Now()
	r.table.Call(h, protocol.MethodForward, r.forwardArgs)
	reply, _ := r.table.Call0(h, protocol.MethodExtractOutput)
	return reply, millisSince(start)
}

// millisSince uses the monotonic clock reading carried by start.
func millisSince(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1e6
}
