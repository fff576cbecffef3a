// Package capabilitytest provides an in-process capability.Library for tests.
//
// It exports whichever entry point names a test asks for and implements the
// library's call protocol with small dense networks: the default path
// evaluates in float64, the path selected by ToggleGPU evaluates in float32,
// so the two outputs differ slightly like a real accelerated backend would.
package capabilitytest

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"k8s.io/examples/AI/paragonbench/pkg/capability"
	"k8s.io/examples/AI/paragonbench/pkg/fixedinput"
	"k8s.io/examples/AI/paragonbench/pkg/protocol"
)

// Call is one recorded invocation of an export.
type Call struct {
	Export string
	Handle int64
	Method string
	Args   string
}

type Library struct {
	construct5 []string
	construct3 []string
	dispatch   []string

	// HandleReply formats the reply to a successful construction.
	HandleReply func(handle int64) string
	// InitReply is returned by InitializeOptimizedGPU.
	InitReply string
	// FailConstruction makes every constructor reply with an error object.
	FailConstruction bool

	networks   map[int64]*network
	nextHandle int64
	calls      []Call
	closed     bool
}

var _ capability.Library = (*Library)(nil)

type Option func(*Library)

// ExportConstruct5 exports the five-argument constructor under name.
func ExportConstruct5(name string) Option {
	return func(l *Library) { l.construct5 = append(l.construct5, name) }
}

// ExportConstruct3 exports the three-argument constructor under name.
func ExportConstruct3(name string) Option {
	return func(l *Library) { l.construct3 = append(l.construct3, name) }
}

// ExportDispatch exports the generic call under name.
func ExportDispatch(name string) Option {
	return func(l *Library) { l.dispatch = append(l.dispatch, name) }
}

// New returns a library exporting the names selected by opts.
func New(opts ...Option) *Library {
	l := &Library{
		HandleReply: func(handle int64) string { return fmt.Sprintf(`{"handle":%d}`, handle) },
		InitReply:   `{"adapter":"capabilitytest"}`,
		networks:    make(map[int64]*network),
		nextHandle:  1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Full returns a library exporting the first alias of every category.
func Full() *Library {
	return New(
		ExportConstruct5(capability.Aliases(capability.Construct5)[0]),
		ExportConstruct3(capability.Aliases(capability.Construct3)[0]),
		ExportDispatch(capability.Aliases(capability.Dispatch)[0]),
	)
}

// Calls returns every invocation so far, in order.
func (l *Library) Calls() []Call {
	return slices.Clone(l.calls)
}

// Methods returns the method names of the recorded generic calls.
func (l *Library) Methods() []string {
	var methods []string
	for _, c := range l.calls {
		if c.Method != "" {
			methods = append(methods, c.Method)
		}
	}
	return methods
}

// Closed reports whether Close was called.
func (l *Library) Closed() bool {
	return l.closed
}

func (l *Library) LookupConstruct5(name string) (capability.Construct5Func, bool) {
	if !slices.Contains(l.construct5, name) {
		return nil, false
	}
	return func(layersJSON, activationsJSON, trainableJSON string, useGPU, exposeMethods bool) string {
		l.calls = append(l.calls, Call{Export: name, Args: layersJSON})
		return l.construct(layersJSON, activationsJSON, useGPU)
	}, true
}

func (l *Library) LookupConstruct3(name string) (capability.Construct3Func, bool) {
	if !slices.Contains(l.construct3, name) {
		return nil, false
	}
	return func(layersJSON, activationsJSON, trainableJSON string) string {
		l.calls = append(l.calls, Call{Export: name, Args: layersJSON})
		return l.construct(layersJSON, activationsJSON, false)
	}, true
}

func (l *Library) LookupDispatch(name string) (capability.DispatchFunc, bool) {
	if !slices.Contains(l.dispatch, name) {
		return nil, false
	}
	return func(handle int64, method, argsJSON string) string {
		l.calls = append(l.calls, Call{Export: name, Handle: handle, Method: method, Args: argsJSON})
		return l.dispatchCall(handle, method, argsJSON)
	}, true
}

func (l *Library) Close() error {
	l.closed = true
	return nil
}

func (l *Library) construct(layersJSON, activationsJSON string, accelerated bool) string {
	if l.closed {
		return ""
	}
	if l.FailConstruction {
		return errorReply("construction disabled")
	}

	var layers []protocol.Layer
	if err := json.Unmarshal([]byte(layersJSON), &layers); err != nil {
		return errorReply(fmt.Sprintf("decoding layers: %v", err))
	}
	var activations []string
	if err := json.Unmarshal([]byte(activationsJSON), &activations); err != nil {
		return errorReply(fmt.Sprintf("decoding activations: %v", err))
	}
	if len(layers) < 2 || len(layers) != len(activations) {
		return errorReply(fmt.Sprintf("%d layers with %d activations", len(layers), len(activations)))
	}

	widths := make([]int, len(layers))
	for i, layer := range layers {
		if layer.Width <= 0 || layer.Height != 1 {
			return errorReply(fmt.Sprintf("layer %d has unsupported shape %dx%d", i, layer.Width, layer.Height))
		}
		widths[i] = layer.Width
	}

	handle := l.nextHandle
	l.nextHandle++
	n := newNetwork(widths, activations)
	n.accelerated = accelerated
	l.networks[handle] = n
	return l.HandleReply(handle)
}

func (l *Library) dispatchCall(handle int64, method, argsJSON string) string {
	if l.closed {
		return ""
	}

	if handle == 0 && method == protocol.MethodNewNetwork {
		var args []json.RawMessage
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil || len(args) < 2 {
			return errorReply("NewNetworkFloat32 expects [layers, activations, trainable, useGPU, exposeMethods]")
		}
		accelerated := false
		if len(args) > 3 {
			_ = json.Unmarshal(args[3], &accelerated)
		}
		return l.construct(string(args[0]), string(args[1]), accelerated)
	}

	n, ok := l.networks[handle]
	if !ok {
		return errorReply(fmt.Sprintf("unknown handle %d", handle))
	}

	switch method {
	case protocol.MethodInitializeGPU:
		return l.InitReply

	case protocol.MethodToggleGPU:
		n.accelerated = !n.accelerated
		return "[]"

	case protocol.MethodForward:
		var args [][][]float64
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil || len(args) != 1 || len(args[0]) != 1 {
			return errorReply("Forward expects a single-sample batch")
		}
		input := args[0][0]
		if len(input) != n.widths[0] {
			return errorReply(fmt.Sprintf("input has %d values, expected %d", len(input), n.widths[0]))
		}
		n.output = n.forward(input)
		return "[]"

	case protocol.MethodExtractOutput:
		data, err := json.Marshal([][]float64{n.output})
		if err != nil {
			return errorReply(err.Error())
		}
		return string(data)

	default:
		return errorReply(fmt.Sprintf("unknown method %q", method))
	}
}

func errorReply(msg string) string {
	data, _ := json.Marshal(map[string]string{"error": msg})
	return string(data)
}

// weightSeed makes every network with the same shape identical.
const weightSeed = 7

type network struct {
	widths      []int
	activations []string
	weights     []*mat.Dense
	biases      []*mat.VecDense

	accelerated bool
	output      []float64
}

func newNetwork(widths []int, activations []string) *network {
	g := fixedinput.NewLCG(weightSeed)
	n := &network{widths: widths, activations: activations}
	for i := 0; i+1 < len(widths); i++ {
		in, out := widths[i], widths[i+1]
		scale := 2 / math.Sqrt(float64(in))
		w := make([]float64, out*in)
		for j := range w {
			w[j] = (g.Next() - 0.5) * scale
		}
		b := make([]float64, out)
		for j := range b {
			b[j] = (g.Next() - 0.5) * 0.1
		}
		n.weights = append(n.weights, mat.NewDense(out, in, w))
		n.biases = append(n.biases, mat.NewVecDense(out, b))
	}
	return n
}

func (n *network) forward(input []float64) []float64 {
	if n.accelerated {
		return n.forward32(input)
	}
	return n.forward64(input)
}

func (n *network) forward64(input []float64) []float64 {
	x := mat.NewVecDense(len(input), slices.Clone(input))
	for i, w := range n.weights {
		rows, _ := w.Dims()
		y := mat.NewVecDense(rows, nil)
		y.MulVec(w, x)
		y.AddVec(y, n.biases[i])
		x = mat.NewVecDense(rows, activate(n.activations[i+1], y.RawVector().Data))
	}
	return slices.Clone(x.RawVector().Data)
}

func (n *network) forward32(input []float64) []float64 {
	x := make([]float32, len(input))
	for i, v := range input {
		x[i] = float32(v)
	}
	for i, w := range n.weights {
		rows, cols := w.Dims()
		y := make([]float64, rows)
		for r := 0; r < rows; r++ {
			sum := float32(n.biases[i].AtVec(r))
			for c := 0; c < cols; c++ {
				sum += float32(w.At(r, c)) * x[c]
			}
			y[r] = float64(sum)
		}
		y = activate(n.activations[i+1], y)
		x = x[:0]
		for _, v := range y {
			x = append(x, float32(v))
		}
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}

func activate(name string, values []float64) []float64 {
	out := slices.Clone(values)
	switch name {
	case protocol.ActivationReLU:
		for i, v := range out {
			if v < 0 {
				out[i] = 0
			}
		}
	case protocol.ActivationSoftmax:
		m := math.Inf(-1)
		for _, v := range out {
			m = math.Max(m, v)
		}
		sum := 0.0
		for i, v := range out {
			out[i] = math.Exp(v - m)
			sum += out[i]
		}
		for i := range out {
			out[i] /= sum
		}
	}
	return out
}
