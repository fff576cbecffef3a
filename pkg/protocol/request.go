package protocol

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Method names understood by the library's generic call entry point.
const (
	MethodNewNetwork    = "NewNetworkFloat32"
	MethodInitializeGPU = "InitializeOptimizedGPU"
	MethodForward       = "Forward"
	MethodExtractOutput = "ExtractOutput"
	MethodToggleGPU     = "ToggleGPU"
	MethodSetWebGPU     = "SetWebGPUNative"
	MethodWebGPUOn      = "WebGPUNativeOn"
	MethodConfigure     = "Configure"
	MethodSetOptions    = "SetOptions"
	MethodSetField      = "SetField"
	MethodCall          = "Call"
)

const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSoftmax = "softmax"
)

const acceleratedFieldName = "WebGPUNative"

// NoArgs is the argument list of a call without arguments.
const NoArgs = "[]"

// Layer is one entry of the layer descriptor array.
type Layer struct {
	Width  int `json:"Width"`
	Height int `json:"Height"`
}

// Layers describes each width as a Width x 1 layer.
func Layers(widths []int) []Layer {
	layers := make([]Layer, len(widths))
	for i, w := range widths {
		layers[i] = Layer{Width: w, Height: 1}
	}
	return layers
}

// Activations returns "linear" for the input layer, "softmax" for the output
// layer and "relu" in between.
func Activations(n int) []string {
	activations := make([]string, n)
	for i := range activations {
		switch {
		case i == 0:
			activations[i] = ActivationLinear
		case i == n-1:
			activations[i] = ActivationSoftmax
		default:
			activations[i] = ActivationReLU
		}
	}
	return activations
}

func Trainable(n int) []bool {
	trainable := make([]bool, n)
	for i := range trainable {
		trainable[i] = true
	}
	return trainable
}

// LayersJSON encodes the layer descriptor array, e.g. [{"Width":784,"Height":1},...].
func LayersJSON(widths []int) string {
	return mustMarshal(Layers(widths))
}

func ActivationsJSON(n int) string {
	return mustMarshal(Activations(n))
}

func TrainableJSON(n int) string {
	return mustMarshal(Trainable(n))
}

// ConstructArgs is the ordered argument list used when the network is built
// through the generic call entry point.
func ConstructArgs(layersJSON, activationsJSON, trainableJSON string, useGPU, exposeMethods bool) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(layersJSON)
	b.WriteByte(',')
	b.WriteString(activationsJSON)
	b.WriteByte(',')
	b.WriteString(trainableJSON)
	b.WriteByte(',')
	b.WriteString(strconv.FormatBool(useGPU))
	b.WriteByte(',')
	b.WriteString(strconv.FormatBool(exposeMethods))
	b.WriteByte(']')
	return b.String()
}

// BatchJSON encodes values as a single-sample batch, [[v0,v1,...]]. Values are
// written with six decimals, the precision the reference benchmarks use.
func BatchJSON(values []float64) string {
	var b strings.Builder
	b.Grow(len(values)*9 + 4)
	b.WriteString("[[")
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', 6, 64))
	}
	b.WriteString("]]")
	return b.String()
}

// ForwardArgs is the argument list of a Forward call: the batch is its only argument.
func ForwardArgs(values []float64) string {
	return "[" + BatchJSON(values) + "]"
}

// Probe is an optional call that may switch the network to its accelerated
// path. Libraries expose this under different conventions, so several are tried.
type Probe struct {
	Method string
	Args   string
}

// AccelerationProbes returns the known ways of enabling the accelerated path.
func AccelerationProbes() []Probe {
	enable := mustMarshal([]map[string]bool{{acceleratedFieldName: true}})
	return []Probe{
		{Method: MethodSetWebGPU, Args: NoArgs},
		{Method: MethodWebGPUOn, Args: NoArgs},
		{Method: MethodConfigure, Args: enable},
		{Method: MethodSetOptions, Args: enable},
		{Method: MethodSetField, Args: `["` + acceleratedFieldName + `",true]`},
		{Method: MethodCall, Args: `["` + MethodSetWebGPU + `",[true]]`},
	}
}

// mustMarshal is only used on values that always encode.
func mustMarshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
