package capability

import "io"

// Construct5Func is the five-argument constructor export.
type Construct5Func func(layersJSON, activationsJSON, trainableJSON string, useGPU, exposeMethods bool) string

// Construct3Func is the three-argument constructor export.
type Construct3Func func(layersJSON, activationsJSON, trainableJSON string) string

// DispatchFunc is the generic call export. A NULL reply is returned as "".
type DispatchFunc func(handle int64, method, argsJSON string) string

// Library is a loaded library that can be probed for exports by name.
//
// Functions obtained from a Library must not be called after Close.
type Library interface {
	io.Closer

	LookupConstruct5(name string) (Construct5Func, bool)
	LookupConstruct3(name string) (Construct3Func, bool)
	LookupDispatch(name string) (DispatchFunc, bool)
}
