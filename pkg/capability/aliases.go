package capability

// Category is a kind of entry point the library may export.
type Category int

const (
	// Construct5 builds a network from (layers, activations, trainable, useGPU, exposeMethods).
	Construct5 Category = iota
	// Construct3 builds a network from (layers, activations, trainable).
	Construct3
	// Dispatch is the generic (handle, method, args) call.
	Dispatch
)

// Categories lists every category in probing order.
var Categories = []Category{Construct5, Construct3, Dispatch}

func (c Category) String() string {
	switch c {
	case Construct5:
		return "construct-5-arg"
	case Construct3:
		return "construct-3-arg"
	case Dispatch:
		return "generic-call"
	default:
		return "unknown"
	}
}

// Export names have changed between library builds; every name seen so far is
// listed here, in the order they are probed.
var aliases = map[Category][]string{
	Construct5: {
		"Paragon_NewNetworkFloat32",
		"Teleport_NewNetworkFloat32",
		"NewNetworkFloat32",
	},
	Construct3: {
		"Paragon_NewNetworkFloat32_JSON",
		"Teleport_NewNetworkFloat32_JSON",
		"NewNetworkFloat32_JSON",
	},
	Dispatch: {
		"Paragon_Call",
		"Teleport_Call",
		"Call",
	},
}

// Aliases returns the export names probed for c, in priority order.
func Aliases(c Category) []string {
	return append([]string(nil), aliases[c]...)
}
