package capability

import "k8s.io/examples/AI/paragonbench/pkg/protocol"

// Table records which entry points were found. It is filled once by Resolve
// and only read afterwards.
type Table struct {
	construct5 Construct5Func
	construct3 Construct3Func
	dispatch   DispatchFunc

	exports map[Category]string
}

// Resolve probes lib for every category, stopping at the first alias found.
// A nil lib yields an all-unbound table.
func Resolve(lib Library) *Table {
	t := &Table{exports: make(map[Category]string)}
	if lib == nil {
		return t
	}

	for _, name := range aliases[Construct5] {
		if fn, ok := lib.LookupConstruct5(name); ok && fn != nil {
			t.construct5 = fn
			t.exports[Construct5] = name
			break
		}
	}
	for _, name := range aliases[Construct3] {
		if fn, ok := lib.LookupConstruct3(name); ok && fn != nil {
			t.construct3 = fn
			t.exports[Construct3] = name
			break
		}
	}
	for _, name := range aliases[Dispatch] {
		if fn, ok := lib.LookupDispatch(name); ok && fn != nil {
			t.dispatch = fn
			t.exports[Dispatch] = name
			break
		}
	}
	return t
}

// Has reports whether c is bound.
func (t *Table) Has(c Category) bool {
	_, ok := t.exports[c]
	return ok
}

// Export returns the export name bound for c, or "" if unbound.
func (t *Table) Export(c Category) string {
	return t.exports[c]
}

// Empty reports whether no category is bound.
func (t *Table) Empty() bool {
	return len(t.exports) == 0
}

func (t *Table) Construct5() (Construct5Func, bool) {
	return t.construct5, t.construct5 != nil
}

func (t *Table) Construct3() (Construct3Func, bool) {
	return t.construct3, t.construct3 != nil
}

func (t *Table) Dispatch() (DispatchFunc, bool) {
	return t.dispatch, t.dispatch != nil
}

// Call invokes method through the generic call export. It returns false
// without calling anything when that export is unbound.
func (t *Table) Call(h protocol.Handle, method, argsJSON string) (string, bool) {
	if t.dispatch == nil {
		return "", false
	}
	return t.dispatch(int64(h), method, argsJSON), true
}

// Call0 invokes method with no arguments.
func (t *Table) Call0(h protocol.Handle, method string) (string, bool) {
	return t.Call(h, method, protocol.NoArgs)
}

func (t *Table) reset() {
	t.construct5 = nil
	t.construct3 = nil
	t.dispatch = nil
	t.exports = make(map[Category]string)
}
