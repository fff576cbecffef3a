// Package capability loads the network library and records which of its
// historically observed entry points are present.
//
// Missing exports, and even a library that fails to load, are normal states:
// the resulting Table simply reports those capabilities as unbound.
package capability

import (
	"context"
	"runtime"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog/v2"
)

// Resolver owns a loaded library and the Table resolved from it.
type Resolver struct {
	path    string
	lib     Library
	table   *Table
	loadErr error
}

// Load opens the library at path and resolves its capabilities. An empty path
// uses the default library name, then the symbols already loaded into the
// process. Load never fails; a load error is kept in Err and the table is
// left unbound.
func Load(ctx context.Context, path string) *Resolver {
	log := klog.FromContext(ctx)

	lib, resolvedPath, err := open(path)
	if err != nil {
		log.Error(err, "library not loaded, continuing without it", "path", path)
		return &Resolver{
			path:    path,
			table:   Resolve(nil),
			loadErr: err,
		}
	}

	r := NewResolver(ctx, lib)
	r.path = resolvedPath
	return r
}

// NewResolver resolves the capabilities of an already opened library and
// takes ownership of it.
func NewResolver(ctx context.Context, lib Library) *Resolver {
	log := klog.FromContext(ctx)

	table := Resolve(lib)
	for _, c := range Categories {
		if table.Has(c) {
			log.V(2).Info("resolved capability", "category", c, "export", table.Export(c))
		} else {
			log.V(2).Info("capability not found", "category", c, "aliases", aliases[c])
		}
	}
	if table.Empty() {
		log.Info("no compatible exports found", "construct5", aliases[Construct5], "construct3", aliases[Construct3], "call", aliases[Dispatch])
	}
	return &Resolver{lib: lib, table: table}
}

// Table returns the resolved capabilities. It is never nil.
func (r *Resolver) Table() *Table {
	return r.table
}

// Path returns the path the library was loaded from, if known.
func (r *Resolver) Path() string {
	return r.path
}

// Err returns the error that prevented the library from loading, if any.
func (r *Resolver) Err() error {
	return r.loadErr
}

// Close unbinds every capability and releases the library.
func (r *Resolver) Close() error {
	r.table.reset()
	if r.lib == nil {
		return nil
	}
	lib := r.lib
	r.lib = nil
	return lib.Close()
}

// DefaultLibraryName is the unqualified name tried when no path is given.
func DefaultLibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libparagon.dylib"
	case "windows":
		return "paragon.dll"
	default:
		return "libparagon.so"
	}
}

func open(path string) (Library, string, error) {
	if path != "" {
		lib, err := Open(path)
		if err != nil {
			return nil, "", err
		}
		return lib, path, nil
	}

	name := DefaultLibraryName()
	lib, err := Open(name)
	if err == nil {
		return lib, name, nil
	}
	self, selfErr := OpenSelf()
	if selfErr != nil {
		return nil, "", status.Errorf(codes.Unavailable, "loading default library %q: %v (process symbols: %v)", name, err, selfErr)
	}
	return self, "", nil
}
