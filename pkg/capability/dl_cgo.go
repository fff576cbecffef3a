//go:build cgo && unix

package capability

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdbool.h>
#include <stdlib.h>

typedef char* (*paragon_construct5_fn)(const char*, const char*, const char*, bool, bool);
typedef char* (*paragon_construct3_fn)(const char*, const char*, const char*);
typedef char* (*paragon_dispatch_fn)(long long, const char*, const char*);

static void* paragon_dlopen(const char* path) {
	return dlopen(path, RTLD_NOW | RTLD_GLOBAL);
}

static void* paragon_dlsym(void* so, const char* name) {
	dlerror();
	void* p = dlsym(so, name);
	(void)dlerror();
	return p;
}

static const char* paragon_dlerror(void) {
	return dlerror();
}

static char* paragon_construct5(void* fn, const char* layers, const char* activations, const char* trainable, bool use_gpu, bool expose_methods) {
	return ((paragon_construct5_fn)fn)(layers, activations, trainable, use_gpu, expose_methods);
}

static char* paragon_construct3(void* fn, const char* layers, const char* activations, const char* trainable) {
	return ((paragon_construct3_fn)fn)(layers, activations, trainable);
}

static char* paragon_dispatch(void* fn, long long handle, const char* method, const char* args) {
	return ((paragon_dispatch_fn)fn)(handle, method, args);
}
*/
import "C"

import (
	"unsafe"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DynamicLibrary is a shared library opened with dlopen.
type DynamicLibrary struct {
	p unsafe.Pointer
}

var _ Library = (*DynamicLibrary)(nil)

// Open loads the shared library at path through the platform dynamic loader.
func Open(path string) (*DynamicLibrary, error) {
	path_cstr := C.CString(path)
	defer C.free(unsafe.Pointer(path_cstr))

	p := C.paragon_dlopen(path_cstr)
	if p == nil {
		return nil, status.Errorf(codes.Unavailable, "dlopen %q: %s", path, C.GoString(C.paragon_dlerror()))
	}
	return &DynamicLibrary{p: p}, nil
}

// OpenSelf returns a handle on the symbols already loaded into the process.
func OpenSelf() (*DynamicLibrary, error) {
	p := C.paragon_dlopen(nil)
	if p == nil {
		return nil, status.Errorf(codes.Unavailable, "dlopen of process symbols: %s", C.GoString(C.paragon_dlerror()))
	}
	return &DynamicLibrary{p: p}, nil
}

func (l *DynamicLibrary) lookup(name string) unsafe.Pointer {
	if l.p == nil {
		return nil
	}
	name_cstr := C.CString(name)
	defer C.free(unsafe.Pointer(name_cstr))
	return C.paragon_dlsym(l.p, name_cstr)
}

func (l *DynamicLibrary) LookupConstruct5(name string) (Construct5Func, bool) {
	fn := l.lookup(name)
	if fn == nil {
		return nil, false
	}
	return func(layersJSON, activationsJSON, trainableJSON string, useGPU, exposeMethods bool) string {
		layers_cstr := C.CString(layersJSON)
		defer C.free(unsafe.Pointer(layers_cstr))
		activations_cstr := C.CString(activationsJSON)
		defer C.free(unsafe.Pointer(activations_cstr))
		trainable_cstr := C.CString(trainableJSON)
		defer C.free(unsafe.Pointer(trainable_cstr))

		// The reply is owned by the library; it is copied, not freed.
		reply := C.paragon_construct5(fn, layers_cstr, activations_cstr, trainable_cstr, C.bool(useGPU), C.bool(exposeMethods))
		return C.GoString(reply)
	}, true
}

func (l *DynamicLibrary) LookupConstruct3(name string) (Construct3Func, bool) {
	fn := l.lookup(name)
	if fn == nil {
		return nil, false
	}
	return func(layersJSON, activationsJSON, trainableJSON string) string {
		layers_cstr := C.CString(layersJSON)
		defer C.free(unsafe.Pointer(layers_cstr))
		activations_cstr := C.CString(activationsJSON)
		defer C.free(unsafe.Pointer(activations_cstr))
		trainable_cstr := C.CString(trainableJSON)
		defer C.free(unsafe.Pointer(trainable_cstr))

		reply := C.paragon_construct3(fn, layers_cstr, activations_cstr, trainable_cstr)
		return C.GoString(reply)
	}, true
}

func (l *DynamicLibrary) LookupDispatch(name string) (DispatchFunc, bool) {
	fn := l.lookup(name)
	if fn == nil {
		return nil, false
	}
	return func(handle int64, method, argsJSON string) string {
		method_cstr := C.CString(method)
		defer C.free(unsafe.Pointer(method_cstr))
		args_cstr := C.CString(argsJSON)
		defer C.free(unsafe.Pointer(args_cstr))

		reply := C.paragon_dispatch(fn, C.longlong(handle), method_cstr, args_cstr)
		return C.GoString(reply)
	}, true
}

// Close releases the library. Functions looked up from it must not be used afterwards.
func (l *DynamicLibrary) Close() error {
	if l.p == nil {
		return nil
	}
	rc := C.dlclose(l.p)
	l.p = nil
	if rc != 0 {
		return status.Errorf(codes.Internal, "dlclose: %s", C.GoString(C.paragon_dlerror()))
	}
	return nil
}
