//go:build !cgo || !unix

package capability

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DynamicLibrary is unavailable in builds without cgo; every open fails and
// the run continues with no capabilities.
type DynamicLibrary struct{}

var _ Library = (*DynamicLibrary)(nil)

func Open(path string) (*DynamicLibrary, error) {
	return nil, status.Errorf(codes.Unavailable, "loading %q: dynamic loading requires cgo on a unix platform", path)
}

func OpenSelf() (*DynamicLibrary, error) {
	return nil, status.Errorf(codes.Unavailable, "loading process symbols: dynamic loading requires cgo on a unix platform")
}

func (l *DynamicLibrary) LookupConstruct5(name string) (Construct5Func, bool) { return nil, false }
func (l *DynamicLibrary) LookupConstruct3(name string) (Construct3Func, bool) { return nil, false }
func (l *DynamicLibrary) LookupDispatch(name string) (DispatchFunc, bool)     { return nil, false }
func (l *DynamicLibrary) Close() error                                        { return nil }
