// Package network builds networks inside the library through whichever
// constructor the capability table offers.
package network

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog/v2"

	"k8s.io/examples/AI/paragonbench/pkg/capability"
	"k8s.io/examples/AI/paragonbench/pkg/protocol"
)

// Strategy is the constructor used to build a network.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyConstruct5
	StrategyConstruct3
	StrategyDispatch
)

func (s Strategy) String() string {
	switch s {
	case StrategyConstruct5:
		return "construct5"
	case StrategyConstruct3:
		return "construct3"
	case StrategyDispatch:
		return "call"
	default:
		return "none"
	}
}

var (
	// ErrNoConstructor is returned when the library exports no constructor at all.
	ErrNoConstructor = status.Error(codes.Unimplemented, "library exports no network constructor")
	// ErrConstructionFailed is returned when the constructor reply holds no valid handle.
	ErrConstructionFailed = status.Error(codes.FailedPrecondition, "network construction failed")
)

// SelectStrategy picks the constructor to use. It depends only on the table.
func SelectStrategy(table *capability.Table) Strategy {
	switch {
	case table.Has(capability.Construct5):
		return StrategyConstruct5
	case table.Has(capability.Construct3):
		return StrategyConstruct3
	case table.Has(capability.Dispatch):
		return StrategyDispatch
	default:
		return StrategyNone
	}
}

// Construction is the outcome of one Build.
type Construction struct {
	Handle   protocol.Handle
	Strategy Strategy
	// Reply is the raw constructor reply.
	Reply string
}

type Builder struct {
	table *capability.Table

	// PreferGPU and ExposeMethods are passed to constructors that accept them.
	PreferGPU     bool
	ExposeMethods bool
}

func NewBuilder(table *capability.Table) *Builder {
	return &Builder{table: table}
}

// Build creates a network with the given layer widths. The returned
// Construction is filled even on error, with Handle set to InvalidHandle.
func (b *Builder) Build(ctx context.Context, widths []int) (Construction, error) {
	log := klog.FromContext(ctx)

	result := Construction{
		Handle:   protocol.InvalidHandle,
		Strategy: SelectStrategy(b.table),
	}
	if len(widths) < 2 {
		return result, status.Errorf(codes.InvalidArgument, "network needs at least 2 layers, got %d", len(widths))
	}

	layers := protocol.LayersJSON(widths)
	activations := protocol.ActivationsJSON(len(widths))
	trainable := protocol.TrainableJSON(len(widths))

	switch result.Strategy {
	case StrategyConstruct5:
		construct, _ := b.table.Construct5()
		result.Reply = construct(layers, activations, trainable, b.PreferGPU, b.ExposeMethods)
	case StrategyConstruct3:
		construct, _ := b.table.Construct3()
		result.Reply = construct(layers, activations, trainable)
	case StrategyDispatch:
		args := protocol.ConstructArgs(layers, activations, trainable, b.PreferGPU, b.ExposeMethods)
		result.Reply, _ = b.table.Call(0, protocol.MethodNewNetwork, args)
	default:
		return result, ErrNoConstructor
	}

	log.V(2).Info("constructor replied", "strategy", result.Strategy, "export", b.export(result.Strategy), "reply", result.Reply)

	result.Handle = protocol.ParseHandle(result.Reply)
	if !result.Handle.Valid() {
		result.Handle = protocol.InvalidHandle
		return result, fmt.Errorf("%w: %s returned %q", ErrConstructionFailed, result.Strategy, result.Reply)
	}
	return result, nil
}

func (b *Builder) export(s Strategy) string {
	switch s {
	case StrategyConstruct5:
		return b.table.Export(capability.Construct5)
	case StrategyConstruct3:
		return b.table.Export(capability.Construct3)
	case StrategyDispatch:
		return b.table.Export(capability.Dispatch)
	}
	return ""
}

// IsConstructionFailure reports whether err came from a failed or impossible construction.
func IsConstructionFailure(err error) bool {
	return errors.Is(err, ErrConstructionFailed) || errors.Is(err, ErrNoConstructor)
}
