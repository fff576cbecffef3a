package capability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"k8s.io/examples/AI/paragonbench/pkg/capability"
	"k8s.io/examples/AI/paragonbench/pkg/capability/capabilitytest"
	"k8s.io/examples/AI/paragonbench/pkg/protocol"
)

func TestResolveOnlyConstruct3Alias(t *testing.T) {
	lib := capabilitytest.New(capabilitytest.ExportConstruct3("Teleport_NewNetworkFloat32_JSON"))

	table := capability.Resolve(lib)

	assert.False(t, table.Has(capability.Construct5))
	assert.True(t, table.Has(capability.Construct3))
	assert.False(t, table.Has(capability.Dispatch))
	assert.Equal(t, "Teleport_NewNetworkFloat32_JSON", table.Export(capability.Construct3))

	_, ok := table.Dispatch()
	assert.False(t, ok)
	reply, ok := table.Call0(1, protocol.MethodExtractOutput)
	assert.False(t, ok)
	assert.Empty(t, reply)
}

func TestResolvePrefersFirstAlias(t *testing.T) {
	lib := capabilitytest.New(
		capabilitytest.ExportDispatch("Call"),
		capabilitytest.ExportDispatch("Paragon_Call"),
		capabilitytest.ExportConstruct5("NewNetworkFloat32"),
		capabilitytest.ExportConstruct5("Teleport_NewNetworkFloat32"),
	)

	table := capability.Resolve(lib)

	assert.Equal(t, "Paragon_Call", table.Export(capability.Dispatch))
	assert.Equal(t, "Teleport_NewNetworkFloat32", table.Export(capability.Construct5))
	assert.False(t, table.Has(capability.Construct3))
}

func TestResolveIgnoresUnknownNames(t *testing.T) {
	lib := capabilitytest.New(
		capabilitytest.ExportDispatch("paragon_call"),
		capabilitytest.ExportConstruct3("NewNetwork"),
	)

	table := capability.Resolve(lib)
	assert.True(t, table.Empty())
}

func TestResolveNil(t *testing.T) {
	table := capability.Resolve(nil)
	assert.True(t, table.Empty())
	for _, c := range capability.Categories {
		assert.False(t, table.Has(c), "category %v", c)
	}
}

func TestTableCallUsesBoundDispatch(t *testing.T) {
	lib := capabilitytest.Full()
	table := capability.Resolve(lib)

	reply, ok := table.Call(0, protocol.MethodNewNetwork, protocol.ConstructArgs(
		protocol.LayersJSON([]int{3, 2}), protocol.ActivationsJSON(2), protocol.TrainableJSON(2), false, false))
	require.True(t, ok)
	assert.Equal(t, protocol.Handle(1), protocol.ParseHandle(reply))

	calls := lib.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Paragon_Call", calls[0].Export)
	assert.Equal(t, protocol.MethodNewNetwork, calls[0].Method)
}

func TestLoadMissingLibrary(t *testing.T) {
	ctx := context.Background()

	r := capability.Load(ctx, "/nonexistent/libparagon-missing.so")
	defer r.Close()

	require.Error(t, r.Err())
	assert.Equal(t, codes.Unavailable, status.Code(r.Err()))
	require.NotNil(t, r.Table())
	assert.True(t, r.Table().Empty())
}

func TestCloseUnbindsAndReleases(t *testing.T) {
	ctx := context.Background()
	lib := capabilitytest.Full()

	r := capability.NewResolver(ctx, lib)
	table := r.Table()
	require.False(t, table.Empty())

	require.NoError(t, r.Close())
	assert.True(t, lib.Closed())
	assert.True(t, table.Empty())
	_, ok := table.Call0(1, protocol.MethodToggleGPU)
	assert.False(t, ok)

	// Closing twice is harmless.
	require.NoError(t, r.Close())
}

func TestAliasesAreCopies(t *testing.T) {
	names := capability.Aliases(capability.Dispatch)
	names[0] = "changed"
	assert.Equal(t, "Paragon_Call", capability.Aliases(capability.Dispatch)[0])
}
