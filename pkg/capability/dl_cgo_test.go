//go:build cgo && unix

package capability_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k8s.io/examples/AI/paragonbench/pkg/capability"
	"k8s.io/examples/AI/paragonbench/pkg/network"
	"k8s.io/examples/AI/paragonbench/pkg/protocol"
)

// buildSharedLibrary compiles testdata/<name>.c into a shared library,
// skipping the test when no C compiler is available.
func buildSharedLibrary(t *testing.T, name string) string {
	t.Helper()

	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	ccPath, err := exec.LookPath(cc)
	if err != nil {
		t.Skipf("no C compiler (%s) on PATH: %v", cc, err)
	}

	src := filepath.Join("testdata", name+".c")
	out := filepath.Join(t.TempDir(), "lib"+name+".so")
	cmd := exec.Command(ccPath, "-shared", "-fPIC", "-o", out, src)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("building %s: %v\n%s", src, err, output)
	}
	return out
}

func TestLoadSharedLibrary(t *testing.T) {
	ctx := context.Background()
	path := buildSharedLibrary(t, "fakeparagon")

	r := capability.Load(ctx, path)
	defer r.Close()

	require.NoError(t, r.Err())
	assert.Equal(t, path, r.Path())

	table := r.Table()
	assert.False(t, table.Has(capability.Construct5))
	assert.Equal(t, "Teleport_NewNetworkFloat32_JSON", table.Export(capability.Construct3))
	assert.Equal(t, "Call", table.Export(capability.Dispatch))

	construct3, ok := table.Construct3()
	require.True(t, ok)
	reply := construct3(protocol.LayersJSON([]int{4, 2}), protocol.ActivationsJSON(2), protocol.TrainableJSON(2))
	assert.Equal(t, `{"result":{"id": 9}}`, reply)
	h := protocol.ParseHandle(reply)
	assert.Equal(t, protocol.Handle(9), h)

	rejected := construct3("[]", "[]", "[]")
	assert.Equal(t, protocol.InvalidHandle, protocol.ParseHandle(rejected))

	out, ok := table.Call0(h, protocol.MethodExtractOutput)
	require.True(t, ok)
	assert.Equal(t, "[[1,2,3]]", out)
	assert.Equal(t, []float64{1, 2, 3}, protocol.ParseVector(out, protocol.DefaultMaxValues))

	echo, ok := table.Call(h, "Echo", `["x",true]`)
	require.True(t, ok)
	assert.Equal(t, `9 Echo ["x",true]`, echo)

	// A NULL reply is an empty string, not a missing capability.
	empty, ok := table.Call0(h, protocol.MethodToggleGPU)
	assert.True(t, ok)
	assert.Equal(t, "", empty)

	construction, err := network.NewBuilder(table).Build(ctx, []int{784, 10})
	require.NoError(t, err)
	assert.Equal(t, network.StrategyConstruct3, construction.Strategy)
	assert.Equal(t, protocol.Handle(9), construction.Handle)

	require.NoError(t, r.Close())
	assert.True(t, table.Empty())
}

func TestLoadSharedLibraryConstruct5Flags(t *testing.T) {
	ctx := context.Background()
	path := buildSharedLibrary(t, "fakeparagon5")

	r := capability.Load(ctx, path)
	defer r.Close()
	require.NoError(t, r.Err())

	table := r.Table()
	assert.Equal(t, "Paragon_NewNetworkFloat32", table.Export(capability.Construct5))
	assert.False(t, table.Has(capability.Construct3))
	assert.False(t, table.Has(capability.Dispatch))

	construct5, ok := table.Construct5()
	require.True(t, ok)

	layers := protocol.LayersJSON([]int{784, 10})
	grid := []struct {
		useGPU, expose bool
		want           protocol.Handle
	}{
		{false, false, 100},
		{true, false, 110},
		{false, true, 101},
		{true, true, 111},
	}
	for _, g := range grid {
		reply := construct5(layers, protocol.ActivationsJSON(2), protocol.TrainableJSON(2), g.useGPU, g.expose)
		if got := protocol.ParseHandle(reply); got != g.want {
			t.Errorf("construct5(useGPU=%v, expose=%v) = %q, expected handle %d", g.useGPU, g.expose, reply, g.want)
		}
		assert.Contains(t, reply, `"layers":`+strconv.Itoa(len(layers)))
	}

	// Without a generic call, accelerator initialization is unavailable.
	_, ok = table.Call0(100, protocol.MethodInitializeGPU)
	assert.False(t, ok)
}

func TestLoadDefaultFallsBackToProcessSymbols(t *testing.T) {
	if lib, err := capability.Open(capability.DefaultLibraryName()); err == nil {
		lib.Close()
		t.Skipf("%s is installed on the loader path", capability.DefaultLibraryName())
	}

	r := capability.Load(context.Background(), "")
	defer r.Close()

	require.NoError(t, r.Err())
	assert.Equal(t, "", r.Path())
	assert.True(t, r.Table().Empty())
}
