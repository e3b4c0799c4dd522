package postprocess

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"topo_precompute/pkg/topo"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

// buildResultFixture builds a small complete POI graph with self edges,
// as the aggregator produces.
func buildResultFixture(t *testing.T) *topo.Graph {
	t.Helper()
	g := topo.NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(&topo.Node{ID: id, Kind: topo.KindRelay})
	}
	add := func(from, to string, latency float64) {
		require.NoError(t, g.AddEdge(&topo.Edge{From: from, To: to, Weight: latency, Latency: latency, Jitter: 0.2}))
	}
	add("a", "a", 0.01)
	add("b", "b", 0.01)
	add("c", "c", 0.01)
	add("a", "b", 10)
	add("a", "c", 30)
	add("b", "c", 20)
	return g
}

func TestRepairHealthyGraphUntouched(t *testing.T) {
	g := buildResultFixture(t)
	require.NoError(t, Repair(g, discardLogger()))
	require.Equal(t, 10.0, g.FindEdge("a", "b").Latency)
	require.Equal(t, 0.01, g.FindEdge("a", "a").Latency)
}

func TestRepairDegenerateCrossPair(t *testing.T) {
	g := buildResultFixture(t)
	bad := g.FindEdge("a", "b")
	bad.Latency = 0

	require.NoError(t, Repair(g, discardLogger()))

	// Replaced by the mean of the healthy cross-pair edges: (30+20)/2.
	require.Equal(t, 25.0, bad.Latency)
	require.Equal(t, 25.0, bad.Weight)
	// Jitter untouched, self pairs untouched.
	require.Equal(t, 0.2, bad.Jitter)
	require.Equal(t, 0.01, g.FindEdge("a", "a").Latency)
	require.Equal(t, 0.01, g.FindEdge("b", "b").Latency)
}

func TestRepairDegenerateSelfPair(t *testing.T) {
	g := buildResultFixture(t)
	bad := g.FindEdge("c", "c")
	bad.Latency = -1

	require.NoError(t, Repair(g, discardLogger()))

	// Self-pair degenerates take the self-pair mean, never the cross mean.
	require.Equal(t, 0.01, bad.Latency)
	require.Equal(t, 10.0, g.FindEdge("a", "b").Latency)
}

func TestRepairClassIsolation(t *testing.T) {
	g := buildResultFixture(t)
	badSelf := g.FindEdge("a", "a")
	badCross := g.FindEdge("b", "c")
	badSelf.Latency = 0
	badCross.Latency = 0

	require.NoError(t, Repair(g, discardLogger()))

	// Self mean comes from b,b and c,c; cross mean from a-b and a-c.
	require.Equal(t, 0.01, badSelf.Latency)
	require.Equal(t, 20.0, badCross.Latency)
	require.Equal(t, 0.01, g.FindEdge("b", "b").Latency)
}

func TestRepairDisconnectedResult(t *testing.T) {
	g := topo.NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(&topo.Node{ID: id, Kind: topo.KindRelay})
	}
	require.NoError(t, g.AddEdge(&topo.Edge{From: "a", To: "b", Weight: 1, Latency: 1}))
	require.NoError(t, g.AddEdge(&topo.Edge{From: "c", To: "d", Weight: 1, Latency: 1}))

	err := Repair(g, discardLogger())
	require.ErrorIs(t, err, ErrDisconnectedResult)
}

func TestRepairSelfLoopsDoNotConnect(t *testing.T) {
	g := topo.NewGraph()
	g.AddNode(&topo.Node{ID: "a", Kind: topo.KindRelay})
	g.AddNode(&topo.Node{ID: "b", Kind: topo.KindRelay})
	require.NoError(t, g.AddEdge(&topo.Edge{From: "a", To: "a", Weight: 0.01, Latency: 0.01}))
	require.NoError(t, g.AddEdge(&topo.Edge{From: "b", To: "b", Weight: 0.01, Latency: 0.01}))

	err := Repair(g, discardLogger())
	require.ErrorIs(t, err, ErrDisconnectedResult)
}

func TestRepairUnrepairableClass(t *testing.T) {
	g := topo.NewGraph()
	g.AddNode(&topo.Node{ID: "a", Kind: topo.KindRelay})
	g.AddNode(&topo.Node{ID: "b", Kind: topo.KindRelay})
	// Only cross-pair edge is degenerate: no healthy mean to borrow.
	require.NoError(t, g.AddEdge(&topo.Edge{From: "a", To: "b", Weight: 0, Latency: 0}))

	err := Repair(g, discardLogger())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrDisconnectedResult)
}
