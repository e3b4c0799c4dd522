package solver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"topo_precompute/pkg/topo"
)

// buildTransitFixture creates the solver test graph.
//
//	a1 --2-- r1 --3-- r2 --4-- s1
//	          \       /
//	           1     1
//	            \   /
//	              x          (x is untyped transit; r1-x-r2 beats r1-r2)
//	a2 --5-- r2
//
// Latencies equal weights; jitters annotated per edge.
func buildTransitFixture(t *testing.T) *topo.Graph {
	t.Helper()
	g := topo.NewGraph()
	for id, kind := range map[string]topo.Kind{
		"r1": topo.KindRelay, "r2": topo.KindRelay, "s1": topo.KindServer,
		"a1": topo.KindAggregation, "a2": topo.KindAggregation, "x": topo.KindOther,
	} {
		g.AddNode(&topo.Node{ID: id, Kind: kind, Attrs: map[string]any{topo.AttrType: string(kind)}})
	}
	edges := []struct {
		from, to       string
		weight, jitter float64
	}{
		{"a1", "r1", 2, 1.0},
		{"r1", "r2", 3, 2.0},
		{"r2", "s1", 4, 3.0},
		{"a2", "r2", 5, 4.0},
		{"r1", "x", 1, 0.5},
		{"x", "r2", 1, 0.5},
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(&topo.Edge{
			From: e.from, To: e.to, Weight: e.weight, Latency: e.weight, Jitter: e.jitter,
			Attrs: map[string]any{},
		}))
	}
	g.Normalize()
	return g
}

func TestShortestPathsUsesTransitNodes(t *testing.T) {
	g := buildTransitFixture(t)
	sr := shortestPaths(g, "r1")

	// r1→r2 direct costs 3; via the untyped transit node x it costs 2.
	require.Equal(t, 2.0, sr.dist["r2"])
	require.Equal(t, 6.0, sr.dist["s1"])
	require.Equal(t, 7.0, sr.dist["a2"])
}

func TestPathCostSumsLatencyAveragesJitter(t *testing.T) {
	g := buildTransitFixture(t)
	sr := shortestPaths(g, "a1")

	// a1→s1: a1-r1 (2, j1.0), r1-x (1, j0.5), x-r2 (1, j0.5), r2-s1 (4, j3.0).
	rec, ok := sr.pathCost("a1", "s1")
	require.True(t, ok)
	require.InDelta(t, 8.0, rec.Latency, 1e-12)
	require.InDelta(t, 1.25, rec.Jitter, 1e-12)
}

func TestPathCostUnreachable(t *testing.T) {
	g := buildTransitFixture(t)
	g.AddNode(&topo.Node{ID: "island", Kind: topo.KindServer})
	g.Normalize()

	sr := shortestPaths(g, "a1")
	_, ok := sr.pathCost("a1", "island")
	require.False(t, ok)
}

func TestValidateWeights(t *testing.T) {
	g := buildTransitFixture(t)
	require.NoError(t, ValidateWeights(g))

	require.NoError(t, g.AddEdge(&topo.Edge{From: "a1", To: "a2", Weight: -1, Latency: 1}))
	err := ValidateWeights(g)
	require.ErrorIs(t, err, ErrNegativeWeight)
}
