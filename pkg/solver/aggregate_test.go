package solver

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"topo_precompute/pkg/poi"
	"topo_precompute/pkg/topo"
)

func TestAggregatorConcurrentMerges(t *testing.T) {
	const n = 32
	set := make(poi.Set, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("poi%02d", i)
		set[id] = poi.Point{Node: &topo.Node{ID: id, Kind: topo.KindRelay}, Anchor: id}
	}

	agg := NewAggregator(set)
	require.Equal(t, n, agg.Total())

	ids := set.SortedIDs()
	var wg sync.WaitGroup
	for _, src := range ids {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			costs := make(map[string]CostRecord, n)
			for _, dst := range ids {
				if dst == src {
					costs[dst] = CostRecord{Latency: DefaultSelfLatency}
					continue
				}
				costs[dst] = CostRecord{Latency: 5, Jitter: 1}
			}
			agg.Merge(Batch{Source: src, Costs: costs})
		}(src)
	}
	wg.Wait()

	require.Equal(t, int64(n), agg.Completed())
	out := agg.Graph()
	require.Equal(t, n, out.NumNodes())
	// Each unordered pair stored exactly once despite symmetric writes
	// racing from both sides.
	require.Equal(t, n*(n+1)/2, out.NumEdges())
}

// Tied shortest paths can make the two directions of a pair disagree on
// latency. The value from the lexicographically smaller endpoint must win
// no matter which batch a collector merges first.
func TestAggregatorMergeOrderIndependent(t *testing.T) {
	fromA := Batch{Source: "a", Costs: map[string]CostRecord{
		"a": {Latency: DefaultSelfLatency},
		"b": {Latency: 10, Jitter: 2},
	}}
	fromB := Batch{Source: "b", Costs: map[string]CostRecord{
		"a": {Latency: 2, Jitter: 1},
		"b": {Latency: DefaultSelfLatency},
	}}

	for _, order := range [][]Batch{{fromA, fromB}, {fromB, fromA}} {
		set := poi.Set{
			"a": poi.Point{Node: &topo.Node{ID: "a", Kind: topo.KindRelay}, Anchor: "a"},
			"b": poi.Point{Node: &topo.Node{ID: "b", Kind: topo.KindRelay}, Anchor: "b"},
		}
		agg := NewAggregator(set)
		for _, b := range order {
			agg.Merge(b)
		}
		out := agg.Graph()

		e := out.FindEdge("a", "b")
		require.NotNil(t, e)
		require.Equal(t, 10.0, e.Latency)
		require.Equal(t, 2.0, e.Jitter)
	}
}

func TestAggregatorCopiesNodeAttributes(t *testing.T) {
	src := &topo.Node{ID: "a", Kind: topo.KindClient, Attrs: map[string]any{topo.AttrGeoCode: "us"}}
	set := poi.Set{"a": poi.Point{Node: src, Anchor: "a"}}

	agg := NewAggregator(set)
	out := agg.Graph()
	out.Node("a").Attrs[topo.AttrGeoCode] = "xx"
	require.Equal(t, "us", src.Attrs[topo.AttrGeoCode])
}
