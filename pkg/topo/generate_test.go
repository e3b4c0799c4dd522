package topo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	spec := GenSpec{Relays: 6, Servers: 2, GeoCodes: []string{"us", "de"}, AggPerGeo: 3, Seed: 42}
	a := Generate(spec)
	b := Generate(spec)

	require.Equal(t, a.NodeIDs(), b.NodeIDs())
	require.Equal(t, a.NumEdges(), b.NumEdges())
	for i, ea := range a.Edges() {
		eb := b.Edges()[i]
		require.Equal(t, ea.From, eb.From)
		require.Equal(t, ea.To, eb.To)
		require.Equal(t, ea.Weight, eb.Weight)
		require.Equal(t, ea.Jitter, eb.Jitter)
	}
}

func TestGenerateShape(t *testing.T) {
	g := Generate(GenSpec{Relays: 4, Servers: 2, GeoCodes: []string{"us", "de", "jp"}, AggPerGeo: 2, Seed: 7})

	kinds := make(map[Kind]int)
	codes := make(map[string]bool)
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		kinds[n.Kind]++
		if c := n.GeoCode(); c != "" {
			codes[c] = true
		}
	}
	require.Equal(t, 4, kinds[KindRelay])
	require.Equal(t, 2, kinds[KindServer])
	require.Equal(t, 6, kinds[KindAggregation])
	require.Len(t, codes, 3)

	// Every aggregation node has positive-cost links.
	for _, e := range g.Edges() {
		require.Greater(t, e.Weight, 0.0)
		require.Greater(t, e.Latency, 0.0)
	}
}
