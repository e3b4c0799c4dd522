package solver

import (
	"errors"
	"fmt"
	"math"

	"topo_precompute/pkg/topo"
)

// ErrNegativeWeight indicates a negative edge weight in the input graph.
// Shortest-path search requires non-negative weights; this is a fatal
// input error, not a per-source failure.
var ErrNegativeWeight = errors.New("solver: negative edge weight")

// ValidateWeights scans all edges and fails fast on the first negative
// weight, before any worker starts.
func ValidateWeights(g *topo.Graph) error {
	for _, e := range g.Edges() {
		if e.Weight < 0 {
			return fmt.Errorf("edge %s--%s has weight %g: %w", e.From, e.To, e.Weight, ErrNegativeWeight)
		}
	}
	return nil
}

// searchResult holds the full single-source shortest-path table: distances
// plus the predecessor edge chain needed to walk each winning path.
type searchResult struct {
	dist     map[string]float64
	prevEdge map[string]*topo.Edge
}

// shortestPaths runs single-source Dijkstra from source over the full
// graph. Non-POI nodes are legitimate transit hops, so nothing is filtered
// here; callers cut the table down to the destinations they care about.
// Uses lazy decrease-key: duplicates are pushed and stale entries skipped.
// Equal-weight path ties resolve by traversal order and can differ between
// the two endpoints of a pair; the aggregator canonicalizes per pair.
func shortestPaths(g *topo.Graph, source string) searchResult {
	dist := make(map[string]float64, g.NumNodes())
	prevEdge := make(map[string]*topo.Edge, g.NumNodes())

	var pq minHeap
	dist[source] = 0
	pq.Push(source, 0)

	for pq.Len() > 0 {
		item := pq.Pop()
		u := item.Node
		if item.Dist > dist[u] {
			continue // stale entry
		}
		for _, arc := range g.Neighbors(u) {
			nd := item.Dist + arc.Edge.Weight
			cur, seen := dist[arc.To]
			if !seen || nd < cur {
				dist[arc.To] = nd
				prevEdge[arc.To] = arc.Edge
				pq.Push(arc.To, nd)
			}
		}
	}

	return searchResult{dist: dist, prevEdge: prevEdge}
}

// pathCost walks the recovered shortest path from source to dest in
// traversal order, summing per-edge latency and averaging per-edge jitter.
// Jitter models per-hop variance, so it is a mean, never a sum. Returns
// ok=false when dest was never reached.
func (sr searchResult) pathCost(source, dest string) (CostRecord, bool) {
	if _, ok := sr.dist[dest]; !ok {
		return CostRecord{}, false
	}

	// Trace dest back to source, then reverse for forward-order walk.
	var chain []*topo.Edge
	at := dest
	for at != source {
		e := sr.prevEdge[at]
		if e == nil {
			return CostRecord{}, false
		}
		chain = append(chain, e)
		at = e.Other(at)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	var latency, jitter float64
	for _, e := range chain {
		latency += e.Latency
		jitter += e.Jitter
	}
	if len(chain) > 0 {
		jitter /= float64(len(chain))
	}
	if math.IsNaN(latency) || math.IsNaN(jitter) {
		return CostRecord{}, false
	}
	return CostRecord{Latency: latency, Jitter: jitter}, true
}
