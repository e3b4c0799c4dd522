package solver

import (
	"sort"
	"sync"
	"sync/atomic"

	"topo_precompute/pkg/poi"
	"topo_precompute/pkg/topo"
)

// pairKey names one unordered POI pair, smaller ID first.
type pairKey [2]string

// Aggregator merges result batches into the output POI graph. One coarse
// mutex guards the record table; merging one batch is the atomic unit of
// mutation. The completion counter is independent of the lock so progress
// polling never contends with merging.
type Aggregator struct {
	mu      sync.Mutex
	out     *topo.Graph
	records map[pairKey]CostRecord
	built   bool
	done    atomic.Int64
	total   int
}

// NewAggregator builds an empty output graph holding every POI node.
// Node attributes are copied from the POI set, never aliased.
func NewAggregator(pois poi.Set) *Aggregator {
	out := topo.NewGraph()
	for _, id := range pois.SortedIDs() {
		p := pois[id]
		out.AddNode(&topo.Node{ID: id, Kind: p.Node.Kind, Attrs: p.Node.CloneAttrs()})
	}
	return &Aggregator{
		out:     out,
		records: make(map[pairKey]CostRecord, len(pois)*(len(pois)+1)/2),
		total:   len(pois),
	}
}

// Merge writes one source's cost batch into the record table. Each pair
// is computed from both endpoints, and when equal-weight shortest paths
// tie the two directions can disagree on latency; the value computed from
// the lexicographically smaller endpoint is canonical. The other
// direction's value stands in only until the canonical batch lands, so
// the stored record never depends on merge arrival order.
func (a *Aggregator) Merge(b Batch) {
	a.mu.Lock()
	for dest, rec := range b.Costs {
		lo, hi := b.Source, dest
		if hi < lo {
			lo, hi = hi, lo
		}
		key := pairKey{lo, hi}
		if b.Source == lo {
			a.records[key] = rec
		} else if _, ok := a.records[key]; !ok {
			a.records[key] = rec
		}
	}
	a.mu.Unlock()

	a.done.Add(1)
}

// Completed returns how many sources have been fully merged.
func (a *Aggregator) Completed() int64 { return a.done.Load() }

// Total returns the number of sources expected.
func (a *Aggregator) Total() int { return a.total }

// Graph materializes the record table into the output graph and returns
// it. Callers must not call this before the pool has been joined; after
// that the graph is frozen and safe to read. Repeated calls return the
// same graph.
func (a *Aggregator) Graph() *topo.Graph {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return a.out
	}
	a.built = true

	keys := make([]pairKey, 0, len(a.records))
	for k := range a.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, k := range keys {
		rec := a.records[k]
		// Both endpoints are POI nodes added in NewAggregator, so
		// AddEdge cannot fail on an unknown endpoint.
		_ = a.out.AddEdge(&topo.Edge{
			From:    k[0],
			To:      k[1],
			Weight:  rec.Latency,
			Latency: rec.Latency,
			Jitter:  rec.Jitter,
			Attrs:   map[string]any{},
		})
	}
	a.out.Normalize()
	return a.out
}
