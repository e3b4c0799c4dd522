// Package solver fans single-source shortest-path jobs out to a fixed
// worker pool and streams per-source cost batches into a locked output
// graph. One task per POI acts as the search source; workers run Dijkstra
// over the full input graph and keep only POI destinations.
package solver

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"topo_precompute/pkg/poi"
	"topo_precompute/pkg/topo"
)

// stopMarker is the sentinel task telling a worker to exit after draining
// its remaining work. The empty string is never a valid node ID.
const stopMarker = ""

// DefaultSelfLatency is the latency assigned to zero-length paths (source
// POI == destination POI, or two POIs anchored at the same node). A flat
// zero would trip the degenerate-edge repair downstream.
const DefaultSelfLatency = 0.01

// CostRecord is the aggregated cost of the shortest path between two POIs.
type CostRecord struct {
	Latency float64
	Jitter  float64
}

// Batch is one source's complete destination cost map. Batches are only
// ever emitted whole; partial per-source results never cross the channel.
type Batch struct {
	Source string
	Costs  map[string]CostRecord
	stop   bool
}

// Config tunes a solver run.
type Config struct {
	Workers     int
	SelfLatency float64 // latency policy for zero-length paths
}

// Pool runs the distributed path computation for one POI set.
type Pool struct {
	g      *topo.Graph
	pois   poi.Set
	cfg    Config
	logger *log.Logger

	// sorted holds the POI IDs in sorted order; every worker walks
	// destinations in this order so batches are reproducible.
	sorted []string
}

// NewPool validates the input graph and prepares a pool. Returns
// ErrNegativeWeight if any edge weight is negative.
func NewPool(g *topo.Graph, pois poi.Set, cfg Config, logger *log.Logger) (*Pool, error) {
	if err := ValidateWeights(g); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SelfLatency <= 0 {
		cfg.SelfLatency = DefaultSelfLatency
	}

	return &Pool{g: g, pois: pois, cfg: cfg, logger: logger, sorted: pois.SortedIDs()}, nil
}

// Run executes all source tasks and blocks until every worker and
// collector has exited. Results land in agg as they are merged. Shutdown
// is graceful: stop markers follow the tasks onto the queue and no worker
// is interrupted mid-search. Cancelling ctx stops workers from picking up
// new tasks but lets in-flight searches finish.
func (p *Pool) Run(ctx context.Context, agg *Aggregator) {
	sources := p.sorted

	// Buffered so producers never block, even if a worker dies early.
	tasks := make(chan string, len(sources)+p.cfg.Workers)
	for _, id := range sources {
		tasks <- id
	}
	for i := 0; i < p.cfg.Workers; i++ {
		tasks <- stopMarker
	}
	close(tasks)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		results := make(chan Batch, 4)

		wg.Add(2)
		go func(worker int) {
			defer wg.Done()
			p.runWorker(ctx, worker, tasks, results)
		}(i)
		go func() {
			defer wg.Done()
			for b := range results {
				if b.stop {
					return
				}
				agg.Merge(b)
			}
		}()
	}
	wg.Wait()
}

// runWorker pulls tasks until it sees the stop marker. A panic while
// computing one source terminates only this worker; the missing completion
// counts surface as a stall at the driver.
func (p *Pool) runWorker(ctx context.Context, worker int, tasks <-chan string, results chan<- Batch) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker failed", "worker", worker, "panic", r)
		}
		results <- Batch{stop: true}
	}()

	for source := range tasks {
		if source == stopMarker {
			return
		}
		if ctx.Err() != nil {
			return
		}
		results <- p.computeSource(source)
	}
}

// computeSource runs one source POI's full shortest-path job and returns
// its complete destination cost map.
func (p *Pool) computeSource(source string) Batch {
	anchor := p.pois[source].Anchor
	sr := shortestPaths(p.g, anchor)

	costs := make(map[string]CostRecord, len(p.pois))
	for _, dest := range p.sorted {
		destAnchor := p.pois[dest].Anchor
		if destAnchor == anchor {
			// Zero-length path: policy latency, zero jitter.
			costs[dest] = CostRecord{Latency: p.cfg.SelfLatency}
			continue
		}
		rec, ok := sr.pathCost(anchor, destAnchor)
		if !ok {
			// Unreachable destination. Left out of the batch; the
			// connectivity check rejects the run downstream.
			continue
		}
		costs[dest] = rec
	}
	return Batch{Source: source, Costs: costs}
}
