// Package postprocess repairs degenerate path costs in the precomputed
// POI graph and asserts it forms a single connected component before
// anything is written to disk.
package postprocess

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"topo_precompute/pkg/topo"
)

// ErrDisconnectedResult indicates the result graph splits into more than
// one connected component. That points at a sampling or solver bug, so
// the run aborts rather than persisting an inconsistent graph.
var ErrDisconnectedResult = errors.New("postprocess: result graph is disconnected")

// Repair fixes degenerate edge latencies in place and verifies
// connectivity. Edges fall into two classes, self-pair (both endpoints
// equal) and cross-pair; a degenerate latency (non-positive or NaN) is
// replaced by the mean of the healthy members of its own class. Jitter
// and all other attributes are left untouched.
func Repair(g *topo.Graph, logger *log.Logger) error {
	var selfSum, crossSum float64
	var selfN, crossN int
	var degenerate []*topo.Edge

	for _, e := range g.Edges() {
		switch {
		case e.Latency <= 0 || math.IsNaN(e.Latency):
			degenerate = append(degenerate, e)
		case e.From == e.To:
			selfSum += e.Latency
			selfN++
		default:
			crossSum += e.Latency
			crossN++
		}
	}

	for _, e := range degenerate {
		var mean float64
		if e.From == e.To {
			if selfN == 0 {
				return fmt.Errorf("postprocess: self-pair edge %s has degenerate latency and no healthy self-pair edges exist", e.From)
			}
			mean = selfSum / float64(selfN)
		} else {
			if crossN == 0 {
				return fmt.Errorf("postprocess: edge %s--%s has degenerate latency and no healthy cross-pair edges exist", e.From, e.To)
			}
			mean = crossSum / float64(crossN)
		}
		logger.Debug("repaired degenerate edge latency",
			"from", e.From, "to", e.To, "was", e.Latency, "now", mean)
		e.Latency = mean
		e.Weight = mean // weight mirrors latency in the output graph
	}
	if len(degenerate) > 0 {
		logger.Warn("repaired degenerate edges", "count", len(degenerate))
	}

	return checkConnected(g)
}

// checkConnected verifies the graph, viewed undirected, is one component
// covering every node.
func checkConnected(g *topo.Graph) error {
	ids := g.NodeIDs()
	if len(ids) == 0 {
		return fmt.Errorf("%w: no nodes", ErrDisconnectedResult)
	}

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	uf := newUnionFind(len(ids))
	for _, e := range g.Edges() {
		uf.union(index[e.From], index[e.To])
	}

	root := uf.find(0)
	for i := 1; i < len(ids); i++ {
		if uf.find(i) != root {
			return fmt.Errorf("%w: node %s is not reachable from %s", ErrDisconnectedResult, ids[i], ids[0])
		}
	}
	return nil
}
