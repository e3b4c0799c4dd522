// Package poi selects the points of interest retained in the precomputed
// graph: all relays and servers, plus a stratified sample of aggregation
// nodes promoted to synthetic clients. Sampling never drops a geographic
// code: any code left uncovered by the random draw gets one deterministic
// representative added back.
package poi

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/charmbracelet/log"

	"topo_precompute/pkg/topo"
)

// Selection errors.
var (
	// ErrEmptyTopology indicates an input graph with no nodes.
	ErrEmptyTopology = errors.New("poi: empty topology")

	// ErrNoAggregationNodes indicates a positive sample size against a
	// topology with no aggregation nodes to sample from.
	ErrNoAggregationNodes = errors.New("poi: no aggregation nodes to sample")
)

// Point is one point of interest. Anchor names the input-graph node the
// POI sits at; for synthesized clients that is the source aggregation
// node, for everything else the POI itself.
type Point struct {
	Node   *topo.Node
	Anchor string
}

// Set maps POI ID to its Point.
type Set map[string]Point

// SortedIDs returns the POI IDs in sorted order.
func (s Set) SortedIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Select draws the POI set from g. sampleSize bounds how many aggregation
// nodes are promoted to synthetic clients; a request beyond availability
// is clamped with a warning, not an error. The rng drives the uniform
// draw, so a fixed seed reproduces the same set.
func Select(g *topo.Graph, sampleSize int, rng *rand.Rand, logger *log.Logger) (Set, error) {
	if g.NumNodes() == 0 {
		return nil, ErrEmptyTopology
	}

	var aggIDs []string
	set := make(Set)

	// NodeIDs is sorted, so classification order is reproducible.
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		switch n.Kind {
		case topo.KindAggregation:
			aggIDs = append(aggIDs, id)
		case topo.KindRelay, topo.KindServer, topo.KindClient:
			set[id] = Point{Node: n, Anchor: id}
		default:
			// Untyped and miscellaneous nodes are transit-only.
		}
	}

	if sampleSize > 0 && len(aggIDs) == 0 {
		return nil, ErrNoAggregationNodes
	}
	if sampleSize < 0 {
		sampleSize = 0
	}

	if sampleSize > len(aggIDs) {
		logger.Warn("sample size exceeds aggregation node count, clamping",
			"requested", sampleSize, "available", len(aggIDs))
		sampleSize = len(aggIDs)
	}

	// Per-geo index of aggregation nodes, built in sorted node order so
	// "first representative" is well defined.
	byGeo := make(map[string][]string)
	for _, id := range aggIDs {
		code := g.Node(id).GeoCode()
		byGeo[code] = append(byGeo[code], id)
	}

	selected := make(map[string]bool, sampleSize)
	for _, i := range rng.Perm(len(aggIDs))[:sampleSize] {
		selected[aggIDs[i]] = true
	}

	// Coverage repair: every geo code keeps at least one representative.
	codes := make([]string, 0, len(byGeo))
	for code := range byGeo {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		covered := false
		for _, id := range byGeo[code] {
			if selected[id] {
				covered = true
				break
			}
		}
		if !covered {
			selected[byGeo[code][0]] = true
			logger.Debug("added coverage representative", "geocode", code, "node", byGeo[code][0])
		}
	}

	// Promote selected aggregation nodes to synthetic clients. The client
	// owns a copied attribute map; it never aliases its source node.
	for _, id := range aggIDs {
		if !selected[id] {
			continue
		}
		src := g.Node(id)
		attrs := src.CloneAttrs()
		attrs[topo.AttrType] = string(topo.KindClient)
		client := &topo.Node{
			ID:    clientID(g, set, id),
			Kind:  topo.KindClient,
			Attrs: attrs,
		}
		set[client.ID] = Point{Node: client, Anchor: id}
	}

	logger.Info("selected points of interest",
		"pois", len(set), "clients", len(selected), "geocodes", len(byGeo))
	return set, nil
}

// clientID derives the synthesized client's ID from its source node.
// Input topologies are free to name nodes anything, so a literal
// "<src>_client" node may already exist; numeric suffixes keep the
// derived ID unique against both the input graph and the set so far.
// Sources are promoted in sorted order, so the result is deterministic.
func clientID(g *topo.Graph, set Set, src string) string {
	id := fmt.Sprintf("%s_client", src)
	for n := 2; ; n++ {
		_, taken := set[id]
		if !taken && g.Node(id) == nil {
			return id
		}
		id = fmt.Sprintf("%s_client%d", src, n)
	}
}
