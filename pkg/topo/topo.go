package topo

import (
	"fmt"
	"sort"
)

// Kind classifies a topology node by its role in the network.
type Kind string

const (
	KindRelay       Kind = "relay"
	KindServer      Kind = "server"
	KindAggregation Kind = "aggregation"
	KindClient      Kind = "client"
	KindOther       Kind = "other"
)

// Well-known attribute keys carried by topology files.
const (
	AttrType    = "type"
	AttrGeoCode = "geocode"
)

// ParseKind maps a raw type attribute to a Kind. Unrecognized or empty
// values map to KindOther.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindRelay, KindServer, KindAggregation, KindClient:
		return Kind(s)
	default:
		return KindOther
	}
}

// Node is a topology node with a role and an open attribute map.
// Attribute values are scalars: string, int64, float64 or bool.
type Node struct {
	ID    string
	Kind  Kind
	Attrs map[string]any
}

// CloneAttrs returns a deep copy of the node's attribute map.
// Scalar values need no further copying.
func (n *Node) CloneAttrs() map[string]any {
	out := make(map[string]any, len(n.Attrs))
	for k, v := range n.Attrs {
		out[k] = v
	}
	return out
}

// StringAttr returns the named attribute as a string.
func (n *Node) StringAttr(key string) (string, bool) {
	v, ok := n.Attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FloatAttr returns the named attribute as a float64, coercing ints.
func (n *Node) FloatAttr(key string) (float64, bool) {
	switch v := n.Attrs[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// GeoCode returns the node's geographic code, or "" if unset.
func (n *Node) GeoCode() string {
	s, _ := n.StringAttr(AttrGeoCode)
	return s
}

// Edge is an undirected link between two nodes. Weight drives shortest-path
// search; Latency and Jitter are aggregated along the winning path and are
// not required to equal Weight.
type Edge struct {
	From    string
	To      string
	Weight  float64
	Latency float64
	Jitter  float64
	Attrs   map[string]any
}

// Other returns the endpoint opposite to id.
func (e *Edge) Other(id string) string {
	if e.From == id {
		return e.To
	}
	return e.From
}

// Arc is one direction of an undirected edge, as seen from a node's
// adjacency list.
type Arc struct {
	To   string
	Edge *Edge
}

// Graph is an in-memory attributed topology. Adjacency lists are kept in
// sorted neighbor order after Normalize so that traversal order, and with
// it every derived result, is reproducible across runs.
type Graph struct {
	nodes map[string]*Node
	edges []*Edge
	adj   map[string][]Arc
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		adj:   make(map[string][]Arc),
	}
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(n *Node) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]any)
	}
	g.nodes[n.ID] = n
}

// AddEdge inserts an undirected edge. Both endpoints must already exist.
func (g *Graph) AddEdge(e *Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("edge %s--%s: unknown node %q", e.From, e.To, e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("edge %s--%s: unknown node %q", e.From, e.To, e.To)
	}
	g.edges = append(g.edges, e)
	g.adj[e.From] = append(g.adj[e.From], Arc{To: e.To, Edge: e})
	if e.To != e.From {
		g.adj[e.To] = append(g.adj[e.To], Arc{To: e.From, Edge: e})
	}
	return nil
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Neighbors returns the adjacency list of id. The returned slice is owned
// by the graph and must not be mutated.
func (g *Graph) Neighbors(id string) []Arc {
	return g.adj[id]
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// NodeIDs returns all node IDs in sorted order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Normalize sorts every adjacency list by neighbor ID. Call once after
// loading and before running any traversal that must be deterministic.
func (g *Graph) Normalize() {
	for id := range g.adj {
		arcs := g.adj[id]
		sort.Slice(arcs, func(i, j int) bool { return arcs[i].To < arcs[j].To })
	}
}

// FindEdge returns the edge between a and b, or nil if none exists.
// With multi-edges the lowest-weight one wins.
func (g *Graph) FindEdge(a, b string) *Edge {
	var best *Edge
	for _, arc := range g.adj[a] {
		if arc.To == b || (a == b && arc.Edge.From == arc.Edge.To) {
			if best == nil || arc.Edge.Weight < best.Weight {
				best = arc.Edge
			}
		}
	}
	return best
}
