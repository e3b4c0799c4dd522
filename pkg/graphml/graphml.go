// Package graphml reads and writes topologies in GraphML, the attributed
// graph exchange format the surrounding tooling produces and consumes.
// Node and edge attributes are typed key-value pairs declared in <key>
// elements and carried in <data> elements.
package graphml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"topo_precompute/pkg/topo"
)

const xmlns = "http://graphml.graphdrawing.org/xmlns"

// ErrMissingAttribute is returned when a required attribute (an edge's
// weight) is absent from the input file.
var ErrMissingAttribute = errors.New("graphml: required attribute missing")

// Edge attribute names recognized by the loader.
const (
	attrWeight  = "weight"
	attrLatency = "latency"
	attrJitter  = "jitter"
)

type xmlDoc struct {
	XMLName xml.Name   `xml:"graphml"`
	Xmlns   string     `xml:"xmlns,attr"`
	Keys    []xmlKey   `xml:"key"`
	Graphs  []xmlGraph `xml:"graph"`
}

type xmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type xmlGraph struct {
	EdgeDefault string    `xml:"edgedefault,attr"`
	Nodes       []xmlNode `xml:"node"`
	Edges       []xmlEdge `xml:"edge"`
}

type xmlNode struct {
	ID   string    `xml:"id,attr"`
	Data []xmlData `xml:"data"`
}

type xmlEdge struct {
	Source string    `xml:"source,attr"`
	Target string    `xml:"target,attr"`
	Data   []xmlData `xml:"data"`
}

type xmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// Load parses a GraphML file into a topology graph. Node kinds come from
// the "type" attribute; nodes without one are kept with KindOther. Every
// edge must carry a weight; latency falls back to the weight and jitter
// to zero when not declared.
func Load(path string) (*topo.Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graphml: read %s: %w", path, err)
	}

	var doc xmlDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("graphml: parse %s: %w", path, err)
	}
	if len(doc.Graphs) == 0 {
		return nil, fmt.Errorf("graphml: %s contains no <graph> element", path)
	}

	keys := make(map[string]xmlKey, len(doc.Keys))
	for _, k := range doc.Keys {
		keys[k.ID] = k
	}

	g := topo.NewGraph()
	src := doc.Graphs[0]

	for _, xn := range src.Nodes {
		attrs, err := decodeData(keys, xn.Data)
		if err != nil {
			return nil, fmt.Errorf("graphml: node %s: %w", xn.ID, err)
		}
		kind := topo.KindOther
		if s, ok := attrs[topo.AttrType].(string); ok {
			kind = topo.ParseKind(s)
		}
		g.AddNode(&topo.Node{ID: xn.ID, Kind: kind, Attrs: attrs})
	}

	for i, xe := range src.Edges {
		attrs, err := decodeData(keys, xe.Data)
		if err != nil {
			return nil, fmt.Errorf("graphml: edge %s--%s: %w", xe.Source, xe.Target, err)
		}
		weight, ok := takeFloat(attrs, attrWeight)
		if !ok {
			return nil, fmt.Errorf("graphml: edge %d (%s--%s) has no weight: %w",
				i, xe.Source, xe.Target, ErrMissingAttribute)
		}
		latency, ok := takeFloat(attrs, attrLatency)
		if !ok {
			latency = weight
		}
		jitter, _ := takeFloat(attrs, attrJitter)

		e := &topo.Edge{
			From:    xe.Source,
			To:      xe.Target,
			Weight:  weight,
			Latency: latency,
			Jitter:  jitter,
			Attrs:   attrs,
		}
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("graphml: %w", err)
		}
	}

	g.Normalize()
	return g, nil
}

// Save writes the graph as GraphML. Attribute keys are declared in sorted
// order so output is reproducible.
func Save(g *topo.Graph, path string) error {
	doc := xmlDoc{Xmlns: xmlns}

	nodeKeys := collectAttrKeys(g, true)
	edgeKeys := collectAttrKeys(g, false)

	// Cost fields are materialized as ordinary edge attributes.
	for _, name := range []string{attrWeight, attrLatency, attrJitter} {
		if _, ok := edgeKeys[name]; !ok {
			edgeKeys[name] = "double"
		}
	}

	nodeKeyID := declareKeys(&doc, "node", nodeKeys, "n")
	edgeKeyID := declareKeys(&doc, "edge", edgeKeys, "e")

	xg := xmlGraph{EdgeDefault: "undirected"}
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		xn := xmlNode{ID: n.ID}
		for _, k := range sortedAttrNames(n.Attrs) {
			xn.Data = append(xn.Data, xmlData{Key: nodeKeyID[k], Value: formatValue(n.Attrs[k])})
		}
		xg.Nodes = append(xg.Nodes, xn)
	}
	// Edges sorted by endpoints so files from concurrent runs compare equal.
	edges := make([]*topo.Edge, len(g.Edges()))
	copy(edges, g.Edges())
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	for _, e := range edges {
		xe := xmlEdge{Source: e.From, Target: e.To}
		xe.Data = append(xe.Data,
			xmlData{Key: edgeKeyID[attrWeight], Value: formatValue(e.Weight)},
			xmlData{Key: edgeKeyID[attrLatency], Value: formatValue(e.Latency)},
			xmlData{Key: edgeKeyID[attrJitter], Value: formatValue(e.Jitter)},
		)
		for _, k := range sortedAttrNames(e.Attrs) {
			if k == attrWeight || k == attrLatency || k == attrJitter {
				continue
			}
			xe.Data = append(xe.Data, xmlData{Key: edgeKeyID[k], Value: formatValue(e.Attrs[k])})
		}
		xg.Edges = append(xg.Edges, xe)
	}
	doc.Graphs = []xmlGraph{xg}

	out, err := xml.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("graphml: marshal: %w", err)
	}

	tmpPath := path + ".tmp"
	data := append([]byte(xml.Header), out...)
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("graphml: write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("graphml: rename: %w", err)
	}
	return nil
}

// decodeData converts <data> elements to typed attribute values using the
// declared key table. Data referencing an undeclared key is kept as string.
func decodeData(keys map[string]xmlKey, data []xmlData) (map[string]any, error) {
	attrs := make(map[string]any, len(data))
	for _, d := range data {
		k, ok := keys[d.Key]
		name := d.Key
		attrType := "string"
		if ok {
			name = k.AttrName
			attrType = k.AttrType
		}
		v, err := parseValue(attrType, strings.TrimSpace(d.Value))
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		attrs[name] = v
	}
	return attrs, nil
}

func parseValue(attrType, raw string) (any, error) {
	switch attrType {
	case "int", "long":
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "float", "double":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "boolean":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return raw, nil
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func attrTypeOf(v any) string {
	switch v.(type) {
	case int64:
		return "long"
	case float64:
		return "double"
	case bool:
		return "boolean"
	default:
		return "string"
	}
}

// collectAttrKeys unions attribute names and GraphML types over all nodes
// or all edges.
func collectAttrKeys(g *topo.Graph, nodes bool) map[string]string {
	out := make(map[string]string)
	if nodes {
		for _, id := range g.NodeIDs() {
			for k, v := range g.Node(id).Attrs {
				out[k] = attrTypeOf(v)
			}
		}
		return out
	}
	for _, e := range g.Edges() {
		for k, v := range e.Attrs {
			out[k] = attrTypeOf(v)
		}
	}
	return out
}

// declareKeys appends <key> declarations in sorted attribute-name order
// and returns the name → key-ID mapping.
func declareKeys(doc *xmlDoc, target string, keys map[string]string, prefix string) map[string]string {
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)

	ids := make(map[string]string, len(names))
	for i, name := range names {
		id := fmt.Sprintf("%s%d", prefix, i)
		ids[name] = id
		doc.Keys = append(doc.Keys, xmlKey{ID: id, For: target, AttrName: name, AttrType: keys[name]})
	}
	return ids
}

func sortedAttrNames(attrs map[string]any) []string {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// takeFloat removes an attribute from the map and returns it as float64.
func takeFloat(attrs map[string]any, key string) (float64, bool) {
	v, ok := attrs[key]
	if !ok {
		return 0, false
	}
	delete(attrs, key)
	switch v := v.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
