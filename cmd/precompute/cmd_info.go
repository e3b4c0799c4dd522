package main

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"topo_precompute/pkg/graphml"
	"topo_precompute/pkg/topo"
)

func newInfoCmd() *cobra.Command {
	var fromSnapshot bool

	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Print node, edge and geo-code statistics for a graph file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				g   *topo.Graph
				err error
			)
			if fromSnapshot {
				g, err = topo.ReadSnapshot(args[0])
			} else {
				g, err = graphml.Load(args[0])
			}
			if err != nil {
				return err
			}
			printInfo(g)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromSnapshot, "snapshot", false, "read a binary snapshot instead of GraphML")
	return cmd
}

func printInfo(g *topo.Graph) {
	byKind := make(map[topo.Kind]int)
	geocodes := make(map[string]int)
	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		byKind[n.Kind]++
		if code := n.GeoCode(); code != "" {
			geocodes[code]++
		}
	}

	fmt.Printf("nodes: %d\n", g.NumNodes())
	for _, k := range []topo.Kind{topo.KindRelay, topo.KindServer, topo.KindAggregation, topo.KindClient, topo.KindOther} {
		if byKind[k] > 0 {
			fmt.Printf("  %-12s %d\n", k, byKind[k])
		}
	}

	fmt.Printf("edges: %d\n", g.NumEdges())
	if g.NumEdges() > 0 {
		minLat, maxLat := math.Inf(1), math.Inf(-1)
		minW, maxW := math.Inf(1), math.Inf(-1)
		for _, e := range g.Edges() {
			minLat = math.Min(minLat, e.Latency)
			maxLat = math.Max(maxLat, e.Latency)
			minW = math.Min(minW, e.Weight)
			maxW = math.Max(maxW, e.Weight)
		}
		fmt.Printf("  weight  [%g, %g]\n", minW, maxW)
		fmt.Printf("  latency [%g, %g]\n", minLat, maxLat)
	}

	if len(geocodes) > 0 {
		codes := make([]string, 0, len(geocodes))
		for c := range geocodes {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		parts := make([]string, len(codes))
		for i, c := range codes {
			parts[i] = fmt.Sprintf("%s(%d)", c, geocodes[c])
		}
		fmt.Printf("geocodes: %s\n", strings.Join(parts, " "))
	}
}
