package main

import (
	"strings"

	"github.com/spf13/cobra"

	"topo_precompute/pkg/graphml"
	"topo_precompute/pkg/topo"
)

func newGenCmd() *cobra.Command {
	var (
		output    string
		relays    int
		servers   int
		geocodes  string
		aggPerGeo int
		seed      int64
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a synthetic test topology",
		RunE: func(cmd *cobra.Command, args []string) error {
			g := topo.Generate(topo.GenSpec{
				Relays:    relays,
				Servers:   servers,
				GeoCodes:  strings.Split(geocodes, ","),
				AggPerGeo: aggPerGeo,
				Seed:      seed,
			})
			logger := newLogger()
			logger.Info("generated topology", "nodes", g.NumNodes(), "edges", g.NumEdges())
			return graphml.Save(g, output)
		},
	}

	cmd.Flags().StringVar(&output, "output", "topology.graphml", "output path (GraphML)")
	cmd.Flags().IntVar(&relays, "relays", 16, "backbone relay count")
	cmd.Flags().IntVar(&servers, "servers", 4, "server count")
	cmd.Flags().StringVar(&geocodes, "geocodes", "us,de,jp,br", "comma-separated geographic codes")
	cmd.Flags().IntVar(&aggPerGeo, "agg-per-geo", 8, "aggregation nodes per geo code")
	cmd.Flags().Int64Var(&seed, "seed", 1, "generator seed")
	return cmd
}
