package main

import (
	"github.com/spf13/cobra"

	"topo_precompute/pkg/config"
	"topo_precompute/pkg/engine"
)

func newRunCmd() *cobra.Command {
	var (
		input      string
		output     string
		snapshot   string
		configPath string
		workers    int
		sampleSize int
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full precompute pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}

			// Flags override the config file, but only when given.
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("sample-size") {
				cfg.SampleSize = sampleSize
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return engine.Run(cmd.Context(), engine.Params{
				Input:    input,
				Output:   output,
				Snapshot: snapshot,
				Config:   cfg,
				Logger:   newLogger(),
			})
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input topology (GraphML)")
	cmd.Flags().StringVar(&output, "output", "poi_graph.graphml", "output POI graph (GraphML)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "optional binary snapshot output for fast simulator reload")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (default: host core count)")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 0, "aggregation node sample size")
	cmd.Flags().Int64Var(&seed, "seed", 0, "sampling seed")
	cmd.MarkFlagRequired("input")

	return cmd
}
