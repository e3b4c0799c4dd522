// Package engine drives the full precompute pipeline: load topology,
// select POIs, fan out shortest-path jobs, aggregate, repair, write.
// All shared run state (channels, output graph, counters) is constructed
// here and passed down explicitly; no component holds global state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"topo_precompute/pkg/config"
	"topo_precompute/pkg/graphml"
	"topo_precompute/pkg/poi"
	"topo_precompute/pkg/postprocess"
	"topo_precompute/pkg/solver"
	"topo_precompute/pkg/topo"
)

// ErrIncompleteAggregation indicates the completion counter stopped
// advancing before every source was merged, which means one or more
// workers died mid-run. Sources are not retried; the caller decides
// whether to rerun.
var ErrIncompleteAggregation = errors.New("engine: aggregation incomplete, worker pool stalled")

// Params describes one pipeline run.
type Params struct {
	Input    string // input topology, GraphML
	Output   string // output POI graph, GraphML
	Snapshot string // optional binary snapshot path, "" to skip
	Config   config.Config
	Logger   *log.Logger
}

// Run executes the whole pipeline. No output file is written unless the
// result graph passes post-processing.
func Run(ctx context.Context, p Params) error {
	logger := p.Logger
	cfg := p.Config
	start := time.Now()

	logger.Info("loading topology", "path", p.Input)
	g, err := graphml.Load(p.Input)
	if err != nil {
		return err
	}
	logger.Info("topology loaded", "nodes", g.NumNodes(), "edges", g.NumEdges())

	rng := rand.New(rand.NewSource(cfg.Seed))
	pois, err := poi.Select(g, cfg.SampleSize, rng, logger)
	if err != nil {
		return err
	}
	if len(pois) == 0 {
		return fmt.Errorf("%w: no points of interest in topology", poi.ErrEmptyTopology)
	}

	pool, err := solver.NewPool(g, pois, solver.Config{
		Workers:     cfg.Workers,
		SelfLatency: cfg.SelfLatency,
	}, logger)
	if err != nil {
		return err
	}
	agg := solver.NewAggregator(pois)

	logger.Info("solving shortest paths", "sources", len(pois), "workers", cfg.Workers)
	eg, runCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		pool.Run(runCtx, agg)
		return nil
	})
	eg.Go(func() error {
		return watchProgress(runCtx, agg, cfg, logger)
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	out := agg.Graph()
	logger.Info("aggregation complete",
		"pois", out.NumNodes(), "pairs", out.NumEdges(), "elapsed", time.Since(start).Round(time.Second))

	if err := postprocess.Repair(out, logger); err != nil {
		return err
	}

	if err := graphml.Save(out, p.Output); err != nil {
		return err
	}
	logger.Info("wrote POI graph", "path", p.Output)

	if p.Snapshot != "" {
		if err := topo.WriteSnapshot(p.Snapshot, out); err != nil {
			return err
		}
		logger.Info("wrote binary snapshot", "path", p.Snapshot)
	}
	return nil
}

// watchProgress polls the completion counter on a bounded-wait ticker,
// reporting progress and an ETA to the operator. StallPolls consecutive
// polls without movement while work remains makes the run fail with
// ErrIncompleteAggregation.
func watchProgress(ctx context.Context, agg *solver.Aggregator, cfg config.Config, logger *log.Logger) error {
	total := int64(agg.Total())
	interval := time.Duration(cfg.ProgressSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	var lastDone int64
	stalls := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		done := agg.Completed()
		if done >= total {
			return nil
		}

		if done == lastDone {
			stalls++
			if stalls >= cfg.StallPolls {
				return fmt.Errorf("%w: %d/%d sources merged, no progress for %s",
					ErrIncompleteAggregation, done, total, time.Duration(stalls)*interval)
			}
		} else {
			stalls = 0
			lastDone = done
		}

		if done > 0 {
			elapsed := time.Since(start)
			remaining := elapsed * time.Duration(total-done) / time.Duration(done)
			logger.Info(fmt.Sprintf("finished %d/%d, est. hours remaining: %.2f",
				done, total, remaining.Hours()))
		} else {
			logger.Info(fmt.Sprintf("finished 0/%d", total))
		}
	}
}
