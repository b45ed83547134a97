// Command reorder renumbers the documents of a binary collection with
// recursive graph bisection so that its postings compress better. It builds
// (or loads) a forward index, runs the bisection, and rewrites the collection
// under the resulting mapping. Either the full reordered collection is
// written or nothing is.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ot/ds2i/internal/bp"
	"github.com/ot/ds2i/internal/collection"
	"github.com/ot/ds2i/internal/forward"
	"github.com/ot/ds2i/pkg/config"
	apperrors "github.com/ot/ds2i/pkg/errors"
	"github.com/ot/ds2i/pkg/logger"
	"github.com/ot/ds2i/pkg/metrics"
	"github.com/ot/ds2i/pkg/progress"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	input := flag.String("collection", "", "input collection basename")
	output := flag.String("output", "", "output collection basename")
	minLen := flag.Int("min-len", -1, "minimum posting-list length for the forward index")
	depth := flag.Int("depth", -1, "recursion depth (0 = ceil(log2 N))")
	snapshot := flag.String("snapshot", "", "forward index snapshot path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	if *input != "" {
		cfg.Collection.Input = *input
	}
	if *output != "" {
		cfg.Collection.Output = *output
	}
	if *minLen >= 0 {
		cfg.Forward.MinListLength = *minLen
	}
	if *depth >= 0 {
		cfg.Bisection.Depth = *depth
	}
	if *snapshot != "" {
		cfg.Forward.SnapshotPath = *snapshot
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Collection.Input == "" || cfg.Collection.Output == "" {
		slog.Error("collection input and output basenames are required")
		os.Exit(apperrors.ExitConfigInvalid)
	}

	var met *metrics.Metrics
	if cfg.Metrics.Enabled {
		met = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, met); err != nil {
		slog.Error("reorder failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config, met *metrics.Metrics) error {
	fwd, err := loadForwardIndex(cfg, met)
	if err != nil {
		return err
	}

	depth := cfg.Bisection.Depth
	if depth <= 0 {
		depth = bp.DefaultDepth(fwd.Size())
	}
	prog, err := progress.New("graph bisection", uint64(fwd.Size())*uint64(depth))
	if err != nil {
		return err
	}
	defer prog.Done()

	bisector := bp.New(fwd, bp.Options{
		Depth:                 depth,
		MaxIterations:         cfg.Bisection.MaxIterations,
		ParallelDepth:         cfg.Bisection.ParallelDepth,
		CacheDepth:            cfg.Bisection.CacheDepth,
		Workers:               cfg.Bisection.Workers,
		PrecomputeDegreeLimit: cfg.Bisection.PrecomputeDegreeLimit,
	}, prog, met)

	start := time.Now()
	mapping, err := bisector.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("bisection complete", "documents", len(mapping), "elapsed", time.Since(start))

	stats, err := collection.Reorder(cfg.Collection.Input, cfg.Collection.Output, mapping)
	if err != nil {
		return err
	}
	if met != nil {
		met.PostingListsReordered.Add(float64(stats.PostingLists))
	}
	slog.Info("collection reordered",
		"documents", stats.Documents,
		"posting_lists", stats.PostingLists,
		"output", cfg.Collection.Output,
	)
	return nil
}

// loadForwardIndex reads the snapshot when one is configured and present,
// building from the collection otherwise. A snapshot that exists but fails
// validation is fatal rather than silently rebuilt: a stale snapshot of a
// different collection would yield a plausible-looking but wrong reordering.
func loadForwardIndex(cfg *config.Config, met *metrics.Metrics) (*forward.Index, error) {
	path := cfg.Forward.SnapshotPath
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			fwd, err := forward.ReadSnapshot(path)
			if err != nil {
				if met != nil {
					met.SnapshotLoadsTotal.WithLabelValues("invalid").Inc()
				}
				return nil, err
			}
			if met != nil {
				met.SnapshotLoadsTotal.WithLabelValues("hit").Inc()
			}
			slog.Info("forward index loaded from snapshot",
				"path", path, "documents", fwd.Size(), "terms", fwd.TermCount())
			return fwd, nil
		}
		if met != nil {
			met.SnapshotLoadsTotal.WithLabelValues("miss").Inc()
		}
	}

	start := time.Now()
	fwd, err := forward.FromCollection(cfg.Collection.Input, cfg.Forward.MinListLength)
	if err != nil {
		return nil, err
	}
	if met != nil {
		met.ForwardBuildDuration.Observe(time.Since(start).Seconds())
	}
	slog.Info("forward index built",
		"documents", fwd.Size(),
		"terms", fwd.TermCount(),
		"min_list_length", cfg.Forward.MinListLength,
		"elapsed", time.Since(start),
	)
	if path != "" {
		if err := fwd.WriteSnapshot(path); err != nil {
			return nil, err
		}
		slog.Info("forward index snapshot written", "path", path)
	}
	return fwd, nil
}
