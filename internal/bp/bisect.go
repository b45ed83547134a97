package bp

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ot/ds2i/internal/forward"
	"github.com/ot/ds2i/pkg/logger"
	"github.com/ot/ds2i/pkg/metrics"
	"github.com/ot/ds2i/pkg/progress"
)

// Options controls one bisection run.
type Options struct {
	// Depth is the recursion depth; 0 selects ceil(log2(N)).
	Depth int
	// MaxIterations bounds the gain-sort-swap loop per partition.
	MaxIterations int
	// ParallelDepth is how many recursion levels fork the two halves into
	// parallel tasks. Below it everything runs sequentially in the calling
	// goroutine, keeping small partitions from oversubscribing the scheduler.
	ParallelDepth int
	// CacheDepth is how many levels near the root use the memoizing gain
	// function. Deep levels have small sides where the cache misses too
	// often to pay for itself.
	CacheDepth int
	// Workers bounds data-parallel gain computation; 0 means GOMAXPROCS.
	Workers int
	// PrecomputeDegreeLimit, when positive, tabulates move gains for degrees
	// below the limit ahead of the run. Degrees at or above it fall back to
	// direct computation.
	PrecomputeDegreeLimit int
}

// Bisector runs recursive graph bisection over a forward index and produces
// the old-id to new-id mapping.
type Bisector struct {
	fwd      *forward.Index
	opts     Options
	moves    *precomputedMoves
	progress *progress.Reporter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Bisector. progress and metrics may be nil.
func New(fwd *forward.Index, opts Options, prog *progress.Reporter, met *metrics.Metrics) *Bisector {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 20
	}
	b := &Bisector{
		fwd:      fwd,
		opts:     opts,
		progress: prog,
		metrics:  met,
		logger:   logger.WithComponent("bisector"),
	}
	if opts.PrecomputeDegreeLimit > 0 {
		b.moves = newPrecomputedMoves(fwd.Size(), opts.PrecomputeDegreeLimit)
	}
	return b
}

// DefaultDepth is the recursion depth that bottoms partitions out near single
// documents: ceil(log2(n)).
func DefaultDepth(n int) int {
	if n < 2 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n))))
}

// Run executes the bisection and returns the mapping array. The result is a
// bijection on 0..N-1 and is deterministic for a fixed input and option set.
func (b *Bisector) Run(ctx context.Context) ([]uint32, error) {
	n := b.fwd.Size()
	order := make([]uint32, n)
	for i := range order {
		order[i] = uint32(i)
	}
	if n < 2 {
		return Mapping(order), nil
	}

	depth := b.opts.Depth
	if depth <= 0 {
		depth = DefaultDepth(n)
	}
	if b.metrics != nil {
		b.metrics.BisectionDepth.Set(float64(depth))
	}
	b.logger.Info("starting bisection",
		"documents", n,
		"terms", b.fwd.TermCount(),
		"depth", depth,
		"parallel_depth", b.opts.ParallelDepth,
		"cache_depth", b.opts.CacheDepth,
	)

	gains := make([]float64, n)
	root := NewRange(order, b.fwd, gains)
	if err := b.bisect(ctx, root, depth, b.opts.ParallelDepth, b.opts.CacheDepth); err != nil {
		return nil, err
	}
	return Mapping(order), nil
}

func (b *Bisector) bisect(ctx context.Context, r Range, depth, parallelDepth, cacheDepth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Len() < 2 {
		return nil
	}

	partition := r.Split()
	e := b.newEngine(parallelDepth > 0, cacheDepth >= 1)
	e.processPartition(partition)
	if cacheDepth >= 1 {
		cacheDepth--
	}

	if b.progress != nil {
		b.progress.UpdateAndPrint(uint64(r.Len()))
	}
	if b.metrics != nil {
		b.metrics.DocsProcessedTotal.Add(float64(r.Len()))
	}

	if depth > 1 && r.Len() > 2 {
		if parallelDepth > 0 {
			g, gctx := errgroup.WithContext(ctx)
			if b.metrics != nil {
				b.metrics.ActiveParallelTasks.Add(2)
				defer b.metrics.ActiveParallelTasks.Sub(2)
			}
			g.Go(func() error {
				return b.bisect(gctx, partition.Left, depth-1, parallelDepth-1, cacheDepth)
			})
			g.Go(func() error {
				return b.bisect(gctx, partition.Right, depth-1, parallelDepth-1, cacheDepth)
			})
			return g.Wait()
		}
		if err := b.bisect(ctx, partition.Left, depth-1, parallelDepth, cacheDepth); err != nil {
			return err
		}
		return b.bisect(ctx, partition.Right, depth-1, parallelDepth, cacheDepth)
	}

	// Leaf pair: restore id order within each half so the final numbering is
	// stable once no further bisection will reorder it.
	sortSideByID(partition.Left)
	sortSideByID(partition.Right)
	return nil
}

// newEngine picks the gain variant for one partition step. All variants are
// numerically identical; they differ only in how much recomputation they
// avoid.
func (b *Bisector) newEngine(parallel, useCache bool) *engine {
	e := &engine{
		maxIterations: b.opts.MaxIterations,
		parallel:      parallel,
		metrics:       b.metrics,
	}
	switch {
	case useCache:
		// One cache per side: the sides run concurrently and a cache entry
		// is only valid against its own side's degree maps.
		e.leftGain = cachedGains(newGainCache(b.fwd.TermCount()))
		e.rightGain = cachedGains(newGainCache(b.fwd.TermCount()))
	case b.moves != nil:
		gain := precomputedGains(b.moves, b.opts.Workers, parallel)
		e.leftGain = gain
		e.rightGain = gain
	default:
		gain := directGains(b.opts.Workers, parallel)
		e.leftGain = gain
		e.rightGain = gain
	}
	return e
}

func sortSideByID(r Range) {
	sort.Slice(r.ids, func(i, j int) bool { return r.ids[i] < r.ids[j] })
}
