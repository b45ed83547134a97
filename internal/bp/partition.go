package bp

import (
	"sort"
	"sync"
	"time"

	"github.com/ot/ds2i/pkg/metrics"
)

// engine runs the iterative local search over one partition: compute gains,
// rank each side by gain, then greedily swap the highest-gain pairs across
// the boundary while the exchange still pays.
type engine struct {
	maxIterations int
	parallel      bool
	leftGain      GainFunc
	rightGain     GainFunc
	metrics       *metrics.Metrics
}

// processPartition mutates the partition's id slices in place. A side with
// zero documents short-circuits: log2 of an empty side is undefined and there
// is nothing to redistribute.
func (e *engine) processPartition(p Partition) {
	if p.Left.Len() == 0 || p.Right.Len() == 0 {
		return
	}
	start := time.Now()
	degrees := computePartitionDegrees(p, e.parallel)
	for iteration := 0; iteration < e.maxIterations; iteration++ {
		e.computeGains(p, degrees)
		e.sortByGain(p)
		swaps := swapPass(p, degrees)
		if e.metrics != nil {
			e.metrics.IterationsTotal.Inc()
			e.metrics.SwapsTotal.Add(float64(swaps))
		}
		if swaps == 0 {
			break
		}
	}
	if e.metrics != nil {
		e.metrics.PartitionsTotal.Inc()
		e.metrics.PartitionDuration.Observe(time.Since(start).Seconds())
	}
}

// computeGains evaluates both sides. The sides have no data dependency within
// an iteration, so they may run concurrently; both must finish before
// ranking starts.
func (e *engine) computeGains(p Partition, degrees *degreePair) {
	n1 := p.Left.Len()
	n2 := p.Right.Len()
	if e.parallel {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.leftGain(p.Left, n1, n2, degrees.left, degrees.right)
		}()
		go func() {
			defer wg.Done()
			e.rightGain(p.Right, n2, n1, degrees.right, degrees.left)
		}()
		wg.Wait()
	} else {
		e.leftGain(p.Left, n1, n2, degrees.left, degrees.right)
		e.rightGain(p.Right, n2, n1, degrees.right, degrees.left)
	}
}

// sortByGain ranks each side by descending gain, ties broken by ascending
// document id so runs at a fixed worker count reproduce the same order.
func (e *engine) sortByGain(p Partition) {
	if e.parallel {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			sortSideByGain(p.Left)
		}()
		go func() {
			defer wg.Done()
			sortSideByGain(p.Right)
		}()
		wg.Wait()
	} else {
		sortSideByGain(p.Left)
		sortSideByGain(p.Right)
	}
}

func sortSideByGain(r Range) {
	sort.Slice(r.ids, func(i, j int) bool {
		gi, gj := r.gains[r.ids[i]], r.gains[r.ids[j]]
		if gi != gj {
			return gi > gj
		}
		return r.ids[i] < r.ids[j]
	})
}

// swapPass walks the two ranked sides in lock-step from their highest-gain
// ends, exchanging pairs while the combined gain is positive and updating the
// degree maps incrementally. The walk is strictly sequential: the degree
// updates feed the stopping condition of later pairs in the same pass only
// through the next iteration's gains, but concurrent swapping would race on
// the maps themselves.
func swapPass(p Partition, degrees *degreePair) int {
	left := p.Left.ids
	right := p.Right.ids
	n := p.Left.Len()
	if p.Right.Len() < n {
		n = p.Right.Len()
	}
	swaps := 0
	for i := 0; i < n; i++ {
		if p.Left.gains[left[i]]+p.Right.gains[right[i]] <= 0 {
			break
		}
		for _, t := range p.Left.terms(left[i]) {
			degrees.left[t]--
			degrees.right[t]++
		}
		for _, t := range p.Right.terms(right[i]) {
			degrees.left[t]++
			degrees.right[t]--
		}
		left[i], right[i] = right[i], left[i]
		swaps++
	}
	return swaps
}
