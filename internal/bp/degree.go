package bp

import "sync"

// degreePair tracks, for one partition, how many documents on each side
// contain each term. For every term t, left[t]+right[t] stays constant across
// swaps; only the split between the two sides moves.
type degreePair struct {
	left  []int32
	right []int32
}

// computeDegrees scans one side and counts documents per term.
func computeDegrees(r Range) []int32 {
	deg := make([]int32, r.termCount())
	for _, d := range r.ids {
		for _, t := range r.terms(d) {
			deg[t]++
		}
	}
	return deg
}

// computePartitionDegrees builds both sides' degree maps, concurrently when
// parallel is set. The two scans share no mutable state.
func computePartitionDegrees(p Partition, parallel bool) *degreePair {
	degrees := &degreePair{}
	if parallel {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			degrees.left = computeDegrees(p.Left)
		}()
		go func() {
			defer wg.Done()
			degrees.right = computeDegrees(p.Right)
		}()
		wg.Wait()
	} else {
		degrees.left = computeDegrees(p.Left)
		degrees.right = computeDegrees(p.Right)
	}
	return degrees
}
