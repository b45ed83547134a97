package bp

import (
	"runtime"
	"sync"
)

// GainFunc computes, for every document on one side, the estimated reduction
// in encoded size from moving it to the other side, writing the result into
// the shared gains array. fromN/toN are the side sizes; fromDeg/toDeg the
// side degree maps. fromDeg[t] includes the document itself, toDeg[t] does
// not.
type GainFunc func(r Range, fromN, toN int, fromDeg, toDeg []int32)

// cost is the entropy-style estimate of encoding one term's postings split
// deg1/deg2 across sides of log-sizes logn1/logn2. The deg+1 offset keeps
// log2 off zero for absent terms.
func cost(logn1, logn2 float64, deg1, deg2 int32) float64 {
	return float64(deg1)*(logn1-log2(int(deg1)+1)) +
		float64(deg2)*(logn2-log2(int(deg2)+1))
}

// moveGain is the cost reduction from shifting one unit of a term's count
// from the from-side to the to-side.
func moveGain(logn1, logn2 float64, fromDeg, toDeg int32) float64 {
	return cost(logn1, logn2, fromDeg, toDeg) - cost(logn1, logn2, fromDeg-1, toDeg+1)
}

// directGains recomputes every term contribution on each call. It is the
// baseline the other variants must agree with. Documents are independent
// writers into the gains array, so the side is chunked across workers when
// parallel is set.
func directGains(workers int, parallel bool) GainFunc {
	return func(r Range, fromN, toN int, fromDeg, toDeg []int32) {
		logn1 := log2(fromN)
		logn2 := log2(toN)
		docGain := func(d uint32) {
			var gain float64
			for _, t := range r.terms(d) {
				gain += moveGain(logn1, logn2, fromDeg[t], toDeg[t])
			}
			r.gains[d] = gain
		}
		if !parallel {
			for _, d := range r.ids {
				docGain(d)
			}
			return
		}
		forEachChunk(r.ids, workers, func(ids []uint32) {
			for _, d := range ids {
				docGain(d)
			}
		})
	}
}

// gainCache memoizes per-term move gains within one side's pass. Degree maps
// do not change mid-pass, so a term's contribution is the same for every
// document on the side that contains it. Entries are generation-stamped:
// bumping the generation invalidates the whole cache without clearing it.
type gainCache struct {
	value      []float64
	stamp      []uint32
	generation uint32
}

func newGainCache(termCount int) *gainCache {
	return &gainCache{
		value: make([]float64, termCount),
		stamp: make([]uint32, termCount),
	}
}

func (c *gainCache) nextGeneration() {
	c.generation++
}

func (c *gainCache) get(t uint32) (float64, bool) {
	if c.stamp[t] != c.generation {
		return 0, false
	}
	return c.value[t], true
}

func (c *gainCache) put(t uint32, v float64) {
	c.value[t] = v
	c.stamp[t] = c.generation
}

// cachedGains memoizes through cache, which must be exclusive to one side:
// the walk is sequential because documents sharing a term race on the cache
// entry otherwise.
func cachedGains(cache *gainCache) GainFunc {
	return func(r Range, fromN, toN int, fromDeg, toDeg []int32) {
		logn1 := log2(fromN)
		logn2 := log2(toN)
		cache.nextGeneration()
		for _, d := range r.ids {
			var gain float64
			for _, t := range r.terms(d) {
				g, ok := cache.get(t)
				if !ok {
					g = moveGain(logn1, logn2, fromDeg[t], toDeg[t])
					cache.put(t, g)
				}
				gain += g
			}
			r.gains[d] = gain
		}
	}
}

// forEachChunk splits ids into contiguous chunks and runs fn on each from its
// own goroutine. Small sides run inline; goroutine overhead dwarfs the work.
func forEachChunk(ids []uint32, workers int, fn func([]uint32)) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	const minChunk = 1024
	if len(ids) < 2*minChunk || workers == 1 {
		fn(ids)
		return
	}
	chunk := (len(ids) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}
	var wg sync.WaitGroup
	for start := 0; start < len(ids); start += chunk {
		end := start + chunk
		if end > len(ids) {
			end = len(ids)
		}
		wg.Add(1)
		go func(part []uint32) {
			defer wg.Done()
			fn(part)
		}(ids[start:end])
	}
	wg.Wait()
}
