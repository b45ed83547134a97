package bp

import (
	"math/rand"
	"testing"

	"github.com/ot/ds2i/internal/forward"
)

// randomCorpus builds a deterministic corpus of docCount documents over
// termCount terms, each document holding a random subset.
func randomCorpus(seed int64, docCount, termCount int) *forward.Index {
	rng := rand.New(rand.NewSource(seed))
	docTerms := make([][]uint32, docCount)
	for d := range docTerms {
		for t := 0; t < termCount; t++ {
			if rng.Intn(3) == 0 {
				docTerms[d] = append(docTerms[d], uint32(t))
			}
		}
	}
	return forward.NewIndex(termCount, docTerms)
}

func TestGainVariantsAgree(t *testing.T) {
	const docCount, termCount = 16, 8
	fwd := randomCorpus(1, docCount, termCount)

	ids := make([]uint32, docCount)
	for i := range ids {
		ids[i] = uint32(i)
	}
	p := NewRange(ids, fwd, make([]float64, docCount)).Split()
	degrees := computePartitionDegrees(p, false)

	run := func(fn GainFunc) []float64 {
		for i := range p.Left.gains {
			p.Left.gains[i] = 0
		}
		fn(p.Left, p.Left.Len(), p.Right.Len(), degrees.left, degrees.right)
		fn(p.Right, p.Right.Len(), p.Left.Len(), degrees.right, degrees.left)
		out := make([]float64, docCount)
		copy(out, p.Left.gains)
		return out
	}

	want := run(directGains(1, false))
	variants := map[string]GainFunc{
		"direct parallel": directGains(4, true),
		"cached":          cachedGains(newGainCache(termCount)),
		"precomputed":     precomputedGains(newPrecomputedMoves(docCount, 64), 1, false),
		"precomputed low limit": precomputedGains(
			newPrecomputedMoves(docCount, 2), 1, false),
	}
	for name, fn := range variants {
		got := run(fn)
		for d := range got {
			if got[d] != want[d] {
				t.Errorf("%s: gains[%d] = %v, want %v", name, d, got[d], want[d])
			}
		}
	}
}

func TestCachedGainsInvalidateBetweenPasses(t *testing.T) {
	const docCount, termCount = 8, 4
	fwd := randomCorpus(2, docCount, termCount)
	ids := make([]uint32, docCount)
	for i := range ids {
		ids[i] = uint32(i)
	}
	p := NewRange(ids, fwd, make([]float64, docCount)).Split()
	degrees := computePartitionDegrees(p, false)

	cached := cachedGains(newGainCache(termCount))
	direct := directGains(1, false)

	cached(p.Left, p.Left.Len(), p.Right.Len(), degrees.left, degrees.right)

	// Mutate the degree maps as a swap pass would; the next pass must not
	// serve stale per-term gains.
	for _, term := range fwd.Terms(p.Left.ids[0]) {
		degrees.left[term]--
		degrees.right[term]++
	}
	cached(p.Left, p.Left.Len(), p.Right.Len(), degrees.left, degrees.right)
	gotCached := make([]float64, docCount)
	copy(gotCached, p.Left.gains)

	direct(p.Left, p.Left.Len(), p.Right.Len(), degrees.left, degrees.right)
	for _, d := range p.Left.ids {
		if gotCached[d] != p.Left.gains[d] {
			t.Errorf("cached gains[%d] = %v after degree change, want %v",
				d, gotCached[d], p.Left.gains[d])
		}
	}
}

func TestGainCacheGenerations(t *testing.T) {
	c := newGainCache(4)
	c.nextGeneration()
	c.put(2, 1.5)
	if v, ok := c.get(2); !ok || v != 1.5 {
		t.Fatalf("get after put = (%v, %v), want (1.5, true)", v, ok)
	}
	if _, ok := c.get(1); ok {
		t.Error("get of unset term reports a value")
	}
	c.nextGeneration()
	if _, ok := c.get(2); ok {
		t.Error("stale entry survives a generation bump")
	}
}

func TestMoveGainDirection(t *testing.T) {
	// A term whose other occurrences all sit on the opposite side pulls its
	// document over; a term fully at home pushes against moving.
	logn := log2(4)
	if g := moveGain(logn, logn, 1, 3); g <= 0 {
		t.Errorf("lonely term: moveGain = %v, want > 0", g)
	}
	if g := moveGain(logn, logn, 4, 0); g >= 0 {
		t.Errorf("settled term: moveGain = %v, want < 0", g)
	}
}

func TestCostZeroDegreeSafe(t *testing.T) {
	// The +1 offsets inside cost keep log2 off zero.
	got := cost(log2(8), log2(8), 0, 0)
	if got != 0 {
		t.Errorf("cost with zero degrees = %v, want 0", got)
	}
}

func TestLog2Table(t *testing.T) {
	tests := []struct {
		x    int
		want float64
	}{
		{x: 1, want: 0},
		{x: 2, want: 1},
		{x: 4096, want: 12}, // first value past the table
		{x: 8192, want: 13},
	}
	for _, tt := range tests {
		if got := log2(tt.x); got != tt.want {
			t.Errorf("log2(%d) = %v, want %v", tt.x, got, tt.want)
		}
	}
}
