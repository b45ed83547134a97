package bp

import (
	"context"
	"testing"

	"github.com/ot/ds2i/internal/forward"
)

func TestMapping(t *testing.T) {
	order := []uint32{2, 0, 3, 1}
	got := Mapping(order)
	want := []uint32{1, 3, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Mapping(%v) = %v, want %v", order, got, want)
		}
	}
}

func TestDefaultDepth(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{n: 0, want: 1},
		{n: 1, want: 1},
		{n: 2, want: 1},
		{n: 3, want: 2},
		{n: 1024, want: 10},
		{n: 1025, want: 11},
	}
	for _, tt := range tests {
		if got := DefaultDepth(tt.n); got != tt.want {
			t.Errorf("DefaultDepth(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func assertBijection(t *testing.T, mapping []uint32) {
	t.Helper()
	seen := make([]bool, len(mapping))
	for old, pos := range mapping {
		if int(pos) >= len(mapping) {
			t.Fatalf("mapping[%d] = %d out of range", old, pos)
		}
		if seen[pos] {
			t.Fatalf("mapping position %d assigned twice", pos)
		}
		seen[pos] = true
	}
}

func TestRunDisjointClustersStaySeparated(t *testing.T) {
	// Documents 0 and 1 share every term; 2 and 3 share a disjoint set.
	// Cross-swaps are ungainful, so depth-1 bisection keeps the groups in
	// separate halves and numbers one group before the other.
	fwd := forward.NewIndex(3, [][]uint32{
		{0, 1},
		{0, 1},
		{2},
		{2},
	})
	b := New(fwd, Options{Depth: 1}, nil, nil)
	mapping, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertBijection(t, mapping)
	if mapping[0] >= 2 || mapping[1] >= 2 {
		t.Errorf("mapping = %v: documents 0 and 1 not in the first half", mapping)
	}
	if mapping[2] < 2 || mapping[3] < 2 {
		t.Errorf("mapping = %v: documents 2 and 3 not in the second half", mapping)
	}
}

func TestRunRegroupsInterleavedClusters(t *testing.T) {
	// Same clusters as TestProcessPartitionSeparatesClusters: the initial
	// halves interleave clusters A = {0, 1, 3} and B = {2, 4, 5}; the full
	// run must end with each cluster occupying one contiguous half.
	fwd := forward.NewIndex(2, [][]uint32{
		{0}, {0}, {1}, {0}, {1}, {1},
	})
	b := New(fwd, Options{}, nil, nil)
	mapping, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertBijection(t, mapping)
	for _, d := range []uint32{0, 1, 3} {
		if mapping[d] >= 3 {
			t.Errorf("mapping = %v: cluster A document %d outside first half", mapping, d)
		}
	}
	for _, d := range []uint32{2, 4, 5} {
		if mapping[d] < 3 {
			t.Errorf("mapping = %v: cluster B document %d outside second half", mapping, d)
		}
	}
}

func TestRunPermutationProperty(t *testing.T) {
	fwd := randomCorpus(7, 100, 40)
	for _, opts := range []Options{
		{},
		{Depth: 3},
		{ParallelDepth: 4, Workers: 4},
		{CacheDepth: 2},
		{PrecomputeDegreeLimit: 16},
	} {
		b := New(fwd, opts, nil, nil)
		mapping, err := b.Run(context.Background())
		if err != nil {
			t.Fatalf("Run(%+v): %v", opts, err)
		}
		if len(mapping) != 100 {
			t.Fatalf("Run(%+v): mapping length %d, want 100", opts, len(mapping))
		}
		assertBijection(t, mapping)
	}
}

func TestRunDeterministic(t *testing.T) {
	fwd := randomCorpus(11, 128, 32)
	opts := Options{ParallelDepth: 5, CacheDepth: 2, Workers: 4}

	first, err := New(fwd, opts, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := New(fwd, opts, nil, nil).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		for d := range first {
			if first[d] != again[d] {
				t.Fatalf("run %d: mapping[%d] = %d, first run had %d",
					run, d, again[d], first[d])
			}
		}
	}
}

func TestRunGainVariantsProduceSameMapping(t *testing.T) {
	fwd := randomCorpus(13, 64, 24)
	base, err := New(fwd, Options{}, nil, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for name, opts := range map[string]Options{
		"cached":      {CacheDepth: 10},
		"precomputed": {PrecomputeDegreeLimit: 128},
		"parallel":    {ParallelDepth: 6, Workers: 8},
	} {
		got, err := New(fwd, opts, nil, nil).Run(context.Background())
		if err != nil {
			t.Fatalf("Run(%s): %v", name, err)
		}
		for d := range base {
			if got[d] != base[d] {
				t.Fatalf("%s: mapping[%d] = %d, direct run had %d", name, d, got[d], base[d])
			}
		}
	}
}

func TestRunTinyCorpora(t *testing.T) {
	for n := 0; n <= 4; n++ {
		docTerms := make([][]uint32, n)
		for d := range docTerms {
			docTerms[d] = []uint32{0}
		}
		fwd := forward.NewIndex(1, docTerms)
		mapping, err := New(fwd, Options{}, nil, nil).Run(context.Background())
		if err != nil {
			t.Fatalf("Run with %d documents: %v", n, err)
		}
		if len(mapping) != n {
			t.Fatalf("Run with %d documents: mapping length %d", n, len(mapping))
		}
		assertBijection(t, mapping)
	}
}

func TestRunCancelled(t *testing.T) {
	fwd := randomCorpus(17, 64, 16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(fwd, Options{}, nil, nil).Run(ctx); err == nil {
		t.Error("Run with cancelled context: want error, got nil")
	}
}

func BenchmarkProcessPartition(b *testing.B) {
	fwd := randomCorpus(19, 2048, 256)
	gains := make([]float64, 2048)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := NewRange(identityIDs(2048), fwd, gains).Split()
		newTestEngine(false).processPartition(p)
	}
}

func BenchmarkRun(b *testing.B) {
	fwd := randomCorpus(23, 1024, 128)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := New(fwd, Options{ParallelDepth: 3}, nil, nil).Run(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
