// Package benchmark contains Go benchmarks for the forward index build, the
// bisection engine, and the collection rewrite, measuring throughput and
// allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ot/ds2i/internal/bp"
	"github.com/ot/ds2i/internal/collection"
	"github.com/ot/ds2i/internal/forward"
)

// synthCollection writes a collection of termCount Zipf-ish posting lists
// over docCount documents and returns its basename.
func synthCollection(b *testing.B, docCount, termCount int) string {
	b.Helper()
	base := filepath.Join(b.TempDir(), "bench")
	rng := rand.New(rand.NewSource(42))

	docsW, err := collection.Create(base + ".docs")
	if err != nil {
		b.Fatal(err)
	}
	defer docsW.Close()
	freqsW, err := collection.Create(base + ".freqs")
	if err != nil {
		b.Fatal(err)
	}
	defer freqsW.Close()
	if err := docsW.WriteRecord([]uint32{uint32(docCount)}); err != nil {
		b.Fatal(err)
	}

	sizes := make([]uint32, docCount)
	for t := 0; t < termCount; t++ {
		listLen := 1 + rng.Intn(docCount/2)
		seen := make(map[uint32]bool, listLen)
		list := make([]uint32, 0, listLen)
		for len(list) < listLen {
			d := uint32(rng.Intn(docCount))
			if !seen[d] {
				seen[d] = true
				list = append(list, d)
			}
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		freqs := make([]uint32, len(list))
		for i, d := range list {
			freqs[i] = uint32(1 + rng.Intn(4))
			sizes[d] += freqs[i]
		}
		if err := docsW.WriteRecord(list); err != nil {
			b.Fatal(err)
		}
		if err := freqsW.WriteRecord(freqs); err != nil {
			b.Fatal(err)
		}
	}
	sizesW, err := collection.Create(base + ".sizes")
	if err != nil {
		b.Fatal(err)
	}
	defer sizesW.Close()
	if err := sizesW.WriteRecord(sizes); err != nil {
		b.Fatal(err)
	}
	for _, w := range []*collection.Writer{docsW, freqsW, sizesW} {
		if err := w.Commit(); err != nil {
			b.Fatal(err)
		}
	}
	return base
}

// BenchmarkForwardIndexBuild measures the inverted-to-forward inversion.
func BenchmarkForwardIndexBuild(b *testing.B) {
	base := synthCollection(b, 4096, 512)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := forward.FromCollection(base, 2); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBisection measures a full bisection run at several corpus sizes.
func BenchmarkBisection(b *testing.B) {
	for _, docCount := range []int{1024, 4096} {
		b.Run(fmt.Sprintf("docs_%d", docCount), func(b *testing.B) {
			base := synthCollection(b, docCount, docCount/8)
			fwd, err := forward.FromCollection(base, 2)
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := bp.New(fwd, bp.Options{ParallelDepth: 4}, nil, nil).Run(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkReorderRewrite measures the posting rewrite given a mapping.
func BenchmarkReorderRewrite(b *testing.B) {
	base := synthCollection(b, 4096, 512)
	mapping := make([]uint32, 4096)
	perm := rand.New(rand.NewSource(7)).Perm(4096)
	for i, p := range perm {
		mapping[i] = uint32(p)
	}
	out := filepath.Join(b.TempDir(), "out")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := collection.Reorder(base, out, mapping); err != nil {
			b.Fatal(err)
		}
	}
}
