// Package bp implements recursive graph bisection over a forward index: an
// iterative local search that renumbers documents so that postings of
// co-occurring terms land close together and delta-encode smaller.
package bp

import (
	"github.com/ot/ds2i/internal/forward"
)

// Range is a contiguous view over the shared document-id arena. Splitting
// repartitions index positions within the same backing array and never copies
// documents; sibling ranges are disjoint sub-slices, so no locking is needed
// across them. The gains scratch array is shared by the whole recursion and
// indexed by document id, one writer per index.
type Range struct {
	ids   []uint32
	fwd   *forward.Index
	gains []float64
}

// NewRange wraps ids (a sub-slice of the arena) for bisection.
func NewRange(ids []uint32, fwd *forward.Index, gains []float64) Range {
	return Range{ids: ids, fwd: fwd, gains: gains}
}

func (r Range) Len() int {
	return len(r.ids)
}

func (r Range) termCount() int {
	return r.fwd.TermCount()
}

func (r Range) terms(doc uint32) []uint32 {
	return r.fwd.Terms(doc)
}

// Split bisects the range at its positional midpoint.
func (r Range) Split() Partition {
	mid := len(r.ids) / 2
	return Partition{
		Left:  Range{ids: r.ids[:mid], fwd: r.fwd, gains: r.gains},
		Right: Range{ids: r.ids[mid:], fwd: r.fwd, gains: r.gains},
	}
}

// Partition is a transient pair of sibling ranges produced by one Split.
type Partition struct {
	Left  Range
	Right Range
}

// Mapping converts a final document order into an old-id to new-id array:
// mapping[id] = position of id in order. It is a bijection on 0..len-1
// whenever order is a permutation.
func Mapping(order []uint32) []uint32 {
	mapping := make([]uint32, len(order))
	for pos, id := range order {
		mapping[id] = uint32(pos)
	}
	return mapping
}
