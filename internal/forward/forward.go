// Package forward builds and serves the forward index: for every document,
// the ascending term ids it contains, held as delta-encoded varint buffers.
// It is the dual of the term-indexed inverted collection and the input to
// recursive bisection.
package forward

import (
	"io"

	"github.com/ot/ds2i/internal/collection"
	"github.com/ot/ds2i/pkg/codec"
	"github.com/ot/ds2i/pkg/errors"
)

// Index owns the per-document term buffers.
type Index struct {
	termCount uint32
	docs      [][]byte
}

// Size returns the number of documents.
func (idx *Index) Size() int {
	return len(idx.docs)
}

// TermCount returns the size of the term id universe, including terms whose
// posting lists were below the build threshold.
func (idx *Index) TermCount() int {
	return int(idx.termCount)
}

// Terms decodes the ascending term ids of one document by prefix-summing its
// delta buffer. The result is materialized because callers iterate it several
// times per bisection iteration.
func (idx *Index) Terms(doc uint32) []uint32 {
	buf := idx.docs[doc]
	terms := make([]uint32, 0, len(buf))
	var running uint32
	for len(buf) > 0 {
		delta, n := codec.Uint32(buf)
		if n == 0 {
			break
		}
		running += delta
		terms = append(terms, running)
		buf = buf[n:]
	}
	return terms
}

// NewIndex builds an index directly from per-document ascending term id
// sequences, delta-encoding each into the document's term buffer.
func NewIndex(termCount int, docTerms [][]uint32) *Index {
	idx := &Index{
		termCount: uint32(termCount),
		docs:      make([][]byte, len(docTerms)),
	}
	for d, terms := range docTerms {
		var last uint32
		for _, t := range terms {
			idx.docs[d] = codec.AppendUint32(idx.docs[d], t-last)
			last = t
		}
	}
	return idx
}

// FromCollection inverts <basename>.docs into a forward index. Posting lists
// shorter than minListLength are skipped entirely: their terms keep their ids
// but contribute no forward postings, bounding the cost of reordering against
// its benefit for rare terms.
func FromCollection(basename string, minListLength int) (*Index, error) {
	r, err := collection.Open(basename + ".docs")
	if err != nil {
		return nil, err
	}
	defer r.Close()

	numDocs, err := r.ReadDocHeader()
	if err != nil {
		return nil, err
	}

	idx := &Index{docs: make([][]byte, numDocs)}
	lastTerm := make([]uint32, numDocs)
	var term uint32
	for {
		list, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(list) >= minListLength {
			for _, d := range list {
				if d >= numDocs {
					return nil, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
						"term %d: document id %d out of range (%d documents)", term, d, numDocs)
				}
				idx.docs[d] = codec.AppendUint32(idx.docs[d], term-lastTerm[d])
				lastTerm[d] = term
			}
		}
		term++
	}
	idx.termCount = term
	return idx, nil
}
