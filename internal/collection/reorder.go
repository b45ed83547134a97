package collection

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ot/ds2i/pkg/errors"
)

// ReorderStats summarises one reorder run.
type ReorderStats struct {
	Documents    int
	PostingLists int
}

type posting struct {
	doc  uint32
	freq uint32
}

// Reorder rewrites the collection under input through mapping (old id to new
// id) and writes <output>.docs, <output>.freqs, <output>.sizes, and
// <output>.mapping. Every posting list is remapped and re-sorted by new
// document id with frequencies kept aligned; the mapping itself does not
// preserve relative order within a list. All four outputs are staged as temp
// files and renamed into place only after every one has been fully written,
// so a failed run leaves no partial output.
func Reorder(input, output string, mapping []uint32) (ReorderStats, error) {
	var stats ReorderStats

	docs, err := Open(input + ".docs")
	if err != nil {
		return stats, err
	}
	defer docs.Close()
	freqs, err := Open(input + ".freqs")
	if err != nil {
		return stats, err
	}
	defer freqs.Close()

	numDocs, err := docs.ReadDocHeader()
	if err != nil {
		return stats, err
	}
	if int(numDocs) != len(mapping) {
		return stats, errors.Newf(errors.ErrInternal, errors.ExitInternal,
			"mapping covers %d documents, collection has %d", len(mapping), numDocs)
	}
	stats.Documents = int(numDocs)

	outDocs, err := Create(output + ".docs")
	if err != nil {
		return stats, err
	}
	defer outDocs.Close()
	outFreqs, err := Create(output + ".freqs")
	if err != nil {
		return stats, err
	}
	defer outFreqs.Close()
	outSizes, err := Create(output + ".sizes")
	if err != nil {
		return stats, err
	}
	defer outSizes.Close()

	if err := outDocs.WriteRecord([]uint32{numDocs}); err != nil {
		return stats, err
	}

	var scratch []posting
	for {
		docList, err := docs.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}
		freqList, err := freqs.Next()
		if err != nil {
			return stats, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
				"%s.freqs has fewer lists than %s.docs", input, input)
		}
		if len(docList) != len(freqList) {
			return stats, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
				"posting list %d: %d doc ids but %d frequencies",
				stats.PostingLists, len(docList), len(freqList))
		}

		scratch = scratch[:0]
		for i, d := range docList {
			if int(d) >= len(mapping) {
				return stats, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
					"posting list %d: document id %d out of range", stats.PostingLists, d)
			}
			scratch = append(scratch, posting{doc: mapping[d], freq: freqList[i]})
		}
		sort.Slice(scratch, func(i, j int) bool { return scratch[i].doc < scratch[j].doc })
		for i := range scratch {
			docList[i] = scratch[i].doc
			freqList[i] = scratch[i].freq
		}
		if err := outDocs.WriteRecord(docList); err != nil {
			return stats, err
		}
		if err := outFreqs.WriteRecord(freqList); err != nil {
			return stats, err
		}
		stats.PostingLists++
	}
	if _, err := freqs.Next(); err != io.EOF {
		return stats, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
			"%s.freqs has more lists than %s.docs", input, input)
	}

	permuted, err := permuteSizes(input, mapping)
	if err != nil {
		return stats, err
	}
	if err := outSizes.WriteRecord(permuted); err != nil {
		return stats, err
	}
	mappingTmp, err := stageMapping(output+".mapping", mapping)
	if err != nil {
		return stats, err
	}

	for _, w := range []*Writer{outDocs, outFreqs, outSizes} {
		if err := w.Commit(); err != nil {
			os.Remove(mappingTmp)
			return stats, err
		}
	}
	if err := os.Rename(mappingTmp, output+".mapping"); err != nil {
		return stats, fmt.Errorf("renaming mapping file: %w", err)
	}
	return stats, nil
}

// permuteSizes reads the single .sizes record and permutes it by the mapping.
func permuteSizes(input string, mapping []uint32) ([]uint32, error) {
	r, err := Open(input + ".sizes")
	if err != nil {
		return nil, err
	}
	defer r.Close()
	sizes, err := r.Next()
	if err != nil {
		return nil, err
	}
	if len(sizes) != len(mapping) {
		return nil, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
			"%s.sizes has %d entries, expected %d", input, len(sizes), len(mapping))
	}
	permuted := make([]uint32, len(sizes))
	for old, size := range sizes {
		permuted[mapping[old]] = size
	}
	return permuted, nil
}

// stageMapping writes the raw old-id-indexed u32 array to a temp file and
// returns its path; the caller renames it after the other outputs commit.
func stageMapping(path string, mapping []uint32) (string, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("creating mapping file: %w", err)
	}
	buf := make([]byte, 4*len(mapping))
	for i, v := range mapping {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("writing mapping file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("syncing mapping file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("closing mapping file: %w", err)
	}
	return tmp, nil
}
