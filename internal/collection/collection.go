// Package collection reads and writes the on-disk binary collection format:
// a file is a sequence of records, each a little-endian u32 count followed by
// that many little-endian u32 values. A collection basename names three
// files: <base>.docs (a one-integer document-count header record, then one
// posting list per term), <base>.freqs (one frequency record per term, no
// header), and <base>.sizes (a single record of per-document sizes).
package collection

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/ot/ds2i/pkg/errors"
)

// Reader streams records from one collection file.
type Reader struct {
	f  *os.File
	br *bufio.Reader
}

// Open opens a collection file for sequential reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening collection file: %w", err)
	}
	return &Reader{f: f, br: bufio.NewReaderSize(f, 1<<20)}, nil
}

// Next returns the next record. It returns io.EOF after the last record and
// ErrMalformedCollection if the file ends mid-record.
func (r *Reader) Next() ([]uint32, error) {
	var header [4]byte
	if _, err := io.ReadFull(r.br, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
			"%s: truncated record count", r.f.Name())
	}
	n := binary.LittleEndian.Uint32(header[:])
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
			"%s: truncated record of %d values", r.f.Name(), n)
	}
	vals := make([]uint32, n)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	return vals, nil
}

// ReadDocHeader consumes the .docs header record, which must contain exactly
// one integer: the document count.
func (r *Reader) ReadDocHeader() (uint32, error) {
	seq, err := r.Next()
	if err != nil {
		return 0, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
			"%s: missing document-count header", r.f.Name())
	}
	if len(seq) != 1 {
		return 0, errors.Newf(errors.ErrMalformedCollection, errors.ExitMalformedInput,
			"%s: first record should only contain number of documents, got %d values",
			r.f.Name(), len(seq))
	}
	return seq[0], nil
}

func (r *Reader) Close() error {
	return r.f.Close()
}

// Writer produces a collection file atomically: records go to a .tmp file
// that is renamed over the final path on Commit.
type Writer struct {
	f         *os.File
	bw        *bufio.Writer
	tmpPath   string
	finalPath string
	committed bool
}

// Create opens a Writer for the given final path.
func Create(path string) (*Writer, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("creating collection file: %w", err)
	}
	return &Writer{
		f:         f,
		bw:        bufio.NewWriterSize(f, 1<<20),
		tmpPath:   tmp,
		finalPath: path,
	}, nil
}

// WriteRecord appends one count-prefixed record.
func (w *Writer) WriteRecord(vals []uint32) error {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(vals)))
	if _, err := w.bw.Write(scratch[:]); err != nil {
		return fmt.Errorf("writing record count: %w", err)
	}
	for _, v := range vals {
		binary.LittleEndian.PutUint32(scratch[:], v)
		if _, err := w.bw.Write(scratch[:]); err != nil {
			return fmt.Errorf("writing record value: %w", err)
		}
	}
	return nil
}

// Commit flushes, syncs, and renames the temp file into place.
func (w *Writer) Commit() error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flushing collection file: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("syncing collection file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("closing collection file: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		return fmt.Errorf("renaming collection file: %w", err)
	}
	w.committed = true
	return nil
}

// Close removes the temp file if Commit was never reached.
func (w *Writer) Close() error {
	if w.committed {
		return nil
	}
	w.f.Close()
	return os.Remove(w.tmpPath)
}
