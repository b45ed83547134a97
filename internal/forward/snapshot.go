package forward

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/ot/ds2i/pkg/codec"
	"github.com/ot/ds2i/pkg/errors"
)

// Snapshot layout, all integers little-endian:
//
//	magic u32, version u32, document_count u64, term_count u64,
//	then per document: id u32, encoded_len varint, encoded_bytes,
//	then xxhash64 of everything before the trailer.
const (
	snapshotMagic   uint32 = 0x46574458 // "FWDX"
	snapshotVersion uint32 = 1
)

// WriteSnapshot persists the index so reruns can skip the build. The write is
// atomic: a temp file renamed into place after the checksum trailer lands.
func (idx *Index) WriteSnapshot(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer func() {
		if f != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriterSize(f, 1<<20)
	digest := xxhash.New()
	w := io.MultiWriter(bw, digest)

	var header [24]byte
	binary.LittleEndian.PutUint32(header[0:4], snapshotMagic)
	binary.LittleEndian.PutUint32(header[4:8], snapshotVersion)
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(idx.docs)))
	binary.LittleEndian.PutUint64(header[16:24], uint64(idx.termCount))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}

	var scratch [4]byte
	var lenBuf []byte
	for id, buf := range idx.docs {
		binary.LittleEndian.PutUint32(scratch[:], uint32(id))
		if _, err := w.Write(scratch[:]); err != nil {
			return fmt.Errorf("writing snapshot document %d: %w", id, err)
		}
		lenBuf = codec.AppendUint32(lenBuf[:0], uint32(len(buf)))
		if _, err := w.Write(lenBuf); err != nil {
			return fmt.Errorf("writing snapshot document %d: %w", id, err)
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("writing snapshot document %d: %w", id, err)
		}
	}

	var trailer [8]byte
	binary.LittleEndian.PutUint64(trailer[:], digest.Sum64())
	if _, err := bw.Write(trailer[:]); err != nil {
		return fmt.Errorf("writing snapshot trailer: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	f = nil
	return os.Rename(tmp, path)
}

// ReadSnapshot loads a snapshot written by WriteSnapshot. Any structural
// deviation (magic, version, truncation, checksum) is ErrSnapshotMismatch.
func ReadSnapshot(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(data) < 32 {
		return nil, errors.Newf(errors.ErrSnapshotMismatch, errors.ExitSnapshotInvalid,
			"%s: too short (%d bytes)", path, len(data))
	}
	body, trailer := data[:len(data)-8], data[len(data)-8:]
	if sum := xxhash.Sum64(body); sum != binary.LittleEndian.Uint64(trailer) {
		return nil, errors.Newf(errors.ErrSnapshotMismatch, errors.ExitSnapshotInvalid,
			"%s: checksum mismatch", path)
	}
	if magic := binary.LittleEndian.Uint32(body[0:4]); magic != snapshotMagic {
		return nil, errors.Newf(errors.ErrSnapshotMismatch, errors.ExitSnapshotInvalid,
			"%s: bad magic %#x", path, magic)
	}
	if version := binary.LittleEndian.Uint32(body[4:8]); version != snapshotVersion {
		return nil, errors.Newf(errors.ErrSnapshotMismatch, errors.ExitSnapshotInvalid,
			"%s: unsupported version %d", path, version)
	}
	numDocs := binary.LittleEndian.Uint64(body[8:16])
	termCount := binary.LittleEndian.Uint64(body[16:24])

	idx := &Index{
		termCount: uint32(termCount),
		docs:      make([][]byte, numDocs),
	}
	rest := body[24:]
	for i := uint64(0); i < numDocs; i++ {
		if len(rest) < 4 {
			return nil, errors.Newf(errors.ErrSnapshotMismatch, errors.ExitSnapshotInvalid,
				"%s: truncated document entry %d", path, i)
		}
		id := binary.LittleEndian.Uint32(rest[0:4])
		if uint64(id) >= numDocs {
			return nil, errors.Newf(errors.ErrSnapshotMismatch, errors.ExitSnapshotInvalid,
				"%s: document id %d out of range", path, id)
		}
		rest = rest[4:]
		encodedLen, n := codec.Uint32(rest)
		if n == 0 || len(rest)-n < int(encodedLen) {
			return nil, errors.Newf(errors.ErrSnapshotMismatch, errors.ExitSnapshotInvalid,
				"%s: truncated term buffer for document %d", path, id)
		}
		rest = rest[n:]
		idx.docs[id] = append([]byte(nil), rest[:encodedLen]...)
		rest = rest[encodedLen:]
	}
	if len(rest) != 0 {
		return nil, errors.Newf(errors.ErrSnapshotMismatch, errors.ExitSnapshotInvalid,
			"%s: %d trailing bytes after last document", path, len(rest))
	}
	return idx, nil
}
