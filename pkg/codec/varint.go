// Package codec implements the byte-level varint coding used by the forward
// index delta buffers and the snapshot format: least-significant 7-bit groups,
// high bit set on continuation bytes.
package codec

import "fmt"

const maxUint32Bytes = 5

// AppendUint32 appends the varint encoding of v to buf and returns the
// extended slice.
func AppendUint32(buf []byte, v uint32) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// Uint32 decodes one varint from the front of buf. It returns the value and
// the number of bytes consumed; n == 0 means buf was truncated or the
// encoding overflowed 32 bits.
func Uint32(buf []byte) (v uint32, n int) {
	var shift uint
	for i, b := range buf {
		if i >= maxUint32Bytes {
			return 0, 0
		}
		v |= uint32(b&0x7f) << shift
		if b < 0x80 {
			return v, i + 1
		}
		shift += 7
	}
	return 0, 0
}

// DecodeAll decodes every varint in buf.
func DecodeAll(buf []byte) ([]uint32, error) {
	var out []uint32
	for len(buf) > 0 {
		v, n := Uint32(buf)
		if n == 0 {
			return nil, fmt.Errorf("truncated varint at offset from end %d", len(buf))
		}
		out = append(out, v)
		buf = buf[n:]
	}
	return out, nil
}
