package limiter

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Fixed-size binary codec for the four counter state layouts. Persisted
// state never needs schema evolution beyond a variant tag (spec.md scopes
// serialization format as opaque to consumers), so plain big-endian fields
// behind the tag byte are sufficient — no external serialization library is
// warranted here (see DESIGN.md).

func putUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func putFloat32(buf []byte, v float32) []byte {
	return putUint32(buf, math.Float32bits(v))
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) uint64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, fmt.Errorf("%w: truncated uint64", ErrMalformedValue)
	}
	v := binary.BigEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *reader) uint32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, fmt.Errorf("%w: truncated uint32", ErrMalformedValue)
	}
	v := binary.BigEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *reader) float32() (float32, error) {
	v, err := r.uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *reader) done() error {
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: trailing bytes", ErrMalformedValue)
	}
	return nil
}
