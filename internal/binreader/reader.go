package binreader

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader is a little-endian cursor over a borrowed byte slice.
// The first out-of-bounds read latches an error; later reads return zero values.
type Reader struct {
	data []byte
	off  int
	err  error
}

// New returns a Reader positioned at the start of data.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first bounds error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Len returns the size of the backing buffer.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.off >= len(r.data) {
		return 0
	}
	return len(r.data) - r.off
}

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(off int) {
	if off < 0 || off > len(r.data) {
		r.fail(off, 0)
		return
	}
	r.off = off
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

func (r *Reader) fail(off, n int) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: read %d bytes at offset %d of %d", ErrOutOfBounds, n, off, len(r.data))
	}
	r.off = len(r.data)
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail(r.off, n)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Span returns the next n bytes as a view into the backing buffer.
func (r *Reader) Span(n int) []byte {
	return r.take(n)
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) I16() int16 {
	return int16(r.U16())
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) I32() int32 {
	return int32(r.U32())
}

func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// F16 reads an IEEE 754 binary16 value.
func (r *Reader) F16() float32 {
	return Half(r.U16())
}

// U16s reads a fixed inline array of n uint16 values.
func (r *Reader) U16s(n int) []uint16 {
	b := r.take(n * 2)
	if b == nil {
		return nil
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return out
}

// U32s reads a fixed inline array of n uint32 values.
func (r *Reader) U32s(n int) []uint32 {
	b := r.take(n * 4)
	if b == nil {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out
}

// F32s reads a fixed inline array of n float32 values.
func (r *Reader) F32s(n int) []float32 {
	b := r.take(n * 4)
	if b == nil {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// At returns a new Reader over data[off:off+n] sharing the backing buffer.
func (r *Reader) At(off, n int) *Reader {
	if off < 0 || n < 0 || off+n > len(r.data) {
		sub := &Reader{}
		sub.fail(off, n)
		return sub
	}
	return &Reader{data: r.data[off : off+n]}
}

// U16At reads a uint16 at an absolute offset without moving the cursor.
func U16At(data []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(data) {
		return 0, fmt.Errorf("%w: u16 at offset %d of %d", ErrOutOfBounds, off, len(data))
	}
	return binary.LittleEndian.Uint16(data[off:]), nil
}

// U32At reads a uint32 at an absolute offset without moving the cursor.
func U32At(data []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(data) {
		return 0, fmt.Errorf("%w: u32 at offset %d of %d", ErrOutOfBounds, off, len(data))
	}
	return binary.LittleEndian.Uint32(data[off:]), nil
}

// F32At reads a float32 at an absolute offset without moving the cursor.
func F32At(data []byte, off int) (float32, error) {
	v, err := U32At(data, off)
	return math.Float32frombits(v), err
}
