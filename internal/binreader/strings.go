package binreader

import (
	"bytes"
	"fmt"
)

// CString reads a null-terminated string at off inside blob.
func CString(blob []byte, off int) (string, error) {
	if off < 0 || off >= len(blob) {
		return "", fmt.Errorf("%w: string offset %d of %d", ErrOutOfBounds, off, len(blob))
	}
	end := bytes.IndexByte(blob[off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: at offset %d", ErrUnterminated, off)
	}
	return string(blob[off : off+end]), nil
}

// StringTable resolves offsets into a shared string blob.
type StringTable struct {
	blob []byte
}

// NewStringTable wraps a string blob.
func NewStringTable(blob []byte) StringTable {
	return StringTable{blob: blob}
}

// Blob returns the raw string bytes.
func (t StringTable) Blob() []byte { return t.blob }

// At resolves a single offset.
func (t StringTable) At(off uint32) (string, error) {
	return CString(t.blob, int(off))
}

// Resolve resolves every offset, failing on the first bad one.
func (t StringTable) Resolve(offsets []uint32) ([]string, error) {
	out := make([]string, len(offsets))
	for i, off := range offsets {
		s, err := CString(t.blob, int(off))
		if err != nil {
			return nil, fmt.Errorf("string %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}
