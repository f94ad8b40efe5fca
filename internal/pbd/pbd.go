// Package pbd decodes bone deformer files and applies race deformation
// chains to vertex positions.
package pbd

import (
	"fmt"

	"scene-exporter/internal/binreader"
	"scene-exporter/internal/mathutil"
)

// NoLink marks an absent link index.
const NoLink = 0xFFFF

// Header is one race entry.
type Header struct {
	ID         uint16
	DeformerID uint16
	Offset     int32
	Unknown    float32
}

// Link is one node of the race hierarchy. Indices refer to Links except
// HeaderIndex, which refers to Headers.
type Link struct {
	Parent      uint16
	FirstChild  uint16
	NextSibling uint16
	HeaderIndex uint16
}

// Deformer holds per-bone deform matrices for one race.
type Deformer struct {
	Offset    int32
	BoneNames []string
	Matrices  []mathutil.Affine
}

// Matrix returns the deform matrix for bone, matched exactly.
func (d *Deformer) Matrix(bone string) (mathutil.Affine, bool) {
	for i, name := range d.BoneNames {
		if name == bone {
			return d.Matrices[i], true
		}
	}
	return mathutil.Affine{}, false
}

// File is a decoded deformer file.
type File struct {
	Headers   []Header
	Links     []Link
	Deformers map[int32]*Deformer // keyed by header offset
}

// Parse decodes a deformer file.
func Parse(data []byte) (*File, error) {
	r := binreader.New(data)
	count := int(r.I32())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("pbd: entry count: %w", err)
	}
	if count < 0 || count*20 > r.Remaining() {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrMalformed, count, len(data))
	}

	f := &File{
		Headers:   make([]Header, count),
		Links:     make([]Link, count),
		Deformers: make(map[int32]*Deformer, count),
	}
	for i := range f.Headers {
		f.Headers[i] = Header{ID: r.U16(), DeformerID: r.U16(), Offset: r.I32(), Unknown: r.F32()}
	}
	for i := range f.Links {
		f.Links[i] = Link{Parent: r.U16(), FirstChild: r.U16(), NextSibling: r.U16(), HeaderIndex: r.U16()}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("pbd: entries: %w", err)
	}

	for _, h := range f.Headers {
		if h.Offset == 0 {
			continue
		}
		if _, ok := f.Deformers[h.Offset]; ok {
			continue
		}
		d, err := readDeformer(data, int(h.Offset))
		if err != nil {
			return nil, fmt.Errorf("pbd: race %d: %w", h.ID, err)
		}
		f.Deformers[h.Offset] = d
	}
	return f, nil
}

func readDeformer(data []byte, start int) (*Deformer, error) {
	r := binreader.New(data)
	r.Seek(start)
	count := int(r.I32())
	if err := r.Err(); err != nil {
		return nil, err
	}
	if count < 0 || count*50 > r.Remaining() {
		return nil, fmt.Errorf("%w: %d bones at offset %d", ErrMalformed, count, start)
	}

	d := &Deformer{Offset: int32(start), BoneNames: make([]string, count), Matrices: make([]mathutil.Affine, count)}
	for i := range d.BoneNames {
		off := int(r.I16())
		name, err := binreader.CString(data, start+off)
		if err != nil {
			return nil, fmt.Errorf("bone %d name: %w", i, err)
		}
		d.BoneNames[i] = name
	}
	r.Skip(count * 2 % 4)
	for i := range d.Matrices {
		copy(d.Matrices[i][:], r.F32s(12))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

func (f *File) header(id uint16) (Header, bool) {
	for _, h := range f.Headers {
		if h.ID == id {
			return h, true
		}
	}
	return Header{}, false
}

// Chain returns the deformers that take a model rigged for race from to
// race to, in application order. Equal races give an empty chain.
func (f *File) Chain(from, to uint16) ([]*Deformer, error) {
	if from == to {
		return nil, nil
	}
	var chain []*Deformer
	current := to
	for steps := 0; current != from; steps++ {
		if steps > len(f.Headers) {
			return nil, fmt.Errorf("%w: cycle walking from %d to %d", ErrMalformed, to, from)
		}
		h, ok := f.header(current)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNoDeformer, current)
		}
		d, ok := f.Deformers[h.Offset]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNoDeformer, current)
		}
		chain = append(chain, d)

		if int(h.DeformerID) >= len(f.Links) {
			return nil, fmt.Errorf("%w: race %d link %d", ErrMalformed, current, h.DeformerID)
		}
		link := f.Links[h.DeformerID]
		if link.Parent == NoLink {
			return nil, fmt.Errorf("%w: race %d", ErrNoParent, current)
		}
		if int(link.Parent) >= len(f.Links) {
			return nil, fmt.Errorf("%w: race %d parent link %d", ErrMalformed, current, link.Parent)
		}
		parent := f.Links[link.Parent]
		if int(parent.HeaderIndex) >= len(f.Headers) {
			return nil, fmt.Errorf("%w: link header %d", ErrMalformed, parent.HeaderIndex)
		}
		current = f.Headers[parent.HeaderIndex].ID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
