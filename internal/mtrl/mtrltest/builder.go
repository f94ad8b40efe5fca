// Package mtrltest encodes small material files for tests.
package mtrltest

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"scene-exporter/internal/binreader"
	"scene-exporter/internal/mtrl"
)

// Texture binds a path to a sampler usage.
type Texture struct {
	Path  string
	Usage mtrl.TextureUsage
}

// Table is a color table to embed. Rows are encoded as halves; rows beyond
// len(Rows) are zero.
type Table struct {
	Legacy bool
	Rows   []mtrl.ColorTableRow
	Dye    []uint32 // raw dye rows; truncated to u16 for legacy tables
}

// Material is the complete input of Encode.
type Material struct {
	ShaderPackage string
	Textures      []Texture
	Keys          map[uint32]uint32
	Constants     map[uint32][]float32
	Flags         uint32
	Table         *Table
}

type writer struct{ bytes.Buffer }

func (w *writer) u8(v uint8)   { w.WriteByte(v) }
func (w *writer) u16(v uint16) { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *writer) u32(v uint32) { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

// Encode produces a material file for m.
func Encode(m Material) []byte {
	var strs bytes.Buffer
	texOffsets := make([]uint16, len(m.Textures))
	for i, t := range m.Textures {
		texOffsets[i] = uint16(strs.Len())
		strs.WriteString(t.Path)
		strs.WriteByte(0)
	}
	shpkOffset := uint16(strs.Len())
	strs.WriteString(m.ShaderPackage)
	strs.WriteByte(0)
	for strs.Len()%4 != 0 {
		strs.WriteByte(0)
	}

	var additional []byte
	var dataSet []byte
	if m.Table != nil {
		additional, dataSet = encodeTable(m.Table)
	}

	ids := make([]uint32, 0, len(m.Constants))
	for id := range m.Constants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var values []float32
	type constant struct {
		id        uint32
		off, size uint16
	}
	consts := make([]constant, 0, len(ids))
	for _, id := range ids {
		v := m.Constants[id]
		consts = append(consts, constant{id: id, off: uint16(len(values) * 4), size: uint16(len(v) * 4)})
		values = append(values, v...)
	}

	cats := make([]uint32, 0, len(m.Keys))
	for c := range m.Keys {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	var w writer
	w.u32(0x01030000)
	w.u16(0) // file size, unused by the parser
	w.u16(uint16(len(dataSet)))
	w.u16(uint16(strs.Len()))
	w.u16(shpkOffset)
	w.u8(uint8(len(m.Textures)))
	w.u8(0)
	w.u8(0)
	w.u8(uint8(len(additional)))
	for _, off := range texOffsets {
		w.u16(off)
		w.u16(0)
	}
	w.Write(strs.Bytes())
	w.Write(additional)
	w.Write(dataSet)

	w.u16(uint16(len(values) * 4))
	w.u16(uint16(len(cats)))
	w.u16(uint16(len(consts)))
	w.u16(uint16(len(m.Textures)))
	w.u32(m.Flags)
	for _, c := range cats {
		w.u32(c)
		w.u32(m.Keys[c])
	}
	for _, c := range consts {
		w.u32(c.id)
		w.u16(c.off)
		w.u16(c.size)
	}
	for i, t := range m.Textures {
		w.u32(uint32(t.Usage))
		w.u32(0)
		w.u8(uint8(i))
		w.Write([]byte{0, 0, 0})
	}
	for _, v := range values {
		w.f32(v)
	}
	return w.Bytes()
}

func encodeTable(t *Table) (additional, dataSet []byte) {
	flags := byte(0x4)
	if len(t.Dye) > 0 {
		flags |= 0x8
	}
	rows, halves := mtrl.StandardRows, mtrl.StandardHalves
	if t.Legacy {
		rows, halves = mtrl.LegacyRows, mtrl.LegacyHalves
		additional = []byte{flags, 0, 0, 0}
	} else {
		additional = []byte{flags | 0x30, 0x05, 0, 0}
	}

	var w writer
	for i := 0; i < rows; i++ {
		h := make([]uint16, halves)
		if i < len(t.Rows) {
			encodeRow(h, t.Rows[i], t.Legacy)
		}
		for _, v := range h {
			w.u16(v)
		}
	}
	if len(t.Dye) > 0 {
		for i := 0; i < rows; i++ {
			var v uint32
			if i < len(t.Dye) {
				v = t.Dye[i]
			}
			if t.Legacy {
				w.u16(uint16(v))
			} else {
				w.u32(v)
			}
		}
	}
	return additional, w.Bytes()
}

func encodeRow(h []uint16, r mtrl.ColorTableRow, legacy bool) {
	f := binreader.ToHalf
	for i := 0; i < 3; i++ {
		h[i] = f(r.Diffuse[i])
		h[4+i] = f(r.Specular[i])
		h[8+i] = f(r.Emissive[i])
	}
	h[3] = f(r.SpecularStrength)
	h[7] = f(r.GlossStrength)
	tile := f((float32(r.TileIndex) + 0.5) / 64)
	if legacy {
		h[11] = tile
		copy(h[12:16], []uint16{f(r.TileMatrix[0]), f(r.TileMatrix[1]), f(r.TileMatrix[2]), f(r.TileMatrix[3])})
		return
	}
	h[12] = f(r.SheenRate)
	h[13] = f(r.SheenTint)
	h[14] = f(r.SheenAperture)
	h[16] = f(r.Roughness)
	h[18] = f(r.Metalness)
	h[19] = f(r.Anisotropy)
	h[21] = f(r.SphereMask)
	h[24] = r.ShaderID
	h[25] = tile
	h[26] = f(r.TileAlpha)
	h[27] = r.SphereIndex
	copy(h[28:32], []uint16{f(r.TileMatrix[0]), f(r.TileMatrix[1]), f(r.TileMatrix[2]), f(r.TileMatrix[3])})
}
