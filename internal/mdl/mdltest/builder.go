// Package mdltest encodes small model files for tests.
package mdltest

import (
	"bytes"
	"encoding/binary"
	"math"

	"scene-exporter/internal/mdl"
)

// Mesh describes one mesh to encode. Optional attribute slices are emitted
// only when non-nil and must match len(Positions).
type Mesh struct {
	Positions    [][3]float32
	Normals      [][3]float32
	Tangents     [][4]float32 // unorm encoded, handedness in W
	UVs          [][2]float32
	Colors       [][4]float32
	BlendIndices [][4]uint8
	BlendWeights [][4]float32
	Indices      []uint16
	Submeshes    []Submesh
	BoneTable    int // -1 for unskinned
	Material     int
}

// Submesh is a range relative to its mesh's indices.
type Submesh struct {
	Offset, Count uint32
	Attributes    uint32
}

// Shape is a morph with values for specific meshes at LOD 0.
type Shape struct {
	Name   string
	Meshes []ShapeMesh
}

// ShapeMesh lists base/replacement pairs for one mesh.
type ShapeMesh struct {
	Mesh   int
	Values []mdl.ShapeValue
}

// Model is the complete input of Encode.
type Model struct {
	Version    uint32 // defaults to mdl.Version5
	Bones      []string
	BoneTables [][]uint16
	Materials  []string
	Attributes []string
	Meshes     []Mesh
	Shapes     []Shape
}

type writer struct{ bytes.Buffer }

func (w *writer) u8(v uint8)    { w.WriteByte(v) }
func (w *writer) u16(v uint16)  { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *writer) u32(v uint32)  { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }
func (w *writer) pad(n int)     { w.Write(make([]byte, n)) }

type layout struct {
	elems   []mdl.VertexElement
	strides [mdl.MaxStreams]uint8
	streams uint8
}

func meshLayout(m Mesh) layout {
	var l layout
	add := func(stream uint8, t mdl.VertexType, u mdl.VertexUsage) {
		l.elems = append(l.elems, mdl.VertexElement{Stream: stream, Offset: l.strides[stream], Type: t, Usage: u})
		l.strides[stream] += uint8(t.Size())
	}
	add(0, mdl.Single3, mdl.UsagePosition)
	if m.BlendWeights != nil {
		add(0, mdl.ByteFloat4, mdl.UsageBlendWeights)
		add(0, mdl.UInt, mdl.UsageBlendIndices)
	}
	if m.Normals != nil {
		add(1, mdl.Single3, mdl.UsageNormal)
	}
	if m.Tangents != nil {
		add(1, mdl.ByteFloat4, mdl.UsageBinormal)
	}
	if m.Colors != nil {
		add(1, mdl.ByteFloat4, mdl.UsageColor)
	}
	if m.UVs != nil {
		add(1, mdl.Single2, mdl.UsageTexCoord)
	}
	l.streams = 1
	if l.strides[1] > 0 {
		l.streams = 2
	}
	return l
}

func unorm(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func encodeVertices(m Mesh, l layout) [mdl.MaxStreams][]byte {
	var out [mdl.MaxStreams][]byte
	for s := uint8(0); s < l.streams; s++ {
		out[s] = make([]byte, int(l.strides[s])*len(m.Positions))
	}
	for vi := range m.Positions {
		for _, e := range l.elems {
			b := out[e.Stream][vi*int(l.strides[e.Stream])+int(e.Offset):]
			switch e.Usage {
			case mdl.UsagePosition:
				for k := 0; k < 3; k++ {
					binary.LittleEndian.PutUint32(b[k*4:], math.Float32bits(m.Positions[vi][k]))
				}
			case mdl.UsageNormal:
				for k := 0; k < 3; k++ {
					binary.LittleEndian.PutUint32(b[k*4:], math.Float32bits(m.Normals[vi][k]))
				}
			case mdl.UsageTexCoord:
				for k := 0; k < 2; k++ {
					binary.LittleEndian.PutUint32(b[k*4:], math.Float32bits(m.UVs[vi][k]))
				}
			case mdl.UsageColor:
				for k := 0; k < 4; k++ {
					b[k] = unorm(m.Colors[vi][k])
				}
			case mdl.UsageBinormal:
				t := m.Tangents[vi]
				for k := 0; k < 3; k++ {
					b[k] = unorm((t[k] + 1) / 2)
				}
				b[3] = unorm(t[3])
			case mdl.UsageBlendWeights:
				for k := 0; k < 4; k++ {
					b[k] = unorm(m.BlendWeights[vi][k])
				}
			case mdl.UsageBlendIndices:
				copy(b[:4], m.BlendIndices[vi][:])
			}
		}
	}
	return out
}

// Encode serialises the model. Only LOD 0 is populated.
func Encode(model Model) []byte {
	version := model.Version
	if version == 0 {
		version = mdl.Version5
	}

	// string block
	var strs bytes.Buffer
	addString := func(s string) uint32 {
		off := uint32(strs.Len())
		strs.WriteString(s)
		strs.WriteByte(0)
		return off
	}
	attrOffsets := make([]uint32, len(model.Attributes))
	for i, s := range model.Attributes {
		attrOffsets[i] = addString(s)
	}
	boneOffsets := make([]uint32, len(model.Bones))
	for i, s := range model.Bones {
		boneOffsets[i] = addString(s)
	}
	matOffsets := make([]uint32, len(model.Materials))
	for i, s := range model.Materials {
		matOffsets[i] = addString(s)
	}
	shapeOffsets := make([]uint32, len(model.Shapes))
	for i, s := range model.Shapes {
		shapeOffsets[i] = addString(s.Name)
	}

	// geometry buffers
	layouts := make([]layout, len(model.Meshes))
	var vbuf, ibuf bytes.Buffer
	type placed struct {
		offsets    [mdl.MaxStreams]uint32
		startIndex uint32
	}
	places := make([]placed, len(model.Meshes))
	for i, m := range model.Meshes {
		layouts[i] = meshLayout(m)
		streams := encodeVertices(m, layouts[i])
		for s := uint8(0); s < layouts[i].streams; s++ {
			places[i].offsets[s] = uint32(vbuf.Len())
			vbuf.Write(streams[s])
		}
		places[i].startIndex = uint32(ibuf.Len() / 2)
		for _, idx := range m.Indices {
			_ = binary.Write(&ibuf, binary.LittleEndian, idx)
		}
	}

	var submeshCount, shapeMeshCount, shapeValueCount int
	for _, m := range model.Meshes {
		submeshCount += len(m.Submeshes)
	}
	for _, s := range model.Shapes {
		shapeMeshCount += len(s.Meshes)
		for _, sm := range s.Meshes {
			shapeValueCount += len(sm.Values)
		}
	}

	var body writer
	// vertex declarations
	for _, l := range layouts {
		for i := 0; i < mdl.MaxVertexElements; i++ {
			if i < len(l.elems) {
				e := l.elems[i]
				body.u8(e.Stream)
				body.u8(e.Offset)
				body.u8(uint8(e.Type))
				body.u8(uint8(e.Usage))
				body.u8(e.UsageIndex)
				body.pad(3)
				continue
			}
			body.u8(255)
			body.pad(7)
		}
	}
	body.u16(uint16(len(model.Attributes) + len(model.Bones) + len(model.Materials) + len(model.Shapes)))
	body.u16(0)
	body.u32(uint32(strs.Len()))
	body.Write(strs.Bytes())

	// model header
	body.f32(1)
	body.u16(uint16(len(model.Meshes)))
	body.u16(uint16(len(model.Attributes)))
	body.u16(uint16(submeshCount))
	body.u16(uint16(len(model.Materials)))
	body.u16(uint16(len(model.Bones)))
	body.u16(uint16(len(model.BoneTables)))
	body.u16(uint16(len(model.Shapes)))
	body.u16(uint16(shapeMeshCount))
	body.u16(uint16(shapeValueCount))
	body.u8(1) // lod count
	body.u8(0)
	body.u16(0) // element ids
	body.u8(0)
	body.u8(0)
	body.f32(0)
	body.f32(0)
	body.u16(0)
	body.u16(0)
	body.pad(4)
	tableTotal := 0
	for _, t := range model.BoneTables {
		n := len(t)
		if n%2 != 0 {
			n++
		}
		tableTotal += n
	}
	body.u16(uint16(tableTotal))
	body.pad(4)
	body.pad(6)

	// lods
	for l := 0; l < mdl.LodCount; l++ {
		if l == 0 {
			body.u16(0)
			body.u16(uint16(len(model.Meshes)))
		} else {
			body.u16(uint16(len(model.Meshes)))
			body.u16(0)
		}
		body.pad(60 - 4)
	}

	// meshes
	submeshStart := 0
	for i, m := range model.Meshes {
		body.u16(uint16(len(m.Positions)))
		body.u16(0)
		body.u32(uint32(len(m.Indices)))
		body.u16(uint16(m.Material))
		body.u16(uint16(submeshStart))
		body.u16(uint16(len(m.Submeshes)))
		if m.BoneTable < 0 {
			body.u16(mdl.NoBoneTable)
		} else {
			body.u16(uint16(m.BoneTable))
		}
		body.u32(places[i].startIndex)
		for s := 0; s < mdl.MaxStreams; s++ {
			body.u32(places[i].offsets[s])
		}
		for s := 0; s < mdl.MaxStreams; s++ {
			body.u8(layouts[i].strides[s])
		}
		body.u8(layouts[i].streams)
		submeshStart += len(m.Submeshes)
	}
	for _, off := range attrOffsets {
		body.u32(off)
	}
	for i, m := range model.Meshes {
		for _, s := range m.Submeshes {
			body.u32(places[i].startIndex + s.Offset)
			body.u32(s.Count)
			body.u32(s.Attributes)
			body.u16(0)
			body.u16(0)
		}
	}
	for _, off := range matOffsets {
		body.u32(off)
	}
	for _, off := range boneOffsets {
		body.u32(off)
	}

	// bone tables
	if version == mdl.Version6 {
		headerStart := body.Len()
		dataOffset := len(model.BoneTables) * 4
		for ti, t := range model.BoneTables {
			start := headerStart + ti*4
			body.u16(uint16((headerStart + dataOffset - start) / 4))
			body.u16(uint16(len(t)))
			size := len(t) * 2
			if size%4 != 0 {
				size += 2
			}
			dataOffset += size
		}
		for _, t := range model.BoneTables {
			for _, b := range t {
				body.u16(b)
			}
			if len(t)%2 != 0 {
				body.u16(0)
			}
		}
		// the reader skips BoneTableArrayCountTotal*2 bytes after the headers
		written := body.Len() - headerStart - len(model.BoneTables)*4
		body.pad(tableTotal*2 - written)
	} else {
		for _, t := range model.BoneTables {
			for i := 0; i < mdl.MaxBoneTableEntries; i++ {
				if i < len(t) {
					body.u16(t[i])
				} else {
					body.u16(0)
				}
			}
			body.u32(uint32(len(t)))
		}
	}

	// shapes
	smIndex, valueIndex := 0, 0
	for i, s := range model.Shapes {
		body.u32(shapeOffsets[i])
		body.u16(uint16(smIndex))
		body.u16(0)
		body.u16(0)
		body.u16(uint16(len(s.Meshes)))
		body.u16(0)
		body.u16(0)
		smIndex += len(s.Meshes)
	}
	for _, s := range model.Shapes {
		for _, sm := range s.Meshes {
			body.u32(places[sm.Mesh].startIndex)
			body.u32(uint32(len(sm.Values)))
			body.u32(uint32(valueIndex))
			valueIndex += len(sm.Values)
		}
	}
	for _, s := range model.Shapes {
		for _, sm := range s.Meshes {
			for _, v := range sm.Values {
				body.u16(v.BaseIndicesIndex)
				body.u16(v.ReplacingVertexIndex)
			}
		}
	}
	body.u32(0) // submesh bone map
	body.u8(0)  // padding
	body.pad(32 * (4 + len(model.Bones)))

	// file header
	const headerSize = 68
	vertexOffset := uint32(headerSize + body.Len())
	indexOffset := vertexOffset + uint32(vbuf.Len())
	var out writer
	out.u32(version)
	out.u32(uint32(body.Len()))
	out.u32(0)
	out.u16(uint16(len(model.Meshes)))
	out.u16(uint16(len(model.Materials)))
	out.u32(vertexOffset)
	out.u32(vertexOffset)
	out.u32(vertexOffset)
	out.u32(indexOffset)
	out.u32(indexOffset)
	out.u32(indexOffset)
	out.u32(uint32(vbuf.Len()))
	out.u32(0)
	out.u32(0)
	out.u32(uint32(ibuf.Len()))
	out.u32(0)
	out.u32(0)
	out.u8(1)
	out.u8(0)
	out.u8(0)
	out.u8(0)
	out.Write(body.Bytes())
	out.Write(vbuf.Bytes())
	out.Write(ibuf.Bytes())
	return out.Bytes()
}
