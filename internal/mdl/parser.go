package mdl

import (
	"fmt"

	"scene-exporter/internal/binreader"
)

// File is a decoded model. Buffers are views into the original data.
type File struct {
	Header             FileHeader
	VertexDeclarations []VertexDeclaration
	StringCount        uint16
	Strings            binreader.StringTable
	Model              ModelHeader
	ElementIDs         []ElementID
	Lods               [LodCount]Lod
	Meshes             []Mesh
	AttributeOffsets   []uint32
	Submeshes          []Submesh
	MaterialOffsets    []uint32
	BoneOffsets        []uint32
	BoneTables         []BoneTable
	Shapes             []Shape
	ShapeMeshes        []ShapeMesh
	ShapeValues        []ShapeValue
	SubmeshBoneMap     []uint16
	BoundingBoxes      [4]BoundingBox
	BoneBoundingBoxes  []BoundingBox

	data []byte
}

// Parse decodes a model file. The returned File keeps a reference to data.
func Parse(data []byte) (*File, error) {
	r := binreader.New(data)
	f := &File{data: data}

	h := &f.Header
	h.Version = r.U32()
	h.StackSize = r.U32()
	h.RuntimeSize = r.U32()
	h.VertexDeclarationCount = r.U16()
	h.MaterialCount = r.U16()
	for i := 0; i < LodCount; i++ {
		h.VertexOffset[i] = r.U32()
	}
	for i := 0; i < LodCount; i++ {
		h.IndexOffset[i] = r.U32()
	}
	for i := 0; i < LodCount; i++ {
		h.VertexBufferSize[i] = r.U32()
	}
	for i := 0; i < LodCount; i++ {
		h.IndexBufferSize[i] = r.U32()
	}
	h.LodCount = r.U8()
	h.EnableIndexBufferStreaming = r.U8() != 0
	h.EnableEdgeGeometry = r.U8() != 0
	r.Skip(1)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mdl: file header: %w", err)
	}
	if h.Version != Version5 && h.Version != Version6 {
		return nil, fmt.Errorf("%w: %#x", ErrUnsupportedVersion, h.Version)
	}

	f.VertexDeclarations = make([]VertexDeclaration, h.VertexDeclarationCount)
	for i := range f.VertexDeclarations {
		f.VertexDeclarations[i] = readDeclaration(r)
	}

	f.StringCount = r.U16()
	r.Skip(2)
	stringSize := r.U32()
	f.Strings = binreader.NewStringTable(r.Span(int(stringSize)))
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mdl: string block: %w", err)
	}

	f.Model = readModelHeader(r)
	m := f.Model

	f.ElementIDs = make([]ElementID, m.ElementIDCount)
	for i := range f.ElementIDs {
		e := &f.ElementIDs[i]
		e.ElementID = r.U32()
		e.ParentBoneName = r.U32()
		copy(e.Translate[:], r.F32s(3))
		copy(e.Rotate[:], r.F32s(3))
	}

	for i := range f.Lods {
		f.Lods[i] = readLod(r)
	}
	if m.ExtraLodEnabled() {
		r.Skip(LodCount * 40)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mdl: model header: %w", err)
	}

	f.Meshes = make([]Mesh, m.MeshCount)
	for i := range f.Meshes {
		f.Meshes[i] = readMesh(r)
	}
	f.AttributeOffsets = r.U32s(int(m.AttributeCount))
	r.Skip(int(m.TerrainShadowMeshCount) * 20)

	f.Submeshes = make([]Submesh, m.SubmeshCount)
	for i := range f.Submeshes {
		s := &f.Submeshes[i]
		s.IndexOffset = r.U32()
		s.IndexCount = r.U32()
		s.AttributeIndexMask = r.U32()
		s.BoneStartIndex = r.U16()
		s.BoneCount = r.U16()
	}
	r.Skip(int(m.TerrainShadowSubmeshCount) * 12)

	f.MaterialOffsets = r.U32s(int(m.MaterialCount))
	f.BoneOffsets = r.U32s(int(m.BoneCount))
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mdl: mesh tables: %w", err)
	}

	tables, err := readBoneTables(r, h.Version, m)
	if err != nil {
		return nil, err
	}
	f.BoneTables = tables

	f.Shapes = make([]Shape, m.ShapeCount)
	for i := range f.Shapes {
		s := &f.Shapes[i]
		s.StringOffset = r.U32()
		for l := 0; l < LodCount; l++ {
			s.ShapeMeshStartIndex[l] = r.U16()
		}
		for l := 0; l < LodCount; l++ {
			s.ShapeMeshCount[l] = r.U16()
		}
	}
	f.ShapeMeshes = make([]ShapeMesh, m.ShapeMeshCount)
	for i := range f.ShapeMeshes {
		s := &f.ShapeMeshes[i]
		s.MeshIndexOffset = r.U32()
		s.ShapeValueCount = r.U32()
		s.ShapeValueOffset = r.U32()
	}
	f.ShapeValues = make([]ShapeValue, m.ShapeValueCount)
	for i := range f.ShapeValues {
		f.ShapeValues[i] = ShapeValue{BaseIndicesIndex: r.U16(), ReplacingVertexIndex: r.U16()}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mdl: shapes: %w", err)
	}

	mapSize := r.U32()
	f.SubmeshBoneMap = r.U16s(int(mapSize / 2))
	padding := r.U8()
	r.Skip(int(padding))

	for i := range f.BoundingBoxes {
		f.BoundingBoxes[i] = readBox(r)
	}
	f.BoneBoundingBoxes = make([]BoundingBox, m.BoneCount)
	for i := range f.BoneBoundingBoxes {
		f.BoneBoundingBoxes[i] = readBox(r)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mdl: bounding boxes: %w", err)
	}

	return f, nil
}

func readDeclaration(r *binreader.Reader) VertexDeclaration {
	var d VertexDeclaration
	ended := false
	for i := 0; i < MaxVertexElements; i++ {
		e := VertexElement{
			Stream:     r.U8(),
			Offset:     r.U8(),
			Type:       VertexType(r.U8()),
			Usage:      VertexUsage(r.U8()),
			UsageIndex: r.U8(),
		}
		r.Skip(3)
		if e.Stream == streamEnd {
			ended = true
		}
		if !ended {
			d.Elements = append(d.Elements, e)
		}
	}
	return d
}

func readModelHeader(r *binreader.Reader) ModelHeader {
	var m ModelHeader
	m.Radius = r.F32()
	m.MeshCount = r.U16()
	m.AttributeCount = r.U16()
	m.SubmeshCount = r.U16()
	m.MaterialCount = r.U16()
	m.BoneCount = r.U16()
	m.BoneTableCount = r.U16()
	m.ShapeCount = r.U16()
	m.ShapeMeshCount = r.U16()
	m.ShapeValueCount = r.U16()
	m.LodCount = r.U8()
	m.Flags1 = r.U8()
	m.ElementIDCount = r.U16()
	m.TerrainShadowMeshCount = r.U8()
	m.Flags2 = r.U8()
	m.ModelClipOutDistance = r.F32()
	m.ShadowClipOutDistance = r.F32()
	r.Skip(2)
	m.TerrainShadowSubmeshCount = r.U16()
	r.Skip(1)
	m.BGChangeMaterialIndex = r.U8()
	m.BGCrestChangeMaterialIndex = r.U8()
	r.Skip(1)
	m.BoneTableArrayCountTotal = r.U16()
	r.Skip(4) // unknown
	r.Skip(6) // padding
	return m
}

func readLod(r *binreader.Reader) Lod {
	var l Lod
	l.MeshIndex = r.U16()
	l.MeshCount = r.U16()
	l.ModelLodRange = r.F32()
	l.TextureLodRange = r.F32()
	l.WaterMeshIndex = r.U16()
	l.WaterMeshCount = r.U16()
	l.ShadowMeshIndex = r.U16()
	l.ShadowMeshCount = r.U16()
	l.TerrainShadowMeshIndex = r.U16()
	l.TerrainShadowMeshCount = r.U16()
	l.VerticalFogMeshIndex = r.U16()
	l.VerticalFogMeshCount = r.U16()
	l.EdgeGeometrySize = r.U32()
	l.EdgeGeometryDataOffset = r.U32()
	l.PolygonCount = r.U32()
	r.Skip(4)
	l.VertexBufferSize = r.U32()
	l.IndexBufferSize = r.U32()
	l.VertexDataOffset = r.U32()
	l.IndexDataOffset = r.U32()
	return l
}

func readMesh(r *binreader.Reader) Mesh {
	var m Mesh
	m.VertexCount = r.U16()
	r.Skip(2)
	m.IndexCount = r.U32()
	m.MaterialIndex = r.U16()
	m.SubmeshIndex = r.U16()
	m.SubmeshCount = r.U16()
	m.BoneTableIndex = r.U16()
	m.StartIndex = r.U32()
	for i := 0; i < MaxStreams; i++ {
		m.VertexBufferOffset[i] = r.U32()
	}
	for i := 0; i < MaxStreams; i++ {
		m.VertexBufferStride[i] = r.U8()
	}
	m.VertexStreamCount = r.U8()
	return m
}

func readBoneTables(r *binreader.Reader, version uint32, m ModelHeader) ([]BoneTable, error) {
	tables := make([]BoneTable, m.BoneTableCount)
	switch version {
	case Version5:
		for i := range tables {
			idx := r.U16s(MaxBoneTableEntries)
			count := r.U32()
			if count > MaxBoneTableEntries {
				return nil, fmt.Errorf("%w: bone table %d has %d entries", ErrMalformed, i, count)
			}
			if idx != nil {
				tables[i].BoneIndex = idx[:count]
			}
		}
	case Version6:
		for i := range tables {
			start := r.Offset()
			offset := int(r.U16())
			size := int(r.U16())
			if size > MaxBoneTableEntries {
				return nil, fmt.Errorf("%w: bone table %d has %d entries", ErrMalformed, i, size)
			}
			tables[i].BoneIndex = r.At(start+offset*4, size*2).U16s(size)
			if tables[i].BoneIndex == nil && size > 0 {
				return nil, fmt.Errorf("mdl: bone table %d: %w", i, binreader.ErrOutOfBounds)
			}
		}
		r.Skip(int(m.BoneTableArrayCountTotal) * 2)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("mdl: bone tables: %w", err)
	}
	return tables, nil
}

func readBox(r *binreader.Reader) BoundingBox {
	var b BoundingBox
	copy(b.Min[:], r.F32s(4))
	copy(b.Max[:], r.F32s(4))
	return b
}
