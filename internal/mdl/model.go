package mdl

import (
	"encoding/binary"
	"fmt"

	"scene-exporter/internal/binreader"
)

// BoneNames resolves the model's bone name table.
func (f *File) BoneNames() ([]string, error) {
	names, err := f.Strings.Resolve(f.BoneOffsets)
	if err != nil {
		return nil, fmt.Errorf("mdl: bone names: %w", err)
	}
	return names, nil
}

// MaterialNames resolves the model's material path table.
func (f *File) MaterialNames() ([]string, error) {
	names, err := f.Strings.Resolve(f.MaterialOffsets)
	if err != nil {
		return nil, fmt.Errorf("mdl: material names: %w", err)
	}
	return names, nil
}

// AttributeNames resolves the model's attribute table.
func (f *File) AttributeNames() ([]string, error) {
	names, err := f.Strings.Resolve(f.AttributeOffsets)
	if err != nil {
		return nil, fmt.Errorf("mdl: attribute names: %w", err)
	}
	return names, nil
}

// ShapeNames resolves the name of every shape.
func (f *File) ShapeNames() ([]string, error) {
	offsets := make([]uint32, len(f.Shapes))
	for i, s := range f.Shapes {
		offsets[i] = s.StringOffset
	}
	names, err := f.Strings.Resolve(offsets)
	if err != nil {
		return nil, fmt.Errorf("mdl: shape names: %w", err)
	}
	return names, nil
}

// SubmeshAttributes returns the attribute names enabled in a submesh's mask.
func (f *File) SubmeshAttributes(s Submesh) ([]string, error) {
	names, err := f.AttributeNames()
	if err != nil {
		return nil, err
	}
	var out []string
	for i, n := range names {
		if i < 32 && s.AttributeIndexMask&(1<<uint(i)) != 0 {
			out = append(out, n)
		}
	}
	return out, nil
}

// LodMeshes returns the mesh index range for a LOD.
func (f *File) LodMeshes(lod int) (start, count int, err error) {
	if lod < 0 || lod >= LodCount {
		return 0, 0, fmt.Errorf("%w: lod %d", ErrMalformed, lod)
	}
	l := f.Lods[lod]
	start, count = int(l.MeshIndex), int(l.MeshCount)
	if start+count > len(f.Meshes) {
		return 0, 0, fmt.Errorf("%w: lod %d meshes %d+%d exceed %d", ErrMalformed, lod, start, count, len(f.Meshes))
	}
	return start, count, nil
}

// IndexBuffer returns the mesh's indices for a LOD.
func (f *File) IndexBuffer(lod, mesh int) ([]uint16, error) {
	if mesh < 0 || mesh >= len(f.Meshes) {
		return nil, fmt.Errorf("%w: mesh %d of %d", ErrMalformed, mesh, len(f.Meshes))
	}
	m := f.Meshes[mesh]
	start := int(f.Header.IndexOffset[lod]) + int(m.StartIndex)*2
	n := int(m.IndexCount)
	if start < 0 || start+n*2 > len(f.data) {
		return nil, fmt.Errorf("mdl: mesh %d indices: %w", mesh, binreader.ErrOutOfBounds)
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(f.data[start+i*2:])
	}
	return out, nil
}

// VertexStreams returns a view of each vertex stream of a mesh for a LOD.
func (f *File) VertexStreams(lod, mesh int) ([MaxStreams][]byte, error) {
	var streams [MaxStreams][]byte
	if mesh < 0 || mesh >= len(f.Meshes) {
		return streams, fmt.Errorf("%w: mesh %d of %d", ErrMalformed, mesh, len(f.Meshes))
	}
	m := f.Meshes[mesh]
	for s := 0; s < int(m.VertexStreamCount) && s < MaxStreams; s++ {
		start := int(f.Header.VertexOffset[lod]) + int(m.VertexBufferOffset[s])
		size := int(m.VertexBufferStride[s]) * int(m.VertexCount)
		if start < 0 || start+size > len(f.data) {
			return streams, fmt.Errorf("mdl: mesh %d stream %d: %w", mesh, s, binreader.ErrOutOfBounds)
		}
		streams[s] = f.data[start : start+size]
	}
	return streams, nil
}

// Declaration returns the vertex declaration of a mesh.
func (f *File) Declaration(mesh int) (VertexDeclaration, error) {
	if mesh < 0 || mesh >= len(f.VertexDeclarations) {
		return VertexDeclaration{}, fmt.Errorf("%w: no vertex declaration for mesh %d", ErrMalformed, mesh)
	}
	return f.VertexDeclarations[mesh], nil
}

// ShapeMeshesFor returns the shape meshes of a shape at a LOD that target mesh.
func (f *File) ShapeMeshesFor(shape Shape, lod, mesh int) []ShapeMesh {
	m := f.Meshes[mesh]
	start := int(shape.ShapeMeshStartIndex[lod])
	count := int(shape.ShapeMeshCount[lod])
	var out []ShapeMesh
	for i := start; i < start+count && i < len(f.ShapeMeshes); i++ {
		if f.ShapeMeshes[i].MeshIndexOffset == m.StartIndex {
			out = append(out, f.ShapeMeshes[i])
		}
	}
	return out
}

// Values returns the shape values of a shape mesh.
func (f *File) Values(sm ShapeMesh) ([]ShapeValue, error) {
	start := int(sm.ShapeValueOffset)
	end := start + int(sm.ShapeValueCount)
	if end > len(f.ShapeValues) {
		return nil, fmt.Errorf("%w: shape values %d..%d exceed %d", ErrMalformed, start, end, len(f.ShapeValues))
	}
	return f.ShapeValues[start:end], nil
}

// Validate checks the index and table invariants of every mesh at a LOD.
func (f *File) Validate(lod int) error {
	start, count, err := f.LodMeshes(lod)
	if err != nil {
		return err
	}
	for mi := start; mi < start+count; mi++ {
		m := f.Meshes[mi]
		indices, err := f.IndexBuffer(lod, mi)
		if err != nil {
			return err
		}
		for i, idx := range indices {
			if int(idx) >= int(m.VertexCount) {
				return fmt.Errorf("%w: mesh %d index %d references vertex %d of %d", ErrMalformed, mi, i, idx, m.VertexCount)
			}
		}
		for si := int(m.SubmeshIndex); si < int(m.SubmeshIndex)+int(m.SubmeshCount); si++ {
			if si >= len(f.Submeshes) {
				return fmt.Errorf("%w: mesh %d submesh %d of %d", ErrMalformed, mi, si, len(f.Submeshes))
			}
			s := f.Submeshes[si]
			if s.IndexOffset < m.StartIndex || s.IndexOffset+s.IndexCount > m.StartIndex+m.IndexCount {
				return fmt.Errorf("%w: mesh %d submesh %d range %d+%d outside %d+%d",
					ErrMalformed, mi, si, s.IndexOffset, s.IndexCount, m.StartIndex, m.IndexCount)
			}
		}
		if m.Skinned() {
			if int(m.BoneTableIndex) >= len(f.BoneTables) {
				return fmt.Errorf("%w: mesh %d bone table %d of %d", ErrMalformed, mi, m.BoneTableIndex, len(f.BoneTables))
			}
		}
	}
	for ti, t := range f.BoneTables {
		if len(t.BoneIndex) > MaxBoneTableEntries {
			return fmt.Errorf("%w: bone table %d has %d entries", ErrMalformed, ti, len(t.BoneIndex))
		}
		for _, b := range t.BoneIndex {
			if int(b) >= len(f.BoneOffsets) {
				return fmt.Errorf("%w: bone table %d references bone %d of %d", ErrMalformed, ti, b, len(f.BoneOffsets))
			}
		}
	}
	return nil
}
