// Package mesh decodes model vertex streams into typed vertices, submesh
// ranges and morph targets.
package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mdl"
	"scene-exporter/internal/pbd"
)

// BoneMapFunc maps a model bone name to a global joint index.
type BoneMapFunc func(name string) (int, bool)

// BuildOptions controls Build.
type BuildOptions struct {
	LOD int

	// Bones maps bone names to joints. A nil map produces static vertices.
	Bones BoneMapFunc

	// Deform is applied to positions of skinned vertices, in order.
	Deform       []*pbd.Deformer
	DeformParent pbd.ParentFunc
}

// Submesh is an index range relative to the start of its mesh.
type Submesh struct {
	Offset     uint32
	Count      uint32
	Attributes []string
}

// Mesh is one decoded model mesh.
type Mesh struct {
	Index         int
	Kind          VertexKind
	MaterialIndex int
	Vertices      []Vertex
	Indices       []uint16
	Submeshes     []Submesh

	// BoneNames holds the model bone name of each bone table entry.
	BoneNames []string
}

// Build decodes mesh meshIndex of f.
func Build(f *mdl.File, meshIndex int, opts BuildOptions) (*Mesh, error) {
	if meshIndex < 0 || meshIndex >= len(f.Meshes) {
		return nil, fmt.Errorf("%w: mesh %d of %d", ErrIndexOutOfRange, meshIndex, len(f.Meshes))
	}
	raw := f.Meshes[meshIndex]
	decl, err := f.Declaration(meshIndex)
	if err != nil {
		return nil, err
	}
	streams, err := f.VertexStreams(opts.LOD, meshIndex)
	if err != nil {
		return nil, err
	}
	indices, err := f.IndexBuffer(opts.LOD, meshIndex)
	if err != nil {
		return nil, err
	}

	m := &Mesh{Index: meshIndex, MaterialIndex: int(raw.MaterialIndex), Indices: indices}
	for i, idx := range indices {
		if int(idx) >= int(raw.VertexCount) {
			return nil, fmt.Errorf("%w: mesh %d index %d references vertex %d of %d",
				ErrIndexOutOfRange, meshIndex, i, idx, raw.VertexCount)
		}
	}

	skinned := opts.Bones != nil && raw.Skinned() &&
		decl.Has(mdl.UsageBlendWeights, 0) && decl.Has(mdl.UsageBlendIndices, 0)
	var joints []int
	if skinned {
		if joints, m.BoneNames, err = jointTable(f, raw, opts.Bones); err != nil {
			return nil, fmt.Errorf("mesh %d: %w", meshIndex, err)
		}
	}
	m.Kind = kindOf(decl, skinned)

	d := decoder{decl: decl, streams: streams, strides: raw.VertexBufferStride, kind: m.Kind}
	m.Vertices = make([]Vertex, raw.VertexCount)
	for vi := range m.Vertices {
		v, err := d.vertex(vi, joints)
		if err != nil {
			return nil, fmt.Errorf("mesh %d vertex %d: %w", meshIndex, vi, err)
		}
		if skinned && len(opts.Deform) > 0 {
			v.Position = deform(v, m.BoneNames, joints, opts)
		}
		m.Vertices[vi] = v
	}

	if err := m.buildSubmeshes(f, raw); err != nil {
		return nil, fmt.Errorf("mesh %d: %w", meshIndex, err)
	}
	return m, nil
}

func kindOf(decl mdl.VertexDeclaration, skinned bool) VertexKind {
	g := GeometryP
	if decl.Has(mdl.UsageNormal, 0) {
		g = GeometryPN
		if decl.Has(mdl.UsageBinormal, 0) || decl.Has(mdl.UsageTangent, 0) {
			g = GeometryPNT
		}
	}
	s := SurfaceColor
	hasColor, hasUV := decl.Has(mdl.UsageColor, 0), decl.Has(mdl.UsageTexCoord, 0)
	switch {
	case hasColor && hasUV:
		s = SurfaceColorUV
	case hasUV:
		s = SurfaceUV
	}
	return MakeKind(g, s, skinned)
}

// jointTable resolves each bone table entry to a global joint. Entries the
// bone map does not know are -1 and fail only when a vertex weights them.
func jointTable(f *mdl.File, raw mdl.Mesh, bones BoneMapFunc) ([]int, []string, error) {
	if int(raw.BoneTableIndex) >= len(f.BoneTables) {
		return nil, nil, fmt.Errorf("%w: bone table %d of %d", ErrBoneOutOfRange, raw.BoneTableIndex, len(f.BoneTables))
	}
	all, err := f.BoneNames()
	if err != nil {
		return nil, nil, err
	}
	table := f.BoneTables[raw.BoneTableIndex].BoneIndex
	joints := make([]int, len(table))
	names := make([]string, len(table))
	for i, b := range table {
		if int(b) >= len(all) {
			return nil, nil, fmt.Errorf("%w: bone table entry %d names bone %d of %d", ErrBoneOutOfRange, i, b, len(all))
		}
		names[i] = all[b]
		joints[i] = -1
		if j, ok := bones(all[b]); ok {
			joints[i] = j
		}
	}
	return joints, names, nil
}

type decoder struct {
	decl    mdl.VertexDeclaration
	streams [mdl.MaxStreams][]byte
	strides [mdl.MaxStreams]uint8
	kind    VertexKind
}

func (d *decoder) bytes(e mdl.VertexElement, vi int) ([]byte, error) {
	if int(e.Stream) >= mdl.MaxStreams {
		return nil, fmt.Errorf("%w: stream %d", ErrUnsupportedElement, e.Stream)
	}
	start := vi*int(d.strides[e.Stream]) + int(e.Offset)
	s := d.streams[e.Stream]
	if start+e.Type.Size() > len(s) {
		return nil, fmt.Errorf("%w: %s at byte %d of stream %d", ErrIndexOutOfRange, e.Usage, start, e.Stream)
	}
	return s[start:], nil
}

func (d *decoder) read(usage mdl.VertexUsage, vi int) ([8]float32, int, bool, error) {
	e, ok := d.decl.Find(usage, 0)
	if !ok {
		return [8]float32{}, 0, false, nil
	}
	b, err := d.bytes(e, vi)
	if err != nil {
		return [8]float32{}, 0, false, err
	}
	c, n, err := element(b, e.Type)
	return c, n, true, err
}

func (d *decoder) vertex(vi int, joints []int) (Vertex, error) {
	v := Vertex{Color: mgl32.Vec4{1, 1, 1, 1}, Tangent: mgl32.Vec4{1, 0, 0, 1}}

	c, n, ok, err := d.read(mdl.UsagePosition, vi)
	if err != nil {
		return v, err
	}
	if !ok || n < 3 {
		return v, ErrNoPosition
	}
	v.Position = mgl32.Vec3{c[0], c[1], c[2]}

	if d.kind.HasNormal() {
		if c, _, _, err = d.read(mdl.UsageNormal, vi); err != nil {
			return v, err
		}
		v.Normal = sanitizeNormal(mgl32.Vec3{c[0], c[1], c[2]})
	}
	if d.kind.HasTangent() {
		usage := mdl.UsageBinormal
		if !d.decl.Has(usage, 0) {
			usage = mdl.UsageTangent
		}
		if c, _, _, err = d.read(usage, vi); err != nil {
			return v, err
		}
		v.Tangent = sanitizeTangent(mgl32.Vec4{c[0]*2 - 1, c[1]*2 - 1, c[2]*2 - 1, c[3]})
	}
	if c, _, ok, err = d.read(mdl.UsageColor, vi); err != nil {
		return v, err
	} else if ok {
		v.Color = mgl32.Vec4{c[0], c[1], c[2], c[3]}
	}
	if c, n, ok, err = d.read(mdl.UsageTexCoord, vi); err != nil {
		return v, err
	} else if ok {
		v.UV0 = mgl32.Vec2{c[0], c[1]}
		if n >= 4 {
			v.UV1 = mgl32.Vec2{c[2], c[3]}
		}
	}

	if d.kind.Skinned() {
		if err := d.skin(&v, vi, joints); err != nil {
			return v, err
		}
	}
	return v, nil
}

func (d *decoder) skin(v *Vertex, vi int, joints []int) error {
	we, _ := d.decl.Find(mdl.UsageBlendWeights, 0)
	ie, _ := d.decl.Find(mdl.UsageBlendIndices, 0)
	wb, err := d.bytes(we, vi)
	if err != nil {
		return err
	}
	ib, err := d.bytes(ie, vi)
	if err != nil {
		return err
	}
	if wb, err = rawBytes(wb, we.Type); err != nil {
		return err
	}
	if ib, err = rawBytes(ib, ie.Type); err != nil {
		return err
	}

	var total float32
	slot := 0
	for i := 0; i < len(wb) && i < len(ib); i++ {
		w := float32(wb[i]) / 255
		if w == 0 {
			continue
		}
		local := int(ib[i])
		if local >= len(joints) || joints[local] < 0 {
			return fmt.Errorf("%w: influence %d uses local bone %d of %d", ErrBoneOutOfRange, i, local, len(joints))
		}
		v.Joints[slot] = uint16(joints[local])
		v.Weights[slot] = w
		total += w
		slot++
	}
	if total > 0 {
		for i := 0; i < slot; i++ {
			v.Weights[i] /= total
		}
	}
	return nil
}

// deform applies the race chain with the vertex's resolved influences.
func deform(v Vertex, names []string, joints []int, opts BuildOptions) mgl32.Vec3 {
	byJoint := make(map[int]string, len(names))
	for i, j := range joints {
		if j >= 0 {
			byJoint[j] = names[i]
		}
	}
	var influences []pbd.Influence
	for i, w := range v.Weights {
		if w == 0 {
			continue
		}
		influences = append(influences, pbd.Influence{Bone: byJoint[int(v.Joints[i])], Weight: w})
	}
	if len(influences) == 0 {
		return v.Position
	}
	return pbd.Deform(opts.Deform, v.Position, influences, opts.DeformParent)
}

func (m *Mesh) buildSubmeshes(f *mdl.File, raw mdl.Mesh) error {
	if raw.SubmeshCount == 0 {
		m.Submeshes = []Submesh{{Offset: 0, Count: uint32(len(m.Indices))}}
		return nil
	}
	for si := int(raw.SubmeshIndex); si < int(raw.SubmeshIndex)+int(raw.SubmeshCount); si++ {
		if si >= len(f.Submeshes) {
			return fmt.Errorf("%w: submesh %d of %d", ErrIndexOutOfRange, si, len(f.Submeshes))
		}
		s := f.Submeshes[si]
		if s.IndexOffset < raw.StartIndex {
			return fmt.Errorf("%w: submesh %d starts at %d before mesh start %d", ErrIndexOutOfRange, si, s.IndexOffset, raw.StartIndex)
		}
		rel := s.IndexOffset - raw.StartIndex
		if uint64(rel)+uint64(s.IndexCount) > uint64(len(m.Indices)) {
			return fmt.Errorf("%w: submesh %d range %d+%d exceeds %d indices", ErrIndexOutOfRange, si, rel, s.IndexCount, len(m.Indices))
		}
		attrs, err := f.SubmeshAttributes(s)
		if err != nil {
			return err
		}
		m.Submeshes = append(m.Submeshes, Submesh{Offset: rel, Count: s.IndexCount, Attributes: attrs})
	}
	return nil
}

// SubmeshIndices returns the indices of submesh i.
func (m *Mesh) SubmeshIndices(i int) []uint16 {
	s := m.Submeshes[i]
	return m.Indices[s.Offset : s.Offset+s.Count]
}
