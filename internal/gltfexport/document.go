package gltfexport

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"scene-exporter/internal/mathutil"
	"scene-exporter/internal/mesh"
	"scene-exporter/internal/scene"
)

type builder struct {
	doc   *gltf.Document
	opts  Options
	blobs Blobs

	textures map[string]uint32
	// files holds texture bytes written beside a JSON document.
	files map[string][]byte
}

// Build converts s into a glTF document. Texture bytes come from blobs; GLB
// documents embed them, JSON documents reference them by URI and Write
// places them beside the document.
func Build(s *scene.Scene, blobs Blobs, opts Options) (*gltf.Document, error) {
	b, err := build(s, blobs, opts)
	if err != nil {
		return nil, err
	}
	return b.doc, nil
}

func build(s *scene.Scene, blobs Blobs, opts Options) (*builder, error) {
	b := &builder{
		doc:      gltf.NewDocument(),
		opts:     opts,
		blobs:    blobs,
		textures: make(map[string]uint32),
		files:    make(map[string][]byte),
	}
	if opts.Generator != "" {
		b.doc.Asset.Generator = opts.Generator
	}

	for _, m := range s.Materials {
		mat, err := b.material(m)
		if err != nil {
			return nil, err
		}
		b.doc.Materials = append(b.doc.Materials, mat)
	}
	for _, m := range s.Meshes {
		b.doc.Meshes = append(b.doc.Meshes, b.mesh(m))
	}
	for _, n := range s.Nodes {
		b.doc.Nodes = append(b.doc.Nodes, node(n))
	}
	b.lights(s)
	for _, r := range s.Roots() {
		b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, uint32(r))
	}
	for _, sk := range s.Skins {
		b.doc.Skins = append(b.doc.Skins, b.skin(sk))
	}
	for _, a := range s.Animations {
		anim, err := b.animation(a, len(s.Nodes))
		if err != nil {
			return nil, err
		}
		if len(anim.Channels) > 0 {
			b.doc.Animations = append(b.doc.Animations, anim)
		}
	}
	if len(b.doc.Buffers) > 0 {
		buf := b.doc.Buffers[0]
		buf.ByteLength = uint32(len(buf.Data))
	}
	return b, nil
}

func node(n *scene.Node) *gltf.Node {
	out := &gltf.Node{
		Name:        n.Name,
		Translation: [3]float32(n.Local.Translation),
		Rotation:    rotation(n.Local),
		Scale:       [3]float32(n.Local.Scale),
		Extras:      extras(n.Extras),
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, uint32(c))
	}
	if n.Mesh != scene.None {
		out.Mesh = gltf.Index(uint32(n.Mesh))
	}
	if n.Skin != scene.None {
		out.Skin = gltf.Index(uint32(n.Skin))
	}
	return out
}

// rotation returns the glTF xyzw quaternion. A zero quaternion is identity.
func rotation(t mathutil.Transform) [4]float32 {
	q := t.Rotation
	if q.Len() < 1e-8 {
		q = mgl32.QuatIdent()
	} else {
		q = q.Normalize()
	}
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

func extras(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func (b *builder) mesh(m *scene.Mesh) *gltf.Mesh {
	out := &gltf.Mesh{Name: m.Name}
	if len(m.TargetNames) > 0 {
		out.Extras = map[string]any{"targetNames": m.TargetNames}
	}
	for _, p := range m.Primitives {
		out.Primitives = append(out.Primitives, b.primitive(p))
	}
	return out
}

func (b *builder) primitive(p scene.Primitive) *gltf.Primitive {
	n := len(p.Vertices)
	attrs := gltf.Attribute{}

	pos := make([][3]float32, n)
	for i, v := range p.Vertices {
		pos[i] = v.Position
	}
	attrs["POSITION"] = modeler.WritePosition(b.doc, pos)

	if p.Kind.HasNormal() {
		nrm := make([][3]float32, n)
		for i, v := range p.Vertices {
			nrm[i] = v.Normal
		}
		attrs["NORMAL"] = modeler.WriteNormal(b.doc, nrm)
	}
	if p.Kind.HasTangent() {
		tan := make([][4]float32, n)
		for i, v := range p.Vertices {
			tan[i] = v.Tangent
		}
		attrs["TANGENT"] = modeler.WriteTangent(b.doc, tan)
	}
	if p.Kind.HasUV() {
		uv0 := make([][2]float32, n)
		uv1 := make([][2]float32, n)
		second := false
		for i, v := range p.Vertices {
			uv0[i] = v.UV0
			uv1[i] = v.UV1
			second = second || v.UV1 != (mgl32.Vec2{})
		}
		attrs["TEXCOORD_0"] = modeler.WriteTextureCoord(b.doc, uv0)
		if second {
			attrs["TEXCOORD_1"] = modeler.WriteTextureCoord(b.doc, uv1)
		}
	}
	if p.Kind.HasColor() {
		col := make([][4]uint8, n)
		for i, v := range p.Vertices {
			for c := 0; c < 4; c++ {
				col[i][c] = unorm(v.Color[c])
			}
		}
		attrs["COLOR_0"] = modeler.WriteColor(b.doc, col)
	}
	if p.Kind.Skinned() {
		b.skinAttributes(attrs, p.Vertices)
	}

	out := &gltf.Primitive{Attributes: attrs}
	if n <= 0xFFFF {
		idx := make([]uint16, len(p.Indices))
		for i, v := range p.Indices {
			idx[i] = uint16(v)
		}
		out.Indices = gltf.Index(modeler.WriteIndices(b.doc, idx))
	} else {
		out.Indices = gltf.Index(modeler.WriteIndices(b.doc, p.Indices))
	}
	if p.Material != scene.None {
		out.Material = gltf.Index(uint32(p.Material))
	}
	for _, t := range p.Targets {
		target := gltf.Attribute{"POSITION": modeler.WritePosition(b.doc, vec3s(t.Positions))}
		if p.Kind.HasNormal() {
			target["NORMAL"] = modeler.WriteNormal(b.doc, vec3s(t.Normals))
		}
		out.Targets = append(out.Targets, target)
	}
	return out
}

// skinAttributes writes JOINTS_0/WEIGHTS_0 and, when any vertex uses more
// than four influences, JOINTS_1/WEIGHTS_1. Vertices without weight bind
// fully to their first joint.
func (b *builder) skinAttributes(attrs gltf.Attribute, verts []mesh.Vertex) {
	n := len(verts)
	joints := [2][][4]uint16{make([][4]uint16, n), make([][4]uint16, n)}
	weights := [2][][4]float32{make([][4]float32, n), make([][4]float32, n)}
	wide := false
	for i, v := range verts {
		var sum float32
		for k := 0; k < mesh.MaxInfluences; k++ {
			sum += v.Weights[k]
		}
		for k := 0; k < mesh.MaxInfluences; k++ {
			set, slot := k/4, k%4
			joints[set][i][slot] = v.Joints[k]
			if sum > 0 {
				weights[set][i][slot] = v.Weights[k] / sum
			}
			if set == 1 && v.Weights[k] > 0 {
				wide = true
			}
		}
		if sum == 0 {
			weights[0][i][0] = 1
		}
	}
	sets := 1
	if wide {
		sets = 2
	}
	for s := 0; s < sets; s++ {
		attrs[fmt.Sprintf("JOINTS_%d", s)] = modeler.WriteJoints(b.doc, joints[s])
		attrs[fmt.Sprintf("WEIGHTS_%d", s)] = modeler.WriteWeights(b.doc, weights[s])
	}
}

func (b *builder) skin(s *scene.Skin) *gltf.Skin {
	out := &gltf.Skin{Name: s.Name}
	for _, j := range s.Joints {
		out.Joints = append(out.Joints, uint32(j))
	}
	if s.Skeleton != scene.None {
		out.Skeleton = gltf.Index(uint32(s.Skeleton))
	}
	if len(s.InverseBinds) > 0 {
		mats := make([][4][4]float32, len(s.InverseBinds))
		for i, m := range s.InverseBinds {
			for c := 0; c < 4; c++ {
				mats[i][c] = [4]float32(m.Col(c))
			}
		}
		out.InverseBindMatrices = gltf.Index(modeler.WriteAccessor(b.doc, gltf.TargetNone, mats))
	}
	return out
}

func (b *builder) animation(a *scene.Animation, nodes int) (*gltf.Animation, error) {
	out := &gltf.Animation{Name: a.Name}
	for _, ch := range a.Channels {
		if ch.Node < 0 || ch.Node >= nodes {
			return nil, fmt.Errorf("gltfexport: animation %s: node %d out of range", a.Name, ch.Node)
		}
		if len(ch.Keys) == 0 {
			continue
		}
		times := make([]float32, len(ch.Keys))
		tr := make([][3]float32, len(ch.Keys))
		rot := make([][4]float32, len(ch.Keys))
		scl := make([][3]float32, len(ch.Keys))
		for i, k := range ch.Keys {
			times[i] = k.Time
			tr[i] = k.Transform.Translation
			rot[i] = rotation(k.Transform)
			scl[i] = k.Transform.Scale
		}
		input := modeler.WriteAccessor(b.doc, gltf.TargetNone, times)
		acc := b.doc.Accessors[input]
		acc.Min = []float32{times[0]}
		acc.Max = []float32{times[len(times)-1]}

		outputs := []struct {
			path gltf.TRSProperty
			data any
		}{
			{gltf.TRSTranslation, tr},
			{gltf.TRSRotation, rot},
			{gltf.TRSScale, scl},
		}
		for _, o := range outputs {
			out.Samplers = append(out.Samplers, &gltf.AnimationSampler{
				Input:         gltf.Index(input),
				Output:        gltf.Index(modeler.WriteAccessor(b.doc, gltf.TargetNone, o.data)),
				Interpolation: gltf.InterpolationLinear,
			})
			out.Channels = append(out.Channels, &gltf.Channel{
				Sampler: gltf.Index(uint32(len(out.Samplers) - 1)),
				Target:  gltf.ChannelTarget{Node: gltf.Index(uint32(ch.Node)), Path: o.path},
			})
		}
	}
	return out, nil
}

func vec3s(v []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(v))
	for i := range v {
		out[i] = v[i]
	}
	return out
}

func unorm(f float32) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	}
	return uint8(f*255 + 0.5)
}
