package scene

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/material"
	"scene-exporter/internal/mathutil"
	"scene-exporter/internal/mdl"
	"scene-exporter/internal/mesh"
	"scene-exporter/internal/pbd"
	"scene-exporter/internal/skeleton"
)

// Model is one placed model file with its built materials.
type Model struct {
	Path string
	File *mdl.File
	// Materials is indexed by the model's material index; nil entries leave
	// the mesh without a material.
	Materials []*material.Material
	LOD       int
	// Deform is the race deformer chain applied to skinned positions.
	Deform []*pbd.Deformer
}

// Character is an armature with the models skinned to it.
type Character struct {
	Name      string
	Transform mathutil.Transform
	Armature  *skeleton.Armature
	Models    []Model
	// AttachID registers the character's bones under an id for Timeline
	// tracks. Empty ids are not registered.
	AttachID string
	// Attached lists characters whose armature roots were grafted into this
	// armature. Their models bind to their own bones only.
	Attached []Character
}

// flatten returns ch followed by its attached characters, depth first.
func (ch Character) flatten() []Character {
	out := []Character{ch}
	for _, a := range ch.Attached {
		out = append(out, a.flatten()...)
	}
	return out
}

// Composer builds a Scene. It is not safe for concurrent use.
type Composer struct {
	scene Scene
	log   *slog.Logger

	materials map[string]int
	meshes    map[string][]int
	bind      map[int]mathutil.Transform
	attach    map[string]map[string]int
}

// NewComposer returns an empty composer. A nil logger uses slog.Default.
func NewComposer(logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		log:       logger,
		materials: make(map[string]int),
		meshes:    make(map[string][]int),
		bind:      make(map[int]mathutil.Transform),
		attach:    make(map[string]map[string]int),
	}
}

// Scene returns the composed scene.
func (c *Composer) Scene() *Scene { return &c.scene }

// AddMaterial adds m once per material name and returns its index.
func (c *Composer) AddMaterial(m *material.Material) int {
	if m == nil {
		return None
	}
	if i, ok := c.materials[m.Name]; ok {
		return i
	}
	i := len(c.scene.Materials)
	c.scene.Materials = append(c.scene.Materials, m)
	c.materials[m.Name] = i
	return i
}

// AddCharacter adds the character's armature, grafted skeletons included,
// and its models. Bones a model references but its armature lacks are
// created under that armature's root. It returns the character's root node.
func (c *Composer) AddCharacter(ch Character) (int, error) {
	parts := ch.flatten()
	for _, p := range parts {
		if p.Armature == nil || p.Armature.Root == nil {
			return None, fmt.Errorf("%w: %s", ErrNoArmature, p.Name)
		}
	}

	// Build every mesh before touching the scene so a failing model leaves
	// no nodes, meshes or materials behind.
	built := make([][]builtModel, len(parts))
	for i, p := range parts {
		for _, m := range p.Models {
			bm, err := c.buildModel(m, p.Armature)
			if err != nil {
				return None, fmt.Errorf("scene: %s: %w", m.Path, err)
			}
			built[i] = append(built[i], bm)
		}
	}
	for i := range built {
		for j := range built[i] {
			c.commit(&built[i][j])
		}
	}

	root := c.scene.AddNode(ch.Name, None, ch.Transform)
	var pose []Channel
	nodes := make(map[*skeleton.BoneNode]int)
	ch.Armature.Root.Walk(func(b *skeleton.BoneNode) {
		parent := root
		if p, ok := nodes[b.Parent]; ok && b.Parent != nil {
			parent = p
		}
		i := c.scene.AddNode(b.DisplayName(), parent, posedLocal(b))
		c.bind[i] = b.Local
		nodes[b] = i
		if len(b.Track) > 1 {
			pose = append(pose, Channel{Node: i, Keys: trackKeys(b)})
		}
	})
	if len(pose) > 0 {
		c.scene.Animations = append(c.scene.Animations, &Animation{Name: ch.Name + "_pose", Channels: pose})
	}

	for i, p := range parts {
		armRoot, ok := nodes[p.Armature.Root]
		if !ok {
			c.log.Warn("attached armature not grafted", "character", ch.Name, "attached", p.Name)
			continue
		}
		byName := boneNames(p.Armature, nodes)
		if p.AttachID != "" {
			c.attach[p.AttachID] = byName
		}
		for _, bm := range built[i] {
			c.placeModel(bm, root, armRoot, byName)
		}
	}
	return root, nil
}

// boneNames maps lowercase bone names to nodes for one armature. Declared
// bones win over bones grafted below them that share a name.
func boneNames(arm *skeleton.Armature, nodes map[*skeleton.BoneNode]int) map[string]int {
	byName := make(map[string]int)
	for _, b := range arm.Bones {
		if i, ok := nodes[b]; ok {
			byName[strings.ToLower(b.Name)] = i
		}
	}
	arm.Root.Walk(func(b *skeleton.BoneNode) {
		key := strings.ToLower(b.DisplayName())
		if _, ok := byName[key]; !ok {
			byName[key] = nodes[b]
		}
	})
	return byName
}

// AddStatic places an unskinned model under parent.
func (c *Composer) AddStatic(name string, parent int, local mathutil.Transform, m Model) (int, error) {
	bm, err := c.buildModel(m, nil)
	if err != nil {
		return None, fmt.Errorf("scene: %s: %w", m.Path, err)
	}
	c.commit(&bm)
	node := c.scene.AddNode(name, parent, local)
	c.placeModel(bm, node, None, nil)
	return node, nil
}

type builtModel struct {
	model  Model
	names  []string
	key    string
	meshes []int
	// staged holds meshes built but not yet added to the scene.
	staged []stagedMesh
}

type stagedMesh struct {
	mesh *Mesh
	mat  *material.Material
}

// buildModel builds the meshes of m without adding them to the scene, or
// reuses meshes already committed. Meshes are shared by every placement
// with the same model path, materials and deform chain.
func (c *Composer) buildModel(m Model, arm *skeleton.Armature) (builtModel, error) {
	bm := builtModel{model: m}
	if m.File == nil {
		return bm, ErrNoModel
	}
	if arm != nil {
		names, err := m.File.BoneNames()
		if err != nil {
			return bm, err
		}
		bm.names = names
	}

	key := dedupeKey(m, arm != nil)
	bm.key = key
	if meshes, ok := c.meshes[key]; ok {
		bm.meshes = meshes
		return bm, nil
	}

	opts := mesh.BuildOptions{LOD: m.LOD}
	if arm != nil {
		joint := make(map[string]int, len(bm.names))
		for i, n := range bm.names {
			joint[n] = i
		}
		opts.Bones = func(name string) (int, bool) {
			i, ok := joint[name]
			return i, ok
		}
		opts.Deform = m.Deform
		opts.DeformParent = parentOf(arm)
	}

	start, count, err := m.File.LodMeshes(m.LOD)
	if err != nil {
		return bm, err
	}
	stem := modelStem(m.Path)
	for mi := start; mi < start+count; mi++ {
		dm, err := mesh.Build(m.File, mi, opts)
		if err != nil {
			return bm, err
		}
		sm, err := buildMesh(fmt.Sprintf("%s_%d", stem, mi), m.File, dm, m.LOD, None)
		if err != nil {
			return bm, err
		}
		if len(sm.Primitives) == 0 {
			continue
		}
		var mat *material.Material
		if dm.MaterialIndex < len(m.Materials) {
			mat = m.Materials[dm.MaterialIndex]
		}
		bm.staged = append(bm.staged, stagedMesh{sm, mat})
	}
	return bm, nil
}

// commit adds the staged meshes of bm and their materials to the scene. A
// model whose key was committed meanwhile reuses those meshes.
func (c *Composer) commit(bm *builtModel) {
	if meshes, ok := c.meshes[bm.key]; ok {
		bm.meshes = meshes
		bm.staged = nil
		return
	}
	for _, p := range bm.staged {
		if idx := c.AddMaterial(p.mat); idx != None {
			for i := range p.mesh.Primitives {
				p.mesh.Primitives[i].Material = idx
			}
		}
		bm.meshes = append(bm.meshes, len(c.scene.Meshes))
		c.scene.Meshes = append(c.scene.Meshes, p.mesh)
	}
	bm.staged = nil
	c.meshes[bm.key] = bm.meshes
}

// placeModel adds mesh nodes under parent and, for skinned models, one skin
// whose joints follow the model's bone name order.
func (c *Composer) placeModel(bm builtModel, parent, armRoot int, byName map[string]int) {
	skin := None
	if byName != nil && len(bm.names) > 0 {
		joints := make([]int, len(bm.names))
		for i, n := range bm.names {
			j, ok := byName[strings.ToLower(n)]
			if !ok {
				j = c.scene.AddNode(n, armRoot, mathutil.Identity())
				c.bind[j] = mathutil.Identity()
				byName[strings.ToLower(n)] = j
				c.log.Debug("created missing bone", "model", bm.model.Path, "bone", n)
			}
			joints[i] = j
		}
		s := &Skin{Name: modelStem(bm.model.Path), Skeleton: armRoot, Joints: joints}
		for _, j := range joints {
			s.InverseBinds = append(s.InverseBinds, c.bindWorld(j, parent).Inv())
		}
		skin = len(c.scene.Skins)
		c.scene.Skins = append(c.scene.Skins, s)
	}

	for _, mi := range bm.meshes {
		sm := c.scene.Meshes[mi]
		n := c.scene.AddNode(sm.Name, parent, mathutil.Identity())
		c.scene.Nodes[n].Mesh = mi
		if sm.Skinned() {
			c.scene.Nodes[n].Skin = skin
		}
	}
}

// bindWorld is like WorldFrom but uses bind transforms for bones.
func (c *Composer) bindWorld(node, ancestor int) mgl32.Mat4 {
	m := mgl32.Ident4()
	for i := node; i != None && i != ancestor; i = c.scene.Nodes[i].Parent {
		local, ok := c.bind[i]
		if !ok {
			local = c.scene.Nodes[i].Local
		}
		m = local.Matrix().Mul4(m)
	}
	return m
}

func posedLocal(b *skeleton.BoneNode) mathutil.Transform {
	if len(b.Track) == 0 {
		return b.Local
	}
	return poseKey(b, b.Track[0].Transform)
}

func poseKey(b *skeleton.BoneNode, k mathutil.Transform) mathutil.Transform {
	switch b.TrackMode {
	case skeleton.PoseNone:
		return b.Local
	case skeleton.PoseLocalScaleOnly:
		t := b.Local
		t.Scale = k.Scale
		return t
	}
	return k
}

func trackKeys(b *skeleton.BoneNode) []Key {
	keys := make([]Key, len(b.Track))
	for i, k := range b.Track {
		keys[i] = Key{Time: k.Time, Transform: poseKey(b, k.Transform)}
	}
	return keys
}

func parentOf(arm *skeleton.Armature) pbd.ParentFunc {
	return func(bone string) (string, bool) {
		b := arm.FindByName(bone)
		if b == nil || b.Parent == nil {
			return "", false
		}
		return b.Parent.Name, true
	}
}

func dedupeKey(m Model, skinned bool) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(m.Path))
	fmt.Fprintf(&sb, "|lod%d|skin=%t", m.LOD, skinned)
	for _, mat := range m.Materials {
		sb.WriteByte('|')
		if mat != nil {
			sb.WriteString(mat.Name)
		}
	}
	for _, d := range m.Deform {
		if d != nil {
			fmt.Fprintf(&sb, "|pbd%d", d.Offset)
		}
	}
	return sb.String()
}

func modelStem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
