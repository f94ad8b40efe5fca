package mtrl

import (
	"fmt"
	"hash/fnv"
	"math"
	"path"
	"sort"
	"strings"
)

// TextureSlot is a resolved texture binding.
type TextureSlot struct {
	Usage TextureUsage
	Path  string
}

// MaterialSet is the semantic view of a material used by the builders.
type MaterialSet struct {
	Path          string
	ShaderPackage string
	Textures      []TextureSlot
	Keys          map[uint32]uint32
	Constants     map[uint32][]float32
	ColorTable    *ColorTableSet
	Flags         uint32

	byUsage map[TextureUsage]string
}

// NewMaterialSet resolves a parsed material. overrides, when non-nil, replaces
// texture paths by texture slot index (empty entries keep the file's path).
func NewMaterialSet(mtrlPath string, f *File, overrides []string) (*MaterialSet, error) {
	shpk, err := f.ShaderPackage()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mtrlPath, err)
	}
	paths, err := f.TexturePaths()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mtrlPath, err)
	}

	m := &MaterialSet{
		Path:          mtrlPath,
		ShaderPackage: shpk,
		Keys:          make(map[uint32]uint32, len(f.ShaderKeys)),
		Constants:     make(map[uint32][]float32, len(f.Constants)),
		ColorTable:    f.ColorTable,
		Flags:         f.ShaderFlags,
		byUsage:       make(map[TextureUsage]string, len(f.Samplers)),
	}
	for _, k := range f.ShaderKeys {
		m.Keys[k.Category] = k.Value
	}
	for _, c := range f.Constants {
		v, err := f.ConstantValues(c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", mtrlPath, err)
		}
		m.Constants[c.ID] = v
	}
	for _, s := range f.Samplers {
		if s.TextureIndex == 0xFF {
			continue
		}
		if int(s.TextureIndex) >= len(paths) {
			return nil, fmt.Errorf("%w: %s: sampler %#08x texture index %d of %d", ErrMalformed, mtrlPath, s.SamplerID, s.TextureIndex, len(paths))
		}
		usage := TextureUsage(s.SamplerID)
		if _, dup := m.byUsage[usage]; dup {
			continue
		}
		p := paths[s.TextureIndex]
		if int(s.TextureIndex) < len(overrides) && overrides[s.TextureIndex] != "" {
			p = overrides[s.TextureIndex]
		}
		m.byUsage[usage] = p
		m.Textures = append(m.Textures, TextureSlot{Usage: usage, Path: p})
	}
	return m, nil
}

// ShaderPackageStem is the shader package name without its extension.
func (m *MaterialSet) ShaderPackageStem() string {
	return strings.TrimSuffix(m.ShaderPackage, path.Ext(m.ShaderPackage))
}

// Texture returns the path bound to usage.
func (m *MaterialSet) Texture(usage TextureUsage) (string, bool) {
	p, ok := m.byUsage[usage]
	return p, ok
}

// RequireTexture returns the path bound to usage or ErrMissingTexture.
func (m *MaterialSet) RequireTexture(usage TextureUsage) (string, error) {
	p, ok := m.byUsage[usage]
	if !ok {
		return "", fmt.Errorf("%w: %s needs %s (%s)", ErrMissingTexture, m.Path, usage, m.ShaderPackage)
	}
	return p, nil
}

// ShaderKey returns the value selected for a key category.
func (m *MaterialSet) ShaderKey(category uint32) (uint32, bool) {
	v, ok := m.Keys[category]
	return v, ok
}

// ShaderKeyOr returns the key value or def when absent.
func (m *MaterialSet) ShaderKeyOr(category, def uint32) uint32 {
	if v, ok := m.Keys[category]; ok {
		return v
	}
	return def
}

// Constant returns the raw values of a constant.
func (m *MaterialSet) Constant(id uint32) ([]float32, bool) {
	v, ok := m.Constants[id]
	return v, ok
}

// ConstantOr returns the first value of a constant or def.
func (m *MaterialSet) ConstantOr(id uint32, def float32) float32 {
	if v, ok := m.Constants[id]; ok && len(v) > 0 {
		return v[0]
	}
	return def
}

// Vec3Or returns the first three values of a constant or def.
func (m *MaterialSet) Vec3Or(id uint32, def [3]float32) [3]float32 {
	if v, ok := m.Constants[id]; ok && len(v) >= 3 {
		return [3]float32{v[0], v[1], v[2]}
	}
	return def
}

// Vec4Or returns the first four values of a constant or def.
func (m *MaterialSet) Vec4Or(id uint32, def [4]float32) [4]float32 {
	if v, ok := m.Constants[id]; ok && len(v) >= 4 {
		return [4]float32{v[0], v[1], v[2], v[3]}
	}
	return def
}

// RequireConstant returns a constant with at least n values or ErrMissingConstant.
func (m *MaterialSet) RequireConstant(id uint32, n int) ([]float32, error) {
	v, ok := m.Constants[id]
	if !ok || len(v) < n {
		return nil, fmt.Errorf("%w: %s needs %#08x with %d values", ErrMissingConstant, m.Path, id, n)
	}
	return v, nil
}

// RequireColorTable returns the color table or ErrMissingColorTable.
func (m *MaterialSet) RequireColorTable() (*ColorTableSet, error) {
	if m.ColorTable == nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrMissingColorTable, m.Path, m.ShaderPackage)
	}
	return m.ColorTable, nil
}

// RenderBackfaces reports whether the material is double sided.
func (m *MaterialSet) RenderBackfaces() bool { return m.Flags&FlagHideBackfaces == 0 }

// IsTransparent reports whether translucency is enabled.
func (m *MaterialSet) IsTransparent() bool { return m.Flags&FlagEnableTranslucency != 0 }

// Hash is a stable digest of everything that affects baked output. salt mixes
// in caller state such as customize parameters.
func (m *MaterialSet) Hash(salt ...string) string {
	h := fnv.New32a()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(m.Path)
	write(m.ShaderPackage)

	ids := make([]uint32, 0, len(m.Constants))
	for id := range m.Constants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		write(fmt.Sprintf("c%08X", id))
		for _, v := range m.Constants[id] {
			write(fmt.Sprintf("%08X", math.Float32bits(v)))
		}
	}

	slots := append([]TextureSlot(nil), m.Textures...)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Usage < slots[j].Usage })
	for _, s := range slots {
		write(fmt.Sprintf("t%08X", uint32(s.Usage)))
		write(s.Path)
	}

	cats := make([]uint32, 0, len(m.Keys))
	for c := range m.Keys {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, c := range cats {
		write(fmt.Sprintf("k%08X=%08X", c, m.Keys[c]))
	}
	for _, s := range salt {
		write(s)
	}
	return fmt.Sprintf("%08X", h.Sum32())
}

// Name is the material name used in exported scenes.
func (m *MaterialSet) Name(salt ...string) string {
	return fmt.Sprintf("%s_%s_%s", stem(m.Path), m.ShaderPackageStem(), m.Hash(salt...))
}

// ComputedTextureName names a baked texture so identical inputs reuse it.
func (m *MaterialSet) ComputedTextureName(kind string, salt ...string) string {
	return fmt.Sprintf("%s_%s_%s_%s", stem(m.Path), m.ShaderPackageStem(), kind, m.Hash(salt...))
}

// Extras summarises the material for exporter metadata.
func (m *MaterialSet) Extras() map[string]any {
	out := map[string]any{
		"ShaderPackage":   m.ShaderPackage,
		"Material":        m.Path,
		"Hash":            m.Hash(),
		"RenderBackfaces": m.RenderBackfaces(),
		"IsTransparent":   m.IsTransparent(),
	}
	for _, s := range m.Textures {
		out[s.Usage.String()] = s.Path
	}
	for id, v := range m.Constants {
		out[fmt.Sprintf("0x%08X", id)] = v
	}
	for c, v := range m.Keys {
		out[fmt.Sprintf("key_0x%08X", c)] = fmt.Sprintf("0x%08X", v)
	}
	return out
}

func stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
