package gltfexport

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"scene-exporter/internal/material"
)

const (
	extSpecular = "KHR_materials_specular"
	extIOR      = "KHR_materials_ior"
	extVolume   = "KHR_materials_volume"
	extWebP     = "EXT_texture_webp"
)

func (b *builder) material(m *material.Material) (*gltf.Material, error) {
	base := m.BaseColorFactor
	out := &gltf.Material{
		Name:        m.Name,
		DoubleSided: m.DoubleSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{base[0], base[1], base[2], base[3]},
			MetallicFactor:  gltf.Float(m.MetallicFactor),
			RoughnessFactor: gltf.Float(m.RoughnessFactor),
		},
		EmissiveFactor: [3]float32{m.EmissiveFactor[0], m.EmissiveFactor[1], m.EmissiveFactor[2]},
		Extras:         extras(m.Extras),
	}
	switch m.AlphaMode {
	case material.AlphaMask:
		out.AlphaMode = gltf.AlphaMask
		out.AlphaCutoff = gltf.Float(m.AlphaCutoff)
	case material.AlphaBlend:
		out.AlphaMode = gltf.AlphaBlend
	default:
		out.AlphaMode = gltf.AlphaOpaque
	}

	tex := func(ch material.Channel) (uint32, bool, error) {
		ref, ok := m.Channels[ch]
		if !ok {
			return 0, false, nil
		}
		i, err := b.texture(ref)
		if err != nil {
			return 0, false, fmt.Errorf("gltfexport: material %s %s: %w", m.Name, ch, err)
		}
		return i, true, nil
	}

	if i, ok, err := tex(material.ChannelBaseColor); err != nil {
		return nil, err
	} else if ok {
		out.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: i}
	}
	if i, ok, err := tex(material.ChannelMetallicRoughness); err != nil {
		return nil, err
	} else if ok {
		out.PBRMetallicRoughness.MetallicRoughnessTexture = &gltf.TextureInfo{Index: i}
	}
	if i, ok, err := tex(material.ChannelNormal); err != nil {
		return nil, err
	} else if ok {
		out.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(i), Scale: gltf.Float(m.NormalScale)}
	}
	if i, ok, err := tex(material.ChannelEmissive); err != nil {
		return nil, err
	} else if ok {
		out.EmissiveTexture = &gltf.TextureInfo{Index: i}
	}
	if i, ok, err := tex(material.ChannelOcclusion); err != nil {
		return nil, err
	} else if ok {
		out.OcclusionTexture = &gltf.OcclusionTexture{Index: gltf.Index(i)}
	}

	ext := gltf.Extensions{}
	spec := map[string]any{"specularFactor": m.SpecularFactor}
	if i, ok, err := tex(material.ChannelSpecularFactor); err != nil {
		return nil, err
	} else if ok {
		spec["specularTexture"] = map[string]any{"index": i}
	}
	if i, ok, err := tex(material.ChannelSpecularColor); err != nil {
		return nil, err
	} else if ok {
		spec["specularColorTexture"] = map[string]any{"index": i}
	}
	if len(spec) > 1 || m.SpecularFactor != 1 {
		ext[extSpecular] = spec
	}
	if i, ok, err := tex(material.ChannelThickness); err != nil {
		return nil, err
	} else if ok {
		ext[extVolume] = map[string]any{
			"thicknessFactor":  m.ThicknessFactor,
			"thicknessTexture": map[string]any{"index": i},
		}
	}
	if m.IOR != 1.5 && m.IOR > 0 {
		ext[extIOR] = map[string]any{"ior": m.IOR}
	}
	if len(ext) > 0 {
		out.Extensions = ext
		for _, name := range []string{extSpecular, extVolume, extIOR} {
			if _, ok := ext[name]; ok {
				b.use(name)
			}
		}
	}
	return out, nil
}

// texture returns the glTF texture index for ref, adding the image once.
func (b *builder) texture(ref material.TextureRef) (uint32, error) {
	if i, ok := b.textures[ref.Ref]; ok {
		return i, nil
	}
	if b.blobs == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingTexture, ref.Ref)
	}
	data, ok := b.blobs.Blob(ref.Ref)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingTexture, ref.Ref)
	}
	mime := mimeType(ref.Ref)

	var img uint32
	if b.opts.Format == FormatGLB {
		var err error
		img, err = modeler.WriteImage(b.doc, path.Base(ref.Ref), mime, bytes.NewReader(data))
		if err != nil {
			return 0, fmt.Errorf("gltfexport: image %s: %w", ref.Ref, err)
		}
	} else {
		img = uint32(len(b.doc.Images))
		b.doc.Images = append(b.doc.Images, &gltf.Image{Name: path.Base(ref.Ref), URI: ref.Ref, MimeType: mime})
		b.files[ref.Ref] = data
	}

	t := &gltf.Texture{Name: ref.Name}
	if mime == "image/webp" {
		t.Extensions = gltf.Extensions{extWebP: map[string]any{"source": img}}
		b.use(extWebP)
		b.require(extWebP)
	} else {
		t.Source = gltf.Index(img)
	}
	i := uint32(len(b.doc.Textures))
	b.doc.Textures = append(b.doc.Textures, t)
	b.textures[ref.Ref] = i
	return i, nil
}

func (b *builder) use(ext string) {
	for _, e := range b.doc.ExtensionsUsed {
		if e == ext {
			return
		}
	}
	b.doc.ExtensionsUsed = append(b.doc.ExtensionsUsed, ext)
}

func (b *builder) require(ext string) {
	for _, e := range b.doc.ExtensionsRequired {
		if e == ext {
			return
		}
	}
	b.doc.ExtensionsRequired = append(b.doc.ExtensionsRequired, ext)
}

func mimeType(ref string) string {
	if strings.EqualFold(path.Ext(ref), ".webp") {
		return "image/webp"
	}
	return "image/png"
}
