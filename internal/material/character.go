package material

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mtrl"
)

// buildCharacter emulates the colour-table driven gear shaders. Dawntrail
// tables pick a row pair per pixel from the index texture. Legacy 16-row
// tables are addressed by the normal's alpha instead, interpolating between
// the neighbouring rows.
func buildCharacter(b *build) error {
	table, err := b.set.RequireColorTable()
	if err != nil {
		return err
	}
	normal, err := b.load(mtrl.SamplerNormal)
	if err != nil {
		return err
	}
	var mask, index *image.NRGBA
	if !table.Legacy {
		if mask, err = b.load(mtrl.SamplerMask); err != nil {
			return err
		}
		if index, err = b.load(mtrl.SamplerIndex); err != nil {
			return err
		}
	}
	mode := b.set.ShaderKeyOr(mtrl.CategoryTextureType, mtrl.TextureDefault)
	var diffuse *image.NRGBA
	if mode == mtrl.TextureCompat {
		if diffuse, err = b.load(mtrl.SamplerDiffuse); err != nil {
			return err
		}
	}

	w, h := normal.Rect.Dx(), normal.Rect.Dy()
	mask = fit(mask, w, h)
	diffuse = fit(diffuse, w, h)

	c := newCanvas(w, h)
	base := c.add(ChannelBaseColor, "diffuse")
	norm := c.add(ChannelNormal, "normal")
	mr := c.add(ChannelMetallicRoughness, "mr")
	spec := c.add(ChannelSpecularColor, "specular")
	emis := c.add(ChannelEmissive, "emissive")

	err = b.bake(c, func(x, y int) {
		n := at(normal, x, y)
		var row mtrl.ColorTableRow
		if table.Legacy {
			row = table.Sample(n[3])
		} else {
			ip := nearest(index, x, y, w, h)
			row = table.BlendedPair(ip[0], ip[1])
		}

		col := mgl32.Vec3(row.Diffuse)
		alpha := n[2]
		if diffuse != nil {
			d := at(diffuse, x, y)
			col = mul3(col, d.Vec3())
			alpha *= d[3]
		}
		put(base, x, y, col.Vec4(alpha))
		put(norm, x, y, mgl32.Vec4{n[0], n[1], 1, 1})
		put(mr, x, y, mgl32.Vec4{1, row.Roughness, row.Metalness, 1})

		if table.Legacy {
			put(spec, x, y, mgl32.Vec3(row.Specular).Vec4(row.SpecularStrength))
		} else {
			m := at(mask, x, y)
			put(spec, x, y, mgl32.Vec3(row.Specular).Mul(m[0]).Vec4(1))
		}
		put(emis, x, y, mgl32.Vec3(row.Emissive).Vec4(1))
	})
	if err != nil {
		return err
	}

	b.m.IOR = b.set.ConstantOr(mtrl.ConstGlassIOR, 1.5)
	b.m.MetallicFactor = 1
	b.m.EmissiveFactor = mgl32.Vec3{1, 1, 1}
	if b.alphaThreshold() == 0 && b.set.IsTransparent() {
		b.m.AlphaMode = AlphaBlend
	}
	b.m.Extras["TextureType"] = textureTypeName(mode)
	b.m.Extras["LegacyTable"] = table.Legacy
	return nil
}

// buildTattoo paints the option colour wherever the normal's blue channel
// is set; alpha comes from the normal's alpha.
func buildTattoo(b *build) error {
	normal, err := b.load(mtrl.SamplerNormal)
	if err != nil {
		return err
	}
	option := b.params.customize().OptionColor
	w, h := normal.Rect.Dx(), normal.Rect.Dy()
	c := newCanvas(w, h)
	base := c.add(ChannelBaseColor, "diffuse")
	norm := c.add(ChannelNormal, "normal")

	err = b.bake(c, func(x, y int) {
		n := at(normal, x, y)
		col := mgl32.Vec3{}
		if n[2] > 0 {
			col = option
		}
		put(base, x, y, col.Vec4(n[3]))
		put(norm, x, y, mgl32.Vec4{n[0], n[1], 1, 1})
	})
	if err != nil {
		return err
	}
	b.m.AlphaMode = AlphaBlend
	b.m.Extras["OptionColor"] = option
	return nil
}

// buildOcclusion keeps the original textures and renders the surface as an
// invisible blended layer.
func buildOcclusion(b *build) error {
	if err := buildRaw(b); err != nil {
		return err
	}
	b.m.BaseColorFactor = mgl32.Vec4{1, 1, 1, 0}
	b.m.AlphaMode = AlphaBlend
	b.m.AlphaCutoff = 0.5
	return nil
}

func textureTypeName(v uint32) string {
	switch v {
	case mtrl.TextureCompat:
		return "Compatibility"
	case mtrl.TextureSimple:
		return "Simple"
	}
	return "Default"
}
