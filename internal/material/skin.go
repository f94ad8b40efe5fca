package material

import (
	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mtrl"
)

// buildSkin blends the skin tone over the diffuse by the normal's blue
// channel. Hrothgar skin mixes in the hair colour. Face skin applies lip
// colour when lipstick is enabled and always scales roughness by the lip
// roughness constant.
func buildSkin(b *build) error {
	normal, err := b.load(mtrl.SamplerNormal)
	if err != nil {
		return err
	}
	mask, err := b.load(mtrl.SamplerMask)
	if err != nil {
		return err
	}
	diffuse, err := b.load(mtrl.SamplerDiffuse)
	if err != nil {
		return err
	}

	skinType := b.set.ShaderKeyOr(mtrl.CategorySkinType, mtrl.SkinFace)
	cp := b.params.customize()
	data := b.params.Data
	diffuseColor := mgl32.Vec3(b.set.Vec3Or(mtrl.ConstDiffuseColor, [3]float32{1, 1, 1}))
	lipRoughness := b.set.ConstantOr(mtrl.ConstLipRoughnessScale, 0.7)
	threshold := b.set.ConstantOr(mtrl.ConstAlphaThreshold, 0)
	transparent := b.set.IsTransparent()

	w, h := normal.Rect.Dx(), normal.Rect.Dy()
	mask = fit(mask, w, h)
	diffuse = fitColor(diffuse, w, h)

	c := newCanvas(w, h)
	base := c.add(ChannelBaseColor, "diffuse")
	norm := c.add(ChannelNormal, "normal")
	mr := c.add(ChannelMetallicRoughness, "mr")
	sss := c.add(ChannelThickness, "sss")

	err = b.bake(c, func(x, y int) {
		n := at(normal, x, y)
		m := at(mask, x, y)
		d := at(diffuse, x, y)

		col := mul3(d.Vec3(), lerp3(diffuseColor, cp.SkinColor, n[2]))
		alpha := d[3]
		roughness := m[1]

		switch skinType {
		case mtrl.SkinHrothgar:
			fur := cp.MainColor
			if data.Highlights {
				fur = lerp3(fur, cp.MeshColor, m[3])
			}
			col = lerp3(col, fur.Mul(0.4), clamp01(n[3]-n[2]))
			alpha = 1
		case mtrl.SkinFace:
			if data.LipStick {
				col = lerp3(col, cp.LipColor.Vec3(), n[3]*cp.LipColor[3])
			}
			roughness *= lipRoughness
		}

		if threshold > 0 {
			alpha *= 1 / threshold
			if !transparent {
				if alpha < 1 {
					alpha = 0
				} else {
					alpha = 1
				}
			}
		}

		put(base, x, y, col.Vec4(alpha))
		put(norm, x, y, mgl32.Vec4{n[0], n[1], 1, 1})
		put(mr, x, y, mgl32.Vec4{1, roughness, 0, 1})
		put(sss, x, y, mgl32.Vec4{m[2], m[2], m[2], 1})
	})
	if err != nil {
		return err
	}

	switch {
	case threshold > 0 && transparent:
		b.m.AlphaMode = AlphaBlend
	case threshold > 0:
		b.m.AlphaMode = AlphaMask
		b.m.AlphaCutoff = 0.5
	}
	b.m.ThicknessFactor = 1
	b.m.Extras["SkinType"] = skinTypeName(skinType)
	b.m.Extras["SkinColor"] = cp.SkinColor
	if skinType == mtrl.SkinFace && data.LipStick {
		b.m.Extras["LipColor"] = cp.LipColor
	}
	return nil
}

func skinTypeName(v uint32) string {
	switch v {
	case mtrl.SkinBody:
		return "Body"
	case mtrl.SkinHrothgar:
		return "Hrothgar"
	}
	return "Face"
}

// buildHair lerps between the main hair colour and the highlight (hair) or
// tattoo (face) colour by the normal's blue channel.
func buildHair(b *build) error {
	normal, err := b.load(mtrl.SamplerNormal)
	if err != nil {
		return err
	}
	mask, err := b.load(mtrl.SamplerMask)
	if err != nil {
		return err
	}

	hairType := b.set.ShaderKeyOr(mtrl.CategoryHairType, mtrl.HairHair)
	cp := b.params.customize()
	bonus := cp.MainColor
	switch {
	case hairType == mtrl.HairFace:
		bonus = cp.OptionColor
	case b.params.Data.Highlights:
		bonus = cp.MeshColor
	}

	w, h := normal.Rect.Dx(), normal.Rect.Dy()
	mask = fit(mask, w, h)

	c := newCanvas(w, h)
	base := c.add(ChannelBaseColor, "diffuse")
	norm := c.add(ChannelNormal, "normal")
	mr := c.add(ChannelMetallicRoughness, "mr")

	err = b.bake(c, func(x, y int) {
		n := at(normal, x, y)
		m := at(mask, x, y)
		put(base, x, y, lerp3(cp.MainColor, bonus, n[2]).Vec4(n[3]))
		put(norm, x, y, mgl32.Vec4{n[0], n[1], 1, 1})
		put(mr, x, y, mgl32.Vec4{1, m[1], 0, 1})
	})
	if err != nil {
		return err
	}

	b.alphaThreshold()
	b.m.IOR = b.set.ConstantOr(mtrl.ConstGlassIOR, 1.5)
	b.m.Extras["HairType"] = hairTypeName(hairType)
	b.m.Extras["MainColor"] = cp.MainColor
	return nil
}

func hairTypeName(v uint32) string {
	if v == mtrl.HairFace {
		return "Face"
	}
	return "Hair"
}
