package material

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mtrl"
	"scene-exporter/internal/texture"
)

// buildIris lerps the eye white towards the iris colour by the mask's blue
// channel. The mask's red channel is the catchlight emission and its green
// channel scales the reflection sampled from the shared sphere array.
func buildIris(b *build) error {
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

	cp := b.params.customize()
	white := mgl32.Vec3(b.set.Vec3Or(mtrl.ConstWhiteEyeColor, [3]float32{1, 1, 1}))
	iris := cp.LeftColor.Vec3()

	w, h := normal.Rect.Dx(), normal.Rect.Dy()
	mask = fit(mask, w, h)
	diffuse = fitColor(diffuse, w, h)

	var sphere *image.NRGBA
	if b.deps.Detail != nil {
		id := int(b.set.ConstantOr(mtrl.ConstSphereMapIndex, 0))
		sphere, err = b.deps.Detail.Layer(b.ctx, texture.ArraySphere, id, w, h)
		if err != nil {
			if b.ctx.Err() != nil {
				return b.ctx.Err()
			}
			b.deps.logger().Warn("sphere map unavailable", "material", b.set.Path, "index", id, "err", err)
			sphere = nil
		}
	}

	c := newCanvas(w, h)
	base := c.add(ChannelBaseColor, "diffuse")
	norm := c.add(ChannelNormal, "normal")
	emis := c.add(ChannelEmissive, "emissive")
	spec := c.add(ChannelSpecularFactor, "specular")

	err = b.bake(c, func(x, y int) {
		d := at(diffuse, x, y).Vec3()
		m := at(mask, x, y)
		n := at(normal, x, y)

		put(base, x, y, lerp3(mul3(d, white), mul3(d, iris), m[2]).Vec4(1))
		put(norm, x, y, mgl32.Vec4{n[0], n[1], 1, 1})
		put(emis, x, y, mgl32.Vec4{m[0], m[0], m[0], 1})

		s := m[1]
		if sphere != nil {
			s *= at(sphere, x, y)[0]
		}
		put(spec, x, y, mgl32.Vec4{s, s, s, 1})
	})
	if err != nil {
		return err
	}

	b.m.EmissiveFactor = mgl32.Vec3{1, 1, 1}
	b.m.Extras["leftIrisColor"] = cp.LeftColor
	b.m.Extras["rightIrisColor"] = cp.RightColor
	return nil
}
