package material

import (
	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/mtrl"
)

// buildLightshaft renders light shafts as a see-through surface: the base
// colour is white with zero alpha and g_Color times both samplers is baked
// into emission. Without both samplers only the factors are set.
func buildLightshaft(b *build) error {
	b.m.BaseColorFactor = mgl32.Vec4{1, 1, 1, 0}
	b.m.AlphaMode = AlphaBlend

	tex0, err := b.loadOptional(mtrl.Sampler0)
	if err != nil {
		return err
	}
	tex1, err := b.loadOptional(mtrl.Sampler1)
	if err != nil {
		return err
	}
	if tex0 == nil || tex1 == nil {
		b.deps.logger().Debug("lightshaft without samplers", "material", b.set.Path)
		return nil
	}

	w := max(tex0.Rect.Dx(), tex1.Rect.Dx())
	h := max(tex0.Rect.Dy(), tex1.Rect.Dy())
	tex0 = fitColor(tex0, w, h)
	tex1 = fitColor(tex1, w, h)
	color := mgl32.Vec3(b.set.Vec3Or(mtrl.ConstColor, [3]float32{1, 1, 1})).Vec4(1)

	c := newCanvas(w, h)
	emis := c.add(ChannelEmissive, "lightshaft")
	err = b.bake(c, func(x, y int) {
		a, s := at(tex0, x, y), at(tex1, x, y)
		put(emis, x, y, mgl32.Vec4{
			color[0] * a[0] * s[0],
			color[1] * a[1] * s[1],
			color[2] * a[2] * s[2],
			color[3] * a[3] * s[3],
		})
	})
	if err != nil {
		return err
	}
	b.m.EmissiveFactor = mgl32.Vec3{1, 1, 1}
	return nil
}
