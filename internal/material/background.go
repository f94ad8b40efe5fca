package material

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"scene-exporter/internal/assetstore"
	"scene-exporter/internal/mtrl"
	"scene-exporter/internal/texture"
)

// detailLayers is the number of layers in each shared detail array.
const detailLayers = 32

// buildBackground emulates the terrain and housing shaders: colour map 0
// tinted by g_DiffuseColor (or the stain for colour-change variants), with
// the tiled detail arrays multiplied into the colour and blended into the
// normal.
func buildBackground(b *build) error {
	color0, err := b.load(mtrl.SamplerColorMap0)
	if err != nil {
		return err
	}
	spec0, err := b.load(mtrl.SamplerSpecularMap0)
	if err != nil {
		return err
	}
	normal0, err := b.load(mtrl.SamplerNormalMap0)
	if err != nil {
		return err
	}

	diffuseColor := mgl32.Vec3(b.set.Vec3Or(mtrl.ConstDiffuseColor, [3]float32{1, 1, 1}))
	if b.set.ShaderPackageStem() == "bgcolorchange" && b.params.Stain != nil {
		diffuseColor = *b.params.Stain
		b.m.Extras["StainColor"] = diffuseColor
	}
	b.m.Extras["DiffuseColor"] = diffuseColor

	w, h := color0.Rect.Dx(), color0.Rect.Dy()
	spec0 = fit(spec0, w, h)
	normal0 = fit(normal0, w, h)

	detail, err := b.detail()
	if err != nil {
		return err
	}

	c := newCanvas(w, h)
	base := c.add(ChannelBaseColor, "diffuse")
	norm := c.add(ChannelNormal, "normal")
	mr := c.add(ChannelMetallicRoughness, "mr")

	err = b.bake(c, func(x, y int) {
		col := at(color0, x, y)
		s := at(spec0, x, y)
		n := at(normal0, x, y)

		rgb := mul3(col.Vec3(), diffuseColor)
		if detail != nil {
			rgb, n = detail.apply(x, y, w, h, rgb, n)
		}
		put(base, x, y, rgb.Vec4(col[3]))
		put(norm, x, y, mgl32.Vec4{n[0], n[1], 1, 1})
		put(mr, x, y, mgl32.Vec4{1, s[1], 0, 1})
	})
	if err != nil {
		return err
	}

	if b.set.ShaderKeyOr(mtrl.CategoryDiffuseAlpha, 0) == mtrl.DiffuseAlphaUse {
		b.m.AlphaMode = AlphaMask
		b.m.AlphaCutoff = b.set.ConstantOr(mtrl.ConstAlphaThreshold, 0.5)
	}
	b.m.VertexPaint = b.set.ShaderKeyOr(mtrl.CategoryBgVertexPaint, mtrl.BgVertexPaintOff) == mtrl.BgVertexPaintOn
	return nil
}

type detailSampler struct {
	diffuse, normal *image.NRGBA
	color           mgl32.Vec3
	normalScale     float32
	colorUV         mgl32.Vec4
	normalUV        mgl32.Vec4
}

// detail loads the detail layers named by g_DetailID. A material without the
// constant or a store without the arrays bakes without detail.
func (b *build) detail() (*detailSampler, error) {
	v, ok := b.set.Constant(mtrl.ConstDetailID)
	if !ok || len(v) == 0 || b.deps.Detail == nil {
		return nil, nil
	}
	id := int(v[0])
	if id < 0 || id >= detailLayers {
		return nil, fmt.Errorf("%w: %d", ErrDetailOutOfRange, id)
	}

	d := &detailSampler{
		color:       mgl32.Vec3(b.set.Vec3Or(mtrl.ConstDetailColor, [3]float32{1, 1, 1})),
		normalScale: b.set.ConstantOr(mtrl.ConstDetailNormalScale, 1),
		colorUV:     mgl32.Vec4(b.set.Vec4Or(mtrl.ConstDetailColorUvScale, [4]float32{4, 4, 4, 4})),
		normalUV:    mgl32.Vec4(b.set.Vec4Or(mtrl.ConstDetailNormalUvScale, [4]float32{4, 4, 4, 4})),
	}
	var err error
	if d.diffuse, err = b.deps.Detail.Layer(b.ctx, texture.ArrayDetailDiffuse, id, 0, 0); err == nil {
		d.normal, err = b.deps.Detail.Layer(b.ctx, texture.ArrayDetailNormal, id, 0, 0)
	}
	if errors.Is(err, assetstore.ErrNotFound) {
		b.deps.logger().Warn("detail arrays unavailable", "material", b.set.Path, "err", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.m.Extras["DetailID"] = id
	return d, nil
}

// apply tiles the detail layers over the canvas. A mid-grey detail texel
// leaves the colour unchanged.
func (d *detailSampler) apply(x, y, w, h int, rgb mgl32.Vec3, n mgl32.Vec4) (mgl32.Vec3, mgl32.Vec4) {
	u := (float32(x) + 0.5) / float32(w)
	v := (float32(y) + 0.5) / float32(h)

	dc := texture.Sample(d.diffuse, u*d.colorUV[0], v*d.colorUV[1])
	tint := mul3(mgl32.Vec3{dc[0], dc[1], dc[2]}, d.color).Mul(2)
	rgb = mul3(rgb, tint)
	rgb = mgl32.Vec3{clamp01(rgb[0]), clamp01(rgb[1]), clamp01(rgb[2])}

	dn := texture.Sample(d.normal, u*d.normalUV[0], v*d.normalUV[1])
	n[0] = clamp01(n[0] + (dn[0]-0.5)*d.normalScale)
	n[1] = clamp01(n[1] + (dn[1]-0.5)*d.normalScale)
	return rgb, n
}
