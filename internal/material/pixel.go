package material

import (
	"context"
	"fmt"
	"image"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"scene-exporter/internal/mtrl"
	"scene-exporter/internal/texture"
)

// forPixels calls fn for every pixel of a w×h canvas. Rows are split into
// bands, one per worker, and each row checks ctx before it runs.
func forPixels(ctx context.Context, w, h, workers int, fn func(x, y int)) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > h {
		workers = h
	}
	if workers < 1 {
		workers = 1
	}
	band := (h + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < h; start += band {
		end := min(start+band, h)
		g.Go(func() error {
			for y := start; y < end; y++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				for x := 0; x < w; x++ {
					fn(x, y)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func put(img *image.NRGBA, x, y int, c mgl32.Vec4) {
	i := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	p := img.Pix[i : i+4 : i+4]
	p[0] = unorm(c[0])
	p[1] = unorm(c[1])
	p[2] = unorm(c[2])
	p[3] = unorm(c[3])
}

func at(img *image.NRGBA, x, y int) mgl32.Vec4 {
	return mgl32.Vec4(texture.At(img, x, y))
}

func unorm(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func lerp3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func mul3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// bakeTarget names one output texture of a bake.
type bakeTarget struct {
	channel Channel
	kind    string
	img     *image.NRGBA
}

// canvas owns the outputs of one bake. Nothing reaches the sink until every
// pixel has been written.
type canvas struct {
	w, h    int
	targets []*bakeTarget
}

func newCanvas(w, h int) *canvas { return &canvas{w: w, h: h} }

func (c *canvas) add(ch Channel, kind string) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.w, c.h))
	c.targets = append(c.targets, &bakeTarget{channel: ch, kind: kind, img: img})
	return img
}

// commit stores every output and records it on m.
func (c *canvas) commit(set *mtrl.MaterialSet, sink texture.Sink, m *Material, salt ...string) error {
	for _, t := range c.targets {
		name := set.ComputedTextureName(t.kind, salt...)
		ref, err := sink.CacheTexture(t.img, name)
		if err != nil {
			return fmt.Errorf("material: store %s: %w", name, err)
		}
		m.Channels[t.channel] = TextureRef{Name: name, Ref: ref}
	}
	return nil
}
