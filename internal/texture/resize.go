package texture

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize resamples img to w×h with premultiplied-alpha CatmullRom filtering.
// An image already at the target size is returned as is.
func Resize(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}

	premul := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := premul.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255.0
			premul.Pix[di] = uint8(float64(img.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(img.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(img.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = img.Pix[si+3]
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	result := image.NewNRGBA(dst.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := dst.PixOffset(x, y)
			di := result.PixOffset(x, y)
			a := float64(dst.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				result.Pix[di] = clamp8(float64(dst.Pix[si]) * inv)
				result.Pix[di+1] = clamp8(float64(dst.Pix[si+1]) * inv)
				result.Pix[di+2] = clamp8(float64(dst.Pix[si+2]) * inv)
			}
			result.Pix[di+3] = dst.Pix[si+3]
		}
	}
	return result
}

// ResizeOpaque resamples color and alpha independently, without alpha
// weighting. Used for data textures such as normal and mask maps whose alpha
// is not coverage.
func ResizeOpaque(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	rgb := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	alpha := image.NewGray(rgb.Rect)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := rgb.PixOffset(x, y)
			copy(rgb.Pix[di:di+3], img.Pix[si:si+3])
			rgb.Pix[di+3] = 255
			alpha.Pix[alpha.PixOffset(x, y)] = img.Pix[si+3]
		}
	}

	rgbDst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(rgbDst, rgbDst.Rect, rgb, rgb.Rect, draw.Src, nil)
	alphaDst := image.NewGray(rgbDst.Rect)
	draw.CatmullRom.Scale(alphaDst, alphaDst.Rect, alpha, alpha.Rect, draw.Src, nil)

	result := image.NewNRGBA(rgbDst.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := result.PixOffset(x, y)
			copy(result.Pix[i:i+3], rgbDst.Pix[i:i+3])
			result.Pix[i+3] = alphaDst.Pix[alphaDst.PixOffset(x, y)]
		}
	}
	return result
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
