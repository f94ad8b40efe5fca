package texture

import "image"

// Sample performs bilinear filtering with UV wrapping and returns the four
// channels in [0, 1].
func Sample(img *image.NRGBA, u, v float32) [4]float32 {
	w := img.Rect.Dx()
	h := img.Rect.Dy()

	u -= float32(int(u))
	if u < 0 {
		u += 1
	}
	v -= float32(int(v))
	if v < 0 {
		v += 1
	}

	fx := u * float32(w-1)
	fy := v * float32(h-1)
	x0 := int(fx)
	y0 := int(fy)
	x1 := (x0 + 1) % w
	y1 := (y0 + 1) % h
	dx := fx - float32(x0)
	dy := fy - float32(y0)

	i00 := img.PixOffset(img.Rect.Min.X+x0, img.Rect.Min.Y+y0)
	i10 := img.PixOffset(img.Rect.Min.X+x1, img.Rect.Min.Y+y0)
	i01 := img.PixOffset(img.Rect.Min.X+x0, img.Rect.Min.Y+y1)
	i11 := img.PixOffset(img.Rect.Min.X+x1, img.Rect.Min.Y+y1)

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	pix := img.Pix
	var out [4]float32
	for c := 0; c < 4; c++ {
		s := float32(pix[i00+c])*w00 + float32(pix[i10+c])*w10 + float32(pix[i01+c])*w01 + float32(pix[i11+c])*w11
		out[c] = s / 255
	}
	return out
}

// At returns the pixel at (x, y) with channels in [0, 1].
func At(img *image.NRGBA, x, y int) [4]float32 {
	i := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	p := img.Pix[i : i+4 : i+4]
	return [4]float32{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
}
