// Package mathutil holds the transform math shared by skeleton assembly,
// race deformation and scene composition.
package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a decomposed translation/rotation/scale transform.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix returns T * R * S.
func (t Transform) Matrix() mgl32.Mat4 {
	tr := mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
	s := mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return tr.Mul4(t.rotation().Mat4()).Mul4(s)
}

// rotation treats a zero quaternion as identity.
func (t Transform) rotation() mgl32.Quat {
	if t.Rotation.Len() < 1e-8 {
		return mgl32.QuatIdent()
	}
	return t.Rotation.Normalize()
}

// Mul returns the transform of child expressed in t's parent space.
func (t Transform) Mul(child Transform) Transform {
	return FromMatrix(t.Matrix().Mul4(child.Matrix()))
}

// WithScale returns t with its scale multiplied component-wise by s.
func (t Transform) WithScale(s mgl32.Vec3) Transform {
	t.Scale = mgl32.Vec3{t.Scale[0] * s[0], t.Scale[1] * s[1], t.Scale[2] * s[2]}
	return t
}

// ApproxEqual compares two transforms component-wise within eps.
func (t Transform) ApproxEqual(o Transform, eps float32) bool {
	q1, q2 := t.rotation(), o.rotation()
	// q and -q describe the same rotation.
	if q1.Dot(q2) < 0 {
		q2 = q2.Scale(-1)
	}
	return t.Translation.ApproxEqualThreshold(o.Translation, eps) &&
		t.Scale.ApproxEqualThreshold(o.Scale, eps) &&
		q1.ApproxEqualThreshold(q2, eps)
}

// FromMatrix decomposes an affine matrix without shear.
func FromMatrix(m mgl32.Mat4) Transform {
	c0, c1, c2 := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	scale := mgl32.Vec3{c0.Len(), c1.Len(), c2.Len()}
	if m.Mat3().Det() < 0 {
		scale[0] = -scale[0]
	}
	var rot mgl32.Mat3
	for i, c := range [3]mgl32.Vec3{c0, c1, c2} {
		s := scale[i]
		if s == 0 {
			s = 1
		}
		rot.SetCol(i, c.Mul(1/s))
	}
	return Transform{
		Translation: m.Col(3).Vec3(),
		Rotation:    mgl32.Mat4ToQuat(rot.Mat4()).Normalize(),
		Scale:       scale,
	}
}

// EulerToQuat converts Euler XYZ angles in radians to a quaternion.
func EulerToQuat(rx, ry, rz float32) mgl32.Quat {
	cx, sx := cos(rx*0.5), sin(rx*0.5)
	cy, sy := cos(ry*0.5), sin(ry*0.5)
	cz, sz := cos(rz*0.5), sin(rz*0.5)

	return mgl32.Quat{
		W: cx*cy*cz + sx*sy*sz,
		V: mgl32.Vec3{
			sx*cy*cz - cx*sy*sz,
			cx*sy*cz + sx*cy*sz,
			cx*cy*sz - sx*sy*cz,
		},
	}
}

func cos(a float32) float32 { return float32(math.Cos(float64(a))) }
func sin(a float32) float32 { return float32(math.Sin(float64(a))) }
