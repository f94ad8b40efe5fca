package mathutil

import "github.com/go-gl/mathgl/mgl32"

// Affine is a 3×4 row-major matrix: three rows of (x, y, z, translation).
type Affine [12]float32

// AffineIdentity returns the identity affine matrix.
func AffineIdentity() Affine {
	return Affine{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
}

// Apply transforms a point with an implicit w of 1.
func (m Affine) Apply(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[3],
		m[4]*v[0] + m[5]*v[1] + m[6]*v[2] + m[7],
		m[8]*v[0] + m[9]*v[1] + m[10]*v[2] + m[11],
	}
}

// Mat4 returns the matrix in column-major 4×4 form.
func (m Affine) Mat4() mgl32.Mat4 {
	return mgl32.Mat4{
		m[0], m[4], m[8], 0,
		m[1], m[5], m[9], 0,
		m[2], m[6], m[10], 0,
		m[3], m[7], m[11], 1,
	}
}

// IsIdentity checks if the matrix is approximately identity.
func (m Affine) IsIdentity() bool {
	id := AffineIdentity()
	for i := range m {
		d := m[i] - id[i]
		if d > 1e-6 || d < -1e-6 {
			return false
		}
	}
	return true
}
