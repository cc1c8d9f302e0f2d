package dvid

import (
	"fmt"
	"math"
)

// SingularTolerance is the determinant magnitude below which a matrix is
// treated as non-invertible.
const SingularTolerance = 1e-12

// Affine is a 4x4 row-major matrix mapping homogeneous voxel coordinates to
// world space.  The last row is (0,0,0,1) for a proper affine transform, but
// the values are stored and composed as given.
type Affine [16]float64

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a transform that offsets points by t.
func Translation(t Vector3d) Affine {
	m := Identity()
	m[3], m[7], m[11] = t[0], t[1], t[2]
	return m
}

// Scaling returns a transform that scales each axis, e.g., by voxel resolution.
func Scaling(s Vector3d) Affine {
	m := Identity()
	m[0], m[5], m[10] = s[0], s[1], s[2]
	return m
}

// AffineFromFloat32 converts the on-disk representation.
func AffineFromFloat32(f [16]float32) Affine {
	var m Affine
	for i, v := range f {
		m[i] = float64(v)
	}
	return m
}

// Float32 returns the on-disk representation.
func (m Affine) Float32() [16]float32 {
	var f [16]float32
	for i, v := range m {
		f[i] = float32(v)
	}
	return f
}

func (m Affine) at(row, col int) float64 {
	return m[row*4+col]
}

// Mul returns the composition m * m2, i.e., m2 is applied first.
func (m Affine) Mul(m2 Affine) Affine {
	var r Affine
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m.at(row, k) * m2.at(k, col)
			}
			r[row*4+col] = sum
		}
	}
	return r
}

// Determinant returns the determinant of the full 4x4 matrix.
func (m Affine) Determinant() float64 {
	_, det := m.gaussJordan()
	return det
}

// Invert returns the inverse transform or a SingularMatrix error.
func (m Affine) Invert() (Affine, error) {
	inv, det := m.gaussJordan()
	if math.Abs(det) < SingularTolerance {
		return Affine{}, NewError(SingularMatrix, "invert", "determinant %g", det)
	}
	return inv, nil
}

// gaussJordan reduces m with partial pivoting, returning the inverse and the
// determinant.  The inverse is meaningless when the determinant is ~0.
func (m Affine) gaussJordan() (Affine, float64) {
	a := m
	inv := Identity()
	det := 1.0
	for col := 0; col < 4; col++ {
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(a.at(row, col)) > math.Abs(a.at(pivot, col)) {
				pivot = row
			}
		}
		p := a.at(pivot, col)
		if p == 0 {
			return inv, 0
		}
		if pivot != col {
			for k := 0; k < 4; k++ {
				a[col*4+k], a[pivot*4+k] = a[pivot*4+k], a[col*4+k]
				inv[col*4+k], inv[pivot*4+k] = inv[pivot*4+k], inv[col*4+k]
			}
			det = -det
		}
		det *= p
		for k := 0; k < 4; k++ {
			a[col*4+k] /= p
			inv[col*4+k] /= p
		}
		for row := 0; row < 4; row++ {
			if row == col {
				continue
			}
			f := a.at(row, col)
			if f == 0 {
				continue
			}
			for k := 0; k < 4; k++ {
				a[row*4+k] -= f * a[col*4+k]
				inv[row*4+k] -= f * inv[col*4+k]
			}
		}
	}
	return inv, det
}

// TransformPoint applies the full transform, including translation.
func (m Affine) TransformPoint(v Vector3d) Vector3d {
	var r Vector3d
	for row := 0; row < 3; row++ {
		r[row] = m.at(row, 0)*v[0] + m.at(row, 1)*v[1] + m.at(row, 2)*v[2] + m.at(row, 3)
	}
	w := m.at(3, 0)*v[0] + m.at(3, 1)*v[1] + m.at(3, 2)*v[2] + m.at(3, 3)
	if w != 1 && w != 0 {
		r = r.Scale(1 / w)
	}
	return r
}

// TransformVector applies only the linear part, ignoring translation.
func (m Affine) TransformVector(v Vector3d) Vector3d {
	var r Vector3d
	for row := 0; row < 3; row++ {
		r[row] = m.at(row, 0)*v[0] + m.at(row, 1)*v[1] + m.at(row, 2)*v[2]
	}
	return r
}

// TransformBox returns the world-space bounds of a voxel box, treating each
// voxel as the unit cube starting at its coordinate.
func (m Affine) TransformBox(b Box3d) Bounds3d {
	bounds := EmptyBounds()
	if b.Empty() {
		return bounds
	}
	lo := b.Min.Vector()
	hi := b.Max.AddScalar(1).Vector()
	for corner := 0; corner < 8; corner++ {
		var c Vector3d
		for dim := 0; dim < 3; dim++ {
			if corner&(1<<dim) != 0 {
				c[dim] = hi[dim]
			} else {
				c[dim] = lo[dim]
			}
		}
		bounds.Extend(m.TransformPoint(c))
	}
	return bounds
}

func (m Affine) String() string {
	return fmt.Sprintf("[%g %g %g %g; %g %g %g %g; %g %g %g %g; %g %g %g %g]",
		m[0], m[1], m[2], m[3], m[4], m[5], m[6], m[7],
		m[8], m[9], m[10], m[11], m[12], m[13], m[14], m[15])
}
