package dvid

import (
	"errors"
	"math"

	. "github.com/janelia-flyem/go/gocheck"
)

func closeTo(a, b Vector3d) bool {
	for dim := 0; dim < 3; dim++ {
		if math.Abs(a[dim]-b[dim]) > 1e-9 {
			return false
		}
	}
	return true
}

func (s *DataSuite) TestAffineCompose(c *C) {
	scale := Scaling(Vector3d{8, 8, 30})
	shift := Translation(Vector3d{100, 200, 300})
	m := shift.Mul(scale)

	p := m.TransformPoint(Vector3d{1, 2, 3})
	c.Assert(p, Equals, Vector3d{108, 216, 390})

	// Vectors ignore translation.
	v := m.TransformVector(Vector3d{1, 2, 3})
	c.Assert(v, Equals, Vector3d{8, 16, 90})

	c.Assert(Identity().Mul(m), Equals, m)
	c.Assert(m.Determinant(), Equals, 8.0*8.0*30.0)
}

func (s *DataSuite) TestAffineInvert(c *C) {
	m := Translation(Vector3d{-5, 7, 11}).Mul(Scaling(Vector3d{2, 4, 0.5}))
	inv, err := m.Invert()
	c.Assert(err, IsNil)

	for _, pt := range []Vector3d{{0, 0, 0}, {1, 2, 3}, {-10, 50, 0.25}} {
		back := inv.TransformPoint(m.TransformPoint(pt))
		c.Assert(closeTo(back, pt), Equals, true, Commentf("point %s came back as %s", pt, back))
	}

	// Rotation about z needs pivoting.
	rot := Affine{
		0, -1, 0, 0,
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	rinv, err := rot.Invert()
	c.Assert(err, IsNil)
	c.Assert(closeTo(rinv.TransformPoint(Vector3d{0, 1, 0}), Vector3d{1, 0, 0}), Equals, true)
}

func (s *DataSuite) TestAffineSingular(c *C) {
	flat := Scaling(Vector3d{1, 1, 0})
	_, err := flat.Invert()
	c.Assert(err, NotNil)
	c.Assert(errors.Is(err, ErrSingularMatrix), Equals, true)
	c.Assert(KindOf(err).Category(), Equals, RangeError)

	tiny := Scaling(Vector3d{1e-5, 1e-5, 1e-5})
	_, err = tiny.Invert()
	c.Assert(errors.Is(err, ErrSingularMatrix), Equals, true)
}

func (s *DataSuite) TestAffineBox(c *C) {
	m := Translation(Vector3d{10, 0, 0}).Mul(Scaling(Vector3d{2, 2, 2}))
	b := m.TransformBox(Box3d{Point3d{0, 0, 0}, Point3d{1, 1, 1}})
	c.Assert(b, Equals, Bounds3d{Vector3d{10, 0, 0}, Vector3d{14, 4, 4}})

	f := m.Float32()
	c.Assert(AffineFromFloat32(f), Equals, m)
}
