package dvid

import (
	. "github.com/janelia-flyem/go/gocheck"
)

func (s *DataSuite) TestBox3d(c *C) {
	b := NewBox3d(Point3d{10, 10, 10}, Point3d{0, 0, 0})
	c.Assert(b.Min, Equals, Point3d{0, 0, 0})
	c.Assert(b.Max, Equals, Point3d{10, 10, 10})
	c.Assert(b.Volume(), Equals, int64(1331))
	c.Assert(b.Contains(Point3d{10, 0, 5}), Equals, true)
	c.Assert(b.Contains(Point3d{11, 0, 5}), Equals, false)

	b2 := Box3d{Point3d{5, -5, 5}, Point3d{20, 5, 8}}
	i := b.Intersect(b2)
	c.Assert(i, Equals, Box3d{Point3d{5, 0, 5}, Point3d{10, 5, 8}})
	c.Assert(i.Volume(), Equals, int64(6*6*4))

	u := b.Union(b2)
	c.Assert(u, Equals, Box3d{Point3d{0, -5, 0}, Point3d{20, 10, 10}})

	disjoint := b.Intersect(Box3d{Point3d{20, 20, 20}, Point3d{30, 30, 30}})
	c.Assert(disjoint.Empty(), Equals, true)
	c.Assert(disjoint.Volume(), Equals, int64(0))
	c.Assert(b.Union(disjoint), Equals, b)
	c.Assert(b.ContainsBox(disjoint), Equals, true)
	c.Assert(b.ContainsBox(b2), Equals, false)

	var grown Box3d = EmptyBox3d
	grown.Extend(Point3d{3, 4, 5})
	grown.Extend(Point3d{-1, 9, 5})
	c.Assert(grown, Equals, Box3d{Point3d{-1, 4, 5}, Point3d{3, 9, 5}})
}

func (s *DataSuite) TestBoxChunks(c *C) {
	vox := Box3d{Point3d{5, 5, 5}, Point3d{40, 15, 16}}
	blocks := vox.Chunks(16)
	c.Assert(blocks, Equals, Box3d{Point3d{0, 0, 0}, Point3d{2, 0, 1}})
	c.Assert(blocks.Voxels(16), Equals, Box3d{Point3d{0, 0, 0}, Point3d{47, 15, 31}})
	c.Assert(EmptyBox3d.Chunks(16).Empty(), Equals, true)
}

func (s *DataSuite) TestBounds3d(c *C) {
	b := EmptyBounds()
	c.Assert(b.Empty(), Equals, true)
	b.Extend(Vector3d{0, 0, 0})
	b.Extend(Vector3d{2, 3, 4})
	c.Assert(b.Volume(), Equals, 24.0)
	c.Assert(b.Contains(Vector3d{1, 1, 1}), Equals, true)
	c.Assert(b.Contains(Vector3d{1, 1, 5}), Equals, false)

	b2 := Bounds3d{Vector3d{1, 1, 1}, Vector3d{5, 5, 5}}
	c.Assert(b.Intersect(b2), Equals, Bounds3d{Vector3d{1, 1, 1}, Vector3d{2, 3, 4}})
	c.Assert(b.Union(b2), Equals, Bounds3d{Vector3d{0, 0, 0}, Vector3d{5, 5, 5}})
	c.Assert(EmptyBounds().Union(b2), Equals, b2)
}
