package dvid

import (
	"math"

	. "github.com/janelia-flyem/go/gocheck"
)

func (s *DataSuite) TestPoint3d(c *C) {
	a := Point3d{10, 21, 837821}
	b := Point3d{78312, -200, 40123}
	result := a.Add(b)
	c.Assert(result, Equals, Point3d{a[0] + b[0], a[1] + b[1], a[2] + b[2]})

	result = a.Sub(b)
	c.Assert(result, Equals, Point3d{a[0] - b[0], a[1] - b[1], a[2] - b[2]})

	result = a.Mod(b)
	c.Assert(result, Equals, Point3d{a[0] % b[0], a[1] % b[1], a[2] % b[2]})

	result = a.Div(b)
	c.Assert(result, Equals, Point3d{a[0] / b[0], a[1] / b[1], a[2] / b[2]})

	d := Point3d{1, 1, 1}
	e := Point3d{4, 4, 4}
	c.Assert(d.Distance(e), Equals, int32(5))

	c.Assert(a.String(), Equals, "(10,21,837821)")
	c.Assert(a.AddScalar(10), Equals, Point3d{20, 31, 837831})

	result, changed := a.Max(b)
	c.Assert(result, Equals, Point3d{78312, 21, 837821})
	c.Assert(changed, Equals, true)
	result, _ = b.Max(a)
	c.Assert(result, Equals, Point3d{78312, 21, 837821})

	result, _ = a.Min(b)
	c.Assert(result, Equals, Point3d{10, -200, 40123})
	result, changed = result.Min(a)
	c.Assert(changed, Equals, false)

	c.Assert(Point3d{2, 3, 4}.Prod(), Equals, int64(24))
}

func (s *DataSuite) TestChunking(c *C) {
	p := Point3d{5, 16, 31}
	c.Assert(p.Chunk(16), Equals, ChunkPoint3d{0, 1, 1})
	c.Assert(p.PointInChunk(16), Equals, Point3d{5, 0, 15})

	n := Point3d{-1, -16, -17}
	c.Assert(n.Chunk(16), Equals, ChunkPoint3d{-1, -1, -2})
	c.Assert(n.PointInChunk(16), Equals, Point3d{15, 0, 15})

	chunk := ChunkPoint3d{1, -1, 0}
	c.Assert(chunk.MinPoint(16), Equals, Point3d{16, -16, 0})
	c.Assert(chunk.MaxPoint(16), Equals, Point3d{31, -1, 15})

	// Every voxel reconstructs from its chunk and in-chunk offset.
	c.Assert(Point3d{-2, -9, -8}.PointInChunk(8), Equals, Point3d{6, 7, 0})
	for _, v := range []Point3d{{0, 0, 0}, {-33, 7, 100}, {15, -15, -16}, {-2, -3, -4}} {
		rebuilt := v.Chunk(8).MinPoint(8).Add(v.PointInChunk(8))
		c.Assert(rebuilt, Equals, v)
	}
}

func (s *DataSuite) TestChunkingInt32Limits(c *C) {
	lowest := Point3d{math.MinInt32, math.MinInt32 + 15, math.MinInt32 + 16}
	c.Assert(lowest.Chunk(16), Equals, ChunkPoint3d{math.MinInt32 / 16, math.MinInt32 / 16, math.MinInt32/16 + 1})
	c.Assert(lowest.PointInChunk(16), Equals, Point3d{0, 15, 0})

	highest := Point3d{math.MaxInt32, math.MaxInt32 - 16, 0}
	c.Assert(highest.Chunk(16), Equals, ChunkPoint3d{math.MaxInt32 / 16, math.MaxInt32/16 - 1, 0})
	c.Assert(highest.PointInChunk(16), Equals, Point3d{15, 15, 0})

	for _, v := range []Point3d{lowest, highest} {
		rebuilt := v.Chunk(256).MinPoint(256).Add(v.PointInChunk(256))
		c.Assert(rebuilt, Equals, v)
	}

	box := Box3d{Min: Point3d{math.MinInt32, 0, 0}, Max: Point3d{math.MinInt32 + 40, 3, 3}}
	c.Assert(box.Chunks(16), Equals, Box3d{
		Min: Point3d{math.MinInt32 / 16, 0, 0},
		Max: Point3d{math.MinInt32/16 + 2, 0, 0},
	})
}

func (s *DataSuite) TestVector3d(c *C) {
	x := Vector3d{1, 0, 0}
	y := Vector3d{0, 1, 0}
	c.Assert(x.Cross(y), Equals, Vector3d{0, 0, 1})
	c.Assert(x.Dot(y), Equals, 0.0)
	c.Assert(x.Add(y).Scale(2), Equals, Vector3d{2, 2, 0})
	c.Assert(Vector3d{3, 4, 0}.Length(), Equals, 5.0)
	c.Assert(Vector3d{-0.5, 1.5, 2}.Floor(), Equals, Point3d{-1, 1, 2})
}
