package dvid

import (
	"fmt"
	"math"
)

// Point3d is an ordered list of three 32-bit signed integers giving a voxel coordinate.
type Point3d [3]int32

// SetMinimum sets the point to the minimum elements of current and passed points.
func (p *Point3d) SetMinimum(p2 Point3d) {
	for dim := 0; dim < 3; dim++ {
		if p[dim] > p2[dim] {
			p[dim] = p2[dim]
		}
	}
}

// SetMaximum sets the point to the maximum elements of current and passed points.
func (p *Point3d) SetMaximum(p2 Point3d) {
	for dim := 0; dim < 3; dim++ {
		if p[dim] < p2[dim] {
			p[dim] = p2[dim]
		}
	}
}

// AddScalar adds a scalar value to this point.
func (p Point3d) AddScalar(value int32) Point3d {
	return Point3d{p[0] + value, p[1] + value, p[2] + value}
}

// Add returns the addition of two points.
func (p Point3d) Add(p2 Point3d) Point3d {
	return Point3d{p[0] + p2[0], p[1] + p2[1], p[2] + p2[2]}
}

// Sub returns the subtraction of the passed point from the receiver.
func (p Point3d) Sub(p2 Point3d) Point3d {
	return Point3d{p[0] - p2[0], p[1] - p2[1], p[2] - p2[2]}
}

// Mod returns a point where each component is the receiver modulo the passed point's components.
func (p Point3d) Mod(p2 Point3d) Point3d {
	return Point3d{p[0] % p2[0], p[1] % p2[1], p[2] % p2[2]}
}

// Div returns the division of the receiver by the passed point.
func (p Point3d) Div(p2 Point3d) Point3d {
	return Point3d{p[0] / p2[0], p[1] / p2[1], p[2] / p2[2]}
}

// Mult returns the multiplication of the receiver by the passed point.
func (p Point3d) Mult(p2 Point3d) Point3d {
	return Point3d{p[0] * p2[0], p[1] * p2[1], p[2] * p2[2]}
}

// Max returns a Point3d where each of its elements are the maximum of two points' elements.
func (p Point3d) Max(p2 Point3d) (Point3d, bool) {
	result := p
	result.SetMaximum(p2)
	return result, result != p
}

// Min returns a Point3d where each of its elements are the minimum of two points' elements.
func (p Point3d) Min(p2 Point3d) (Point3d, bool) {
	result := p
	result.SetMinimum(p2)
	return result, result != p
}

// Distance returns the integer distance (rounding down).
func (p Point3d) Distance(p2 Point3d) int32 {
	dx := float64(p[0] - p2[0])
	dy := float64(p[1] - p2[1])
	dz := float64(p[2] - p2[2])
	return int32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

func (p Point3d) Prod() int64 {
	return int64(p[0]) * int64(p[1]) * int64(p[2])
}

// Vector returns the point as a floating-point vector.
func (p Point3d) Vector() Vector3d {
	return Vector3d{float64(p[0]), float64(p[1]), float64(p[2])}
}

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// Chunk returns the chunk space coordinate of the cubic chunk with the given
// edge length containing the point.  Negative coordinates round toward negative
// infinity, so (-1,-1,-1) lies in chunk (-1,-1,-1).
func (p Point3d) Chunk(edge int32) ChunkPoint3d {
	var c ChunkPoint3d
	for dim := 0; dim < 3; dim++ {
		// int64 so coordinates near math.MinInt32 do not wrap
		v, e := int64(p[dim]), int64(edge)
		if v < 0 {
			v -= e - 1
		}
		c[dim] = int32(v / e)
	}
	return c
}

// PointInChunk returns the offset of the point within its containing cubic chunk.
func (p Point3d) PointInChunk(edge int32) Point3d {
	var o Point3d
	for dim := 0; dim < 3; dim++ {
		o[dim] = ((p[dim] % edge) + edge) % edge
	}
	return o
}

// ChunkPoint3d handles 3d signed chunk (block) coordinates.
type ChunkPoint3d [3]int32

func (c ChunkPoint3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c[0], c[1], c[2])
}

// Point returns the chunk coordinate as a plain Point3d.
func (c ChunkPoint3d) Point() Point3d {
	return Point3d(c)
}

// MinPoint returns the smallest voxel coordinate of the given 3d chunk.
func (c ChunkPoint3d) MinPoint(edge int32) Point3d {
	return Point3d{c[0] * edge, c[1] * edge, c[2] * edge}
}

// MaxPoint returns the maximum voxel coordinate of the given 3d chunk.
func (c ChunkPoint3d) MaxPoint(edge int32) Point3d {
	return Point3d{
		(c[0]+1)*edge - 1,
		(c[1]+1)*edge - 1,
		(c[2]+1)*edge - 1,
	}
}

// Vector3d is a 3d vector of float64 used for world-space coordinates.
type Vector3d [3]float64

func (v Vector3d) Add(v2 Vector3d) Vector3d {
	return Vector3d{v[0] + v2[0], v[1] + v2[1], v[2] + v2[2]}
}

func (v Vector3d) Sub(v2 Vector3d) Vector3d {
	return Vector3d{v[0] - v2[0], v[1] - v2[1], v[2] - v2[2]}
}

// Scale multiplies every component by s.
func (v Vector3d) Scale(s float64) Vector3d {
	return Vector3d{v[0] * s, v[1] * s, v[2] * s}
}

func (v Vector3d) Dot(v2 Vector3d) float64 {
	return v[0]*v2[0] + v[1]*v2[1] + v[2]*v2[2]
}

func (v Vector3d) Cross(v2 Vector3d) Vector3d {
	return Vector3d{
		v[1]*v2[2] - v[2]*v2[1],
		v[2]*v2[0] - v[0]*v2[2],
		v[0]*v2[1] - v[1]*v2[0],
	}
}

func (v Vector3d) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Floor returns the voxel containing the world-space point when voxels are unit cubes.
func (v Vector3d) Floor() Point3d {
	return Point3d{
		int32(math.Floor(v[0])),
		int32(math.Floor(v[1])),
		int32(math.Floor(v[2])),
	}
}

func (v Vector3d) String() string {
	return fmt.Sprintf("(%g,%g,%g)", v[0], v[1], v[2])
}
