package dvid

import (
	"fmt"
	"math"
)

// Box3d is an axis-aligned box of integer coordinates.  Both corners are
// inclusive, so a box with Min == Max holds exactly one point.  Any box with
// Max < Min along some axis is empty.
type Box3d struct {
	Min Point3d
	Max Point3d
}

// NewBox3d returns the box spanning the two corners in any order.
func NewBox3d(a, b Point3d) Box3d {
	min, _ := a.Min(b)
	max, _ := a.Max(b)
	return Box3d{min, max}
}

// EmptyBox3d is a canonical empty box.
var EmptyBox3d = Box3d{Min: Point3d{0, 0, 0}, Max: Point3d{-1, -1, -1}}

// Empty returns true if the box holds no points.
func (b Box3d) Empty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Size returns the extent in each dimension, or zero size for an empty box.
func (b Box3d) Size() Point3d {
	if b.Empty() {
		return Point3d{}
	}
	return b.Max.Sub(b.Min).AddScalar(1)
}

// Volume returns the number of points in the box.
func (b Box3d) Volume() int64 {
	if b.Empty() {
		return 0
	}
	return b.Size().Prod()
}

// Contains returns true if the point lies within the box.
func (b Box3d) Contains(p Point3d) bool {
	for dim := 0; dim < 3; dim++ {
		if p[dim] < b.Min[dim] || p[dim] > b.Max[dim] {
			return false
		}
	}
	return true
}

// ContainsBox returns true if every point of b2 lies within b.  An empty b2 is
// always contained.
func (b Box3d) ContainsBox(b2 Box3d) bool {
	if b2.Empty() {
		return true
	}
	return b.Contains(b2.Min) && b.Contains(b2.Max)
}

// Intersect returns the overlap of two boxes, which may be empty.
func (b Box3d) Intersect(b2 Box3d) Box3d {
	min, _ := b.Min.Max(b2.Min)
	max, _ := b.Max.Min(b2.Max)
	return Box3d{min, max}
}

// Union returns the smallest box enclosing both boxes.  Empty boxes are ignored.
func (b Box3d) Union(b2 Box3d) Box3d {
	if b.Empty() {
		return b2
	}
	if b2.Empty() {
		return b
	}
	min, _ := b.Min.Min(b2.Min)
	max, _ := b.Max.Max(b2.Max)
	return Box3d{min, max}
}

// Extend grows the box to include the point.
func (b *Box3d) Extend(p Point3d) {
	if b.Empty() {
		b.Min, b.Max = p, p
		return
	}
	b.Min.SetMinimum(p)
	b.Max.SetMaximum(p)
}

// Chunks returns the box of chunk coordinates covering a voxel box.
func (b Box3d) Chunks(edge int32) Box3d {
	if b.Empty() {
		return EmptyBox3d
	}
	return Box3d{
		Min: b.Min.Chunk(edge).Point(),
		Max: b.Max.Chunk(edge).Point(),
	}
}

// Voxels returns the voxel box covered by a box of chunk coordinates.
func (b Box3d) Voxels(edge int32) Box3d {
	if b.Empty() {
		return EmptyBox3d
	}
	return Box3d{
		Min: ChunkPoint3d(b.Min).MinPoint(edge),
		Max: ChunkPoint3d(b.Max).MaxPoint(edge),
	}
}

func (b Box3d) String() string {
	if b.Empty() {
		return "empty box"
	}
	return fmt.Sprintf("box %s to %s", b.Min, b.Max)
}

// Bounds3d is an axis-aligned box in world space.
type Bounds3d struct {
	Min Vector3d
	Max Vector3d
}

// EmptyBounds returns bounds that any Extend call will replace.
func EmptyBounds() Bounds3d {
	inf := math.Inf(1)
	return Bounds3d{
		Min: Vector3d{inf, inf, inf},
		Max: Vector3d{-inf, -inf, -inf},
	}
}

func (b Bounds3d) Empty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Extend grows the bounds to include the point.
func (b *Bounds3d) Extend(v Vector3d) {
	for dim := 0; dim < 3; dim++ {
		b.Min[dim] = math.Min(b.Min[dim], v[dim])
		b.Max[dim] = math.Max(b.Max[dim], v[dim])
	}
}

func (b Bounds3d) Contains(v Vector3d) bool {
	for dim := 0; dim < 3; dim++ {
		if v[dim] < b.Min[dim] || v[dim] > b.Max[dim] {
			return false
		}
	}
	return true
}

func (b Bounds3d) Intersect(b2 Bounds3d) Bounds3d {
	var r Bounds3d
	for dim := 0; dim < 3; dim++ {
		r.Min[dim] = math.Max(b.Min[dim], b2.Min[dim])
		r.Max[dim] = math.Min(b.Max[dim], b2.Max[dim])
	}
	return r
}

func (b Bounds3d) Union(b2 Bounds3d) Bounds3d {
	if b.Empty() {
		return b2
	}
	if b2.Empty() {
		return b
	}
	var r Bounds3d
	for dim := 0; dim < 3; dim++ {
		r.Min[dim] = math.Min(b.Min[dim], b2.Min[dim])
		r.Max[dim] = math.Max(b.Max[dim], b2.Max[dim])
	}
	return r
}

// Volume returns the world-space volume, zero when empty.
func (b Bounds3d) Volume() float64 {
	if b.Empty() {
		return 0
	}
	d := b.Max.Sub(b.Min)
	return d[0] * d[1] * d[2]
}

func (b Bounds3d) String() string {
	return fmt.Sprintf("bounds %s to %s", b.Min, b.Max)
}
