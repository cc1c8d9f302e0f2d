// Package morton maps 3d block coordinates to Z-order (Morton) codes and back, and
// iterates the codes of an axis-aligned box in increasing order without visiting
// codes that fall outside the box.
//
// Bit i of a code comes from bit i/3 of axis i%3, so x occupies bits 0, 3, 6, ...,
// y occupies bits 1, 4, 7, ... and z occupies bits 2, 5, 8, ...  With 21 bits per
// axis a code fits in 63 bits of a uint64.
package morton

import (
	"sync"

	"github.com/janelia-flyem/sparsevol/dvid"
)

// MaxBits is the largest per-axis bit depth that fits in a uint64 code.
const MaxBits = 21

// axisMask[d] has every code bit belonging to axis d set.
var axisMask = [3]uint64{
	0x1249249249249249,
	0x1249249249249249 << 1,
	0x1249249249249249 << 2,
}

// spreadTable maps a byte to its bits spaced three apart, i.e. bit k moves to bit 3k.
var spreadTable = sync.OnceValue(func() *[256]uint64 {
	var t [256]uint64
	for b := 0; b < 256; b++ {
		var v uint64
		for k := 0; k < 8; k++ {
			if b&(1<<k) != 0 {
				v |= 1 << (3 * k)
			}
		}
		t[b] = v
	}
	return &t
})

// compactTable maps 9 interleaved code bits to 3 bits per axis packed as x | y<<3 | z<<6.
var compactTable = sync.OnceValue(func() *[512]uint16 {
	var t [512]uint16
	for chunk := 0; chunk < 512; chunk++ {
		var v uint16
		for k := 0; k < 9; k++ {
			if chunk&(1<<k) != 0 {
				axis := k % 3
				v |= 1 << (axis*3 + k/3)
			}
		}
		t[chunk] = v
	}
	return &t
})

func spread(v uint32) uint64 {
	t := spreadTable()
	return t[v&0xff] | t[(v>>8)&0xff]<<24 | t[(v>>16)&0xff]<<48
}

// interleave encodes coordinates already known to be within MaxBits.
func interleave(x, y, z uint32) uint64 {
	return spread(x) | spread(y)<<1 | spread(z)<<2
}

// deinterleave is the exact inverse of interleave for 63-bit codes.
func deinterleave(code uint64) (x, y, z uint32) {
	t := compactTable()
	for i := uint(0); i < 7; i++ {
		v := uint32(t[(code>>(9*i))&0x1ff])
		x |= (v & 7) << (3 * i)
		y |= ((v >> 3) & 7) << (3 * i)
		z |= ((v >> 6) & 7) << (3 * i)
	}
	return
}

// BitsFor returns the per-axis bit depth needed to address span distinct
// coordinates, with a minimum of 1.
func BitsFor(span int64) uint8 {
	bits := uint8(1)
	for int64(1)<<bits < span {
		bits++
	}
	return bits
}

// Curve is a Morton encoding with a fixed per-axis bit depth.  The zero value is
// not usable; construct with NewCurve.
type Curve struct {
	bits  uint8
	limit int64 // exclusive upper bound on each coordinate
}

// NewCurve returns a curve addressing coordinates in [0, 2^bits) on each axis.
func NewCurve(bits uint8) (Curve, error) {
	if bits == 0 || bits > MaxBits {
		return Curve{}, dvid.NewError(dvid.OutOfBounds, "morton", "bit depth %d not in [1,%d]", bits, MaxBits)
	}
	return Curve{bits: bits, limit: int64(1) << bits}, nil
}

// Bits returns the per-axis bit depth.
func (c Curve) Bits() uint8 {
	return c.bits
}

// MaxCode returns the largest valid code.
func (c Curve) MaxCode() uint64 {
	return uint64(1)<<(3*uint(c.bits)) - 1
}

// Domain returns the box of all encodable coordinates.
func (c Curve) Domain() dvid.Box3d {
	m := int32(c.limit - 1)
	return dvid.Box3d{Max: dvid.Point3d{m, m, m}}
}

// Encode returns the Morton code of a coordinate, failing with OutOfBounds if any
// axis is negative or needs more than the curve's bit depth.
func (c Curve) Encode(p dvid.Point3d) (uint64, error) {
	for dim := 0; dim < 3; dim++ {
		if p[dim] < 0 || int64(p[dim]) >= c.limit {
			return 0, dvid.NewError(dvid.OutOfBounds, "morton encode", "coordinate %s exceeds %d-bit depth", p, c.bits)
		}
	}
	return interleave(uint32(p[0]), uint32(p[1]), uint32(p[2])), nil
}

// Decode returns the coordinate for a code, failing with OutOfBounds if the code
// uses bits beyond the curve's depth.
func (c Curve) Decode(code uint64) (dvid.Point3d, error) {
	if code > c.MaxCode() {
		return dvid.Point3d{}, dvid.NewError(dvid.OutOfBounds, "morton decode", "code %#x exceeds %d-bit depth", code, c.bits)
	}
	x, y, z := deinterleave(code)
	return dvid.Point3d{int32(x), int32(y), int32(z)}, nil
}

// Clip returns the part of box that the curve can encode.
func (c Curve) Clip(box dvid.Box3d) dvid.Box3d {
	return box.Intersect(c.Domain())
}
