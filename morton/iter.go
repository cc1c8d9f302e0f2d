package morton

import (
	"github.com/janelia-flyem/sparsevol/dvid"
)

// validBox returns true if every corner of box is non-negative and fits MaxBits.
func validBox(box dvid.Box3d) bool {
	if box.Empty() {
		return false
	}
	for dim := 0; dim < 3; dim++ {
		if box.Min[dim] < 0 || int64(box.Max[dim]) >= int64(1)<<MaxBits {
			return false
		}
	}
	return true
}

func boxCodes(box dvid.Box3d) (minZ, maxZ uint64) {
	minZ = interleave(uint32(box.Min[0]), uint32(box.Min[1]), uint32(box.Min[2]))
	maxZ = interleave(uint32(box.Max[0]), uint32(box.Max[1]), uint32(box.Max[2]))
	return
}

// inRange compares code axis by axis against the box corner codes.  Masking out
// the other axes preserves the order of a single axis.
func inRange(code, minZ, maxZ uint64) bool {
	for dim := 0; dim < 3; dim++ {
		m := axisMask[dim]
		v := code & m
		if v < minZ&m || v > maxZ&m {
			return false
		}
	}
	return true
}

// InBox returns true if the code's coordinate lies inside the box.
func InBox(box dvid.Box3d, code uint64) bool {
	if !validBox(box) {
		return false
	}
	minZ, maxZ := boxCodes(box)
	return inRange(code, minZ, maxZ)
}

// NextInBox returns the smallest code >= code whose coordinate lies inside box.
// The boolean is false if there is no such code, or if box is empty or has
// corners that cannot be encoded.
//
// When code lies outside the box this computes BIGMIN: walking from the most
// significant bit, wherever the code's bit disagrees with the box corner codes
// the corners are patched (the "load 1000..." and "load 0111..." steps of Tropf
// and Herzog) to narrow the candidate range, so no codes between the corners are
// scanned.
func NextInBox(box dvid.Box3d, code uint64) (uint64, bool) {
	if !validBox(box) {
		return 0, false
	}
	minZ, maxZ := boxCodes(box)
	if code <= minZ {
		return minZ, true
	}
	if code > maxZ {
		return 0, false
	}
	if inRange(code, minZ, maxZ) {
		return code, true
	}

	var bigmin uint64
	var found bool
	for bit := 3*MaxBits - 1; bit >= 0; bit-- {
		mask := uint64(1) << uint(bit)
		lower := axisMask[bit%3] & (mask - 1)

		v := code&mask != 0
		lo := minZ&mask != 0
		hi := maxZ&mask != 0
		switch {
		case !v && !lo && !hi, v && lo && hi:
			continue
		case !v && !lo && hi:
			// Upper half of the range is a candidate; keep searching the lower half.
			bigmin = (minZ &^ lower) | mask
			found = true
			maxZ = (maxZ &^ mask) | lower
		case !v && lo && hi:
			return minZ, true
		case v && !lo && !hi:
			return bigmin, found
		case v && !lo && hi:
			minZ = (minZ &^ lower) | mask
		default:
			// min bit above max bit for one axis cannot occur in a valid box.
			return 0, false
		}
	}
	return bigmin, found
}

// Iterator visits every coordinate of a box in strictly increasing Morton order.
// Iteration is restartable with Reset and a given box always yields the same
// sequence.
//
//	for it := curve.Iterator(box); it.Valid(); it.Next() {
//		code, pt := it.Code(), it.Point()
//	}
type Iterator struct {
	box   dvid.Box3d
	first uint64
	last  uint64
	code  uint64
	valid bool
}

// Iterator returns an iterator over the part of box encodable by the curve.
func (c Curve) Iterator(box dvid.Box3d) *Iterator {
	it := &Iterator{box: c.Clip(box)}
	if validBox(it.box) {
		it.first, it.last = boxCodes(it.box)
	}
	it.Reset()
	return it
}

// Reset restarts iteration at the first code of the box.
func (it *Iterator) Reset() {
	it.valid = validBox(it.box)
	it.code = it.first
}

// Box returns the (clipped) box being iterated.
func (it *Iterator) Box() dvid.Box3d {
	return it.box
}

func (it *Iterator) Valid() bool {
	return it.valid
}

// Code returns the current Morton code.
func (it *Iterator) Code() uint64 {
	return it.code
}

// Point returns the coordinate of the current code.
func (it *Iterator) Point() dvid.Point3d {
	x, y, z := deinterleave(it.code)
	return dvid.Point3d{int32(x), int32(y), int32(z)}
}

// Next advances to the next code inside the box.
func (it *Iterator) Next() {
	if !it.valid {
		return
	}
	if it.code >= it.last {
		it.valid = false
		return
	}
	it.Seek(it.code + 1)
}

// Seek advances to the smallest code inside the box that is >= code.  Seeking
// backwards is a no-op.
func (it *Iterator) Seek(code uint64) {
	if !it.valid || code <= it.code {
		return
	}
	it.code, it.valid = NextInBox(it.box, code)
}
