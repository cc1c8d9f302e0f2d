package datastore

import (
	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/morton"
)

// RegionIterator visits every voxel of a box.  Blocks are visited in increasing
// Morton order and voxels within a block with x fastest, then y, then z.
//
//	it := d.QueryRegion(box)
//	for it.Next() {
//		p, v := it.Point(), it.Value()
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type RegionIterator struct {
	d      *Dataset
	box    dvid.Box3d // voxels, clipped to the extent
	blocks *morton.Iterator
	first  bool

	data   []byte // current block, nil if unpopulated
	buf    []byte
	sub    dvid.Box3d // voxels of the current block inside box
	cur    dvid.Point3d
	inside bool

	err error
}

// QueryRegion returns an iterator over the voxels of box that lie inside the
// extent.
func (d *Dataset) QueryRegion(box dvid.Box3d) *RegionIterator {
	it := &RegionIterator{
		d:   d,
		box: box.Intersect(d.extent),
		buf: make([]byte, d.header.BlockBytes()),
	}
	if err := d.checkOpen("query region"); err != nil {
		it.err = err
		return it
	}
	blocks := it.box.Chunks(d.edge)
	min := d.header.Extent.Min
	rel := dvid.Box3d{Min: blocks.Min.Sub(min), Max: blocks.Max.Sub(min)}
	if it.box.Empty() {
		rel = dvid.EmptyBox3d
	}
	it.blocks = d.file.Curve().Iterator(rel)
	it.first = true
	return it
}

// Reset restarts iteration at the first voxel.
func (it *RegionIterator) Reset() {
	if it.blocks == nil {
		return
	}
	it.blocks.Reset()
	it.first = true
	it.inside = false
	it.err = nil
}

func (it *RegionIterator) loadBlock() bool {
	d := it.d
	coord := dvid.ChunkPoint3d(it.blocks.Point().Add(d.header.Extent.Min))
	data, err := d.block(it.blocks.Code())
	if err != nil {
		it.err = err
		return false
	}
	if data == nil {
		it.data = nil
	} else {
		copy(it.buf, data)
		it.data = it.buf
	}
	it.sub = dvid.Box3d{Min: coord.MinPoint(d.edge), Max: coord.MaxPoint(d.edge)}.Intersect(it.box)
	it.cur = it.sub.Min
	it.inside = true
	return true
}

// Next advances to the next voxel, returning false when iteration is done or
// a block could not be read.
func (it *RegionIterator) Next() bool {
	if it.err != nil || it.blocks == nil {
		return false
	}
	if it.inside {
		// compare before incrementing so a block ending at math.MaxInt32 does not wrap
		switch {
		case it.cur[0] < it.sub.Max[0]:
			it.cur[0]++
			return true
		case it.cur[1] < it.sub.Max[1]:
			it.cur[0] = it.sub.Min[0]
			it.cur[1]++
			return true
		case it.cur[2] < it.sub.Max[2]:
			it.cur[0], it.cur[1] = it.sub.Min[0], it.sub.Min[1]
			it.cur[2]++
			return true
		}
		it.inside = false
		it.blocks.Next()
	} else if !it.first {
		return false
	}
	it.first = false
	if !it.blocks.Valid() {
		return false
	}
	return it.loadBlock()
}

// Point returns the coordinate of the current voxel.
func (it *RegionIterator) Point() dvid.Point3d {
	return it.cur
}

// Value returns the current voxel.
func (it *RegionIterator) Value() Value {
	if it.data == nil {
		return it.d.def
	}
	off := it.d.offset(it.cur.PointInChunk(it.d.edge))
	return ValueFromBytes(it.d.header.VoxelType, it.data[off:off+it.d.voxelBytes])
}

// Err returns the error that stopped iteration, if any.
func (it *RegionIterator) Err() error {
	return it.err
}
