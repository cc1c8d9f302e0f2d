package storage

import (
	"sort"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
	"github.com/janelia-flyem/sparsevol/morton"
)

// RangeIterator visits the stored blocks inside a box of block coordinates in
// increasing Morton order.  It merges a Morton iterator over the box with the
// sorted directory: when the directory is ahead the box iterator jumps forward
// with NextInBox, and when the box iterator is ahead the directory is searched
// forward, so neither absent codes nor blocks outside the box are read.
//
//	r := f.ReadRange(box)
//	for r.Next() {
//		coord, data := r.Coord(), r.Bytes()
//	}
//	if err := r.Err(); err != nil {
//		...
//	}
type RangeIterator struct {
	f      *File
	it     *morton.Iterator
	dir    format.Directory
	i      int
	decode bool

	entry format.DirEntry
	data  []byte
	err   error
}

// ReadRange returns an iterator over the decoded blocks inside a box of block
// coordinates.
func (f *File) ReadRange(box dvid.Box3d) *RangeIterator {
	return f.newRangeIterator(box, true)
}

// ScanRange is like ReadRange but only visits directory entries without reading
// their payload.
func (f *File) ScanRange(box dvid.Box3d) *RangeIterator {
	return f.newRangeIterator(box, false)
}

func (f *File) newRangeIterator(box dvid.Box3d, decode bool) *RangeIterator {
	ext := f.header.Extent
	box = box.Intersect(ext)
	rel := dvid.EmptyBox3d
	if !box.Empty() {
		rel = dvid.Box3d{Min: box.Min.Sub(ext.Min), Max: box.Max.Sub(ext.Min)}
	}
	dir := f.dir
	if !f.sorted {
		dir = make(format.Directory, len(f.dir))
		copy(dir, f.dir)
		sort.Sort(dir)
	}
	return &RangeIterator{
		f:      f,
		it:     f.curve.Iterator(rel),
		dir:    dir,
		decode: decode,
	}
}

// Next advances to the next stored block in the box.  It returns false when the
// box is exhausted or a block fails to decode; check Err afterwards.
func (r *RangeIterator) Next() bool {
	r.data = nil
	if r.err != nil {
		return false
	}
	for r.it.Valid() && r.i < len(r.dir) {
		code := r.it.Code()
		e := r.dir[r.i]
		switch {
		case e.Code < code:
			r.i += r.dir[r.i:].Search(code)
		case e.Code > code:
			r.it.Seek(e.Code)
		default:
			r.entry = e
			r.i++
			r.it.Next()
			if r.decode {
				if r.data, r.err = r.f.readEntry(e); r.err != nil {
					return false
				}
			}
			return true
		}
	}
	return false
}

// Reset restarts iteration from the start of the box.
func (r *RangeIterator) Reset() {
	r.it.Reset()
	r.i = 0
	r.err = nil
	r.data = nil
}

// Entry returns the directory entry of the current block.
func (r *RangeIterator) Entry() format.DirEntry {
	return r.entry
}

// Code returns the Morton code of the current block.
func (r *RangeIterator) Code() uint64 {
	return r.entry.Code
}

// Coord returns the block coordinate of the current block.
func (r *RangeIterator) Coord() dvid.ChunkPoint3d {
	rel, _ := r.f.curve.Decode(r.entry.Code)
	return dvid.ChunkPoint3d(rel.Add(r.f.header.Extent.Min))
}

// Bytes returns the decoded block.  It is nil for a ScanRange iterator.
func (r *RangeIterator) Bytes() []byte {
	return r.data
}

// Err returns the first decoding error encountered.
func (r *RangeIterator) Err() error {
	return r.err
}
