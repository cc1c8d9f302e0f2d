package format

import (
	"encoding/binary"
	"errors"
	"io"
	"sort"

	"github.com/janelia-flyem/sparsevol/dvid"
)

// DirEntrySize is the byte size of an encoded directory record.
const DirEntrySize = 28

// maxDirEntries bounds the number of records accepted from a header.  Sources
// that report their size are also checked against it before allocating.
const maxDirEntries = 1 << 32

// dirReadEntries is the number of records fetched per read, so a corrupt count
// on a source of unknown size fails at the end of the data instead of
// allocating the whole claimed directory up front.
const dirReadEntries = 1 << 16

// DirEntry locates one block's stored bytes.  Checksum is the CRC32 (IEEE) of
// the raw, decompressed block.
type DirEntry struct {
	Code      uint64
	Offset    uint64
	StoredLen uint32
	RawLen    uint32
	Checksum  uint32
}

// End returns the offset just past the stored bytes.
func (e DirEntry) End() uint64 {
	return e.Offset + uint64(e.StoredLen)
}

// Directory is the block index, sorted ascending and unique by code once
// finalized.
type Directory []DirEntry

func (d Directory) Len() int           { return len(d) }
func (d Directory) Less(i, j int) bool { return d[i].Code < d[j].Code }
func (d Directory) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }

// Sorted returns true if codes are strictly increasing.
func (d Directory) Sorted() bool {
	for i := 1; i < len(d); i++ {
		if d[i].Code <= d[i-1].Code {
			return false
		}
	}
	return true
}

// Search returns the index of the first entry with a code >= code, or Len() if
// there is none.  The directory must be sorted.
func (d Directory) Search(code uint64) int {
	return sort.Search(len(d), func(i int) bool { return d[i].Code >= code })
}

// Find returns the entry for a code.
func (d Directory) Find(code uint64) (DirEntry, bool) {
	i := d.Search(code)
	if i < len(d) && d[i].Code == code {
		return d[i], true
	}
	return DirEntry{}, false
}

// StoredBytes returns the total size of all block payloads.
func (d Directory) StoredBytes() uint64 {
	var total uint64
	for _, e := range d {
		total += uint64(e.StoredLen)
	}
	return total
}

// RawBytes returns the total size of all decompressed blocks.
func (d Directory) RawBytes() uint64 {
	var total uint64
	for _, e := range d {
		total += uint64(e.RawLen)
	}
	return total
}

// Validate checks that entries are sorted and unique, that every payload lies
// after the header and outside the directory itself, and that every raw length
// matches the header's block size.
func (d Directory) Validate(h *Header) error {
	if !d.Sorted() {
		return dvid.NewError(dvid.CorruptDirectory, "directory", "entries not sorted and unique")
	}
	dirStart := h.DirOffset
	dirEnd := h.DirOffset + uint64(len(d))*DirEntrySize
	rawLen := uint32(h.BlockBytes())
	for _, e := range d {
		if e.Offset < HeaderSize || e.End() < e.Offset {
			return dvid.NewError(dvid.CorruptDirectory, "directory", "block %#x has bad offset %d", e.Code, e.Offset)
		}
		if e.Offset < dirEnd && e.End() > dirStart {
			return dvid.NewError(dvid.CorruptDirectory, "directory", "block %#x overlaps directory", e.Code)
		}
		if e.RawLen != rawLen {
			return dvid.NewError(dvid.CorruptDirectory, "directory", "block %#x has raw length %d, expected %d", e.Code, e.RawLen, rawLen)
		}
	}
	return nil
}

// MarshalBinary encodes the entries as consecutive little-endian records.
func (d Directory) MarshalBinary() ([]byte, error) {
	buf := make([]byte, len(d)*DirEntrySize)
	le := binary.LittleEndian
	for i, e := range d {
		b := buf[i*DirEntrySize:]
		le.PutUint64(b[0:], e.Code)
		le.PutUint64(b[8:], e.Offset)
		le.PutUint32(b[16:], e.StoredLen)
		le.PutUint32(b[20:], e.RawLen)
		le.PutUint32(b[24:], e.Checksum)
	}
	return buf, nil
}

// UnmarshalBinary decodes consecutive records.  It does not validate ordering.
func (d *Directory) UnmarshalBinary(buf []byte) error {
	if len(buf)%DirEntrySize != 0 {
		return dvid.NewError(dvid.CorruptDirectory, "directory", "%d bytes is not a whole number of records", len(buf))
	}
	le := binary.LittleEndian
	entries := make(Directory, len(buf)/DirEntrySize)
	for i := range entries {
		b := buf[i*DirEntrySize:]
		entries[i] = DirEntry{
			Code:      le.Uint64(b[0:]),
			Offset:    le.Uint64(b[8:]),
			StoredLen: le.Uint32(b[16:]),
			RawLen:    le.Uint32(b[20:]),
			Checksum:  le.Uint32(b[24:]),
		}
	}
	*d = entries
	return nil
}

// ReadDirectory reads and validates the directory a finalized header points to.
func ReadDirectory(r io.ReaderAt, h *Header) (Directory, error) {
	if !h.Finalized() {
		return nil, dvid.NewError(dvid.CorruptDirectory, "directory", "file was not finalized")
	}
	if h.DirCount > maxDirEntries {
		return nil, dvid.NewError(dvid.CorruptDirectory, "directory", "implausible entry count %d", h.DirCount)
	}
	if h.DirCount == 0 {
		return Directory{}, nil
	}
	if h.DirOffset < HeaderSize {
		return nil, dvid.NewError(dvid.CorruptDirectory, "directory", "offset %d inside header", h.DirOffset)
	}
	if sized, ok := r.(interface{ Size() int64 }); ok {
		if end := h.DirOffset + h.DirCount*DirEntrySize; end > uint64(sized.Size()) {
			return nil, dvid.NewError(dvid.CorruptDirectory, "directory", "ends at %d past end of %d-byte file", end, sized.Size())
		}
	}
	total := h.DirCount * DirEntrySize
	chunk := make([]byte, min(total, dirReadEntries*DirEntrySize))
	buf := make([]byte, 0, len(chunk))
	for off := uint64(0); off < total; {
		want := min(total-off, uint64(len(chunk)))
		n, err := r.ReadAt(chunk[:want], int64(h.DirOffset+off))
		buf = append(buf, chunk[:n]...)
		if uint64(n) < want {
			if err == nil || errors.Is(err, io.EOF) {
				return nil, dvid.NewError(dvid.CorruptDirectory, "directory", "truncated: read %d of %d bytes", len(buf), total)
			}
			return nil, dvid.IOErr("read directory", err)
		}
		off += want
	}
	var d Directory
	if err := d.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	if err := d.Validate(h); err != nil {
		return nil, err
	}
	return d, nil
}
