package storage

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sort"

	humanize "github.com/dustin/go-humanize"

	"github.com/janelia-flyem/sparsevol/codec"
	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
	"github.com/janelia-flyem/sparsevol/morton"
)

// File is a container opened either for reading a finalized file or for writing
// a new one.  A File is not safe for concurrent use, but any number of read-mode
// Files may be opened on the same finalized bytes.
type File struct {
	name   string
	header format.Header
	curve  morton.Curve
	codec  codec.Codec

	dir    format.Directory
	index  map[uint64]int // write mode: code -> position in dir
	sorted bool

	reader io.ReaderAt // nil if a write target cannot be read back
	closer io.Closer
	dst    Target // nil in read mode
	pos    uint64 // next payload offset in write mode

	finalized bool
	closed    bool
}

func newFile(name string, h format.Header) (*File, error) {
	curve, err := h.Curve()
	if err != nil {
		return nil, err
	}
	c, err := CodecFor(h.BlockType)
	if err != nil {
		return nil, err
	}
	return &File{name: name, header: h, curve: curve, codec: c, sorted: true}, nil
}

// Open reads the header and directory of a finalized container.  The File takes
// ownership of src and closes it if Open fails.
func Open(src Source) (f *File, err error) {
	defer func() {
		if err != nil {
			if cerr := src.Close(); cerr != nil {
				dvid.Errorf("Error closing %s after failed open: %v\n", describe(src), cerr)
			}
		}
	}()
	timedLog := dvid.NewTimeLog()
	name := describe(src)
	h, err := format.ReadHeader(src)
	if err != nil {
		dvid.Errorf("Unable to read header of %s: %v\n", name, err)
		return nil, err
	}
	dir, err := format.ReadDirectory(src, h)
	if err != nil {
		dvid.Errorf("Unable to read directory of %s: %v\n", name, err)
		return nil, err
	}
	if f, err = newFile(name, *h); err != nil {
		return nil, err
	}
	f.dir = dir
	f.reader = src
	f.closer = src
	f.finalized = true
	timedLog.Debugf("Opened %s: %s, %d blocks", name, h, len(dir))
	return f, nil
}

// Create writes a header placeholder to dst and returns a File in write mode.
// Blocks are appended with WriteBlock and the file becomes readable only after
// Finalize.  The File takes ownership of dst and closes it if Create fails.
func Create(dst Target, h format.Header) (f *File, err error) {
	defer func() {
		if err != nil {
			if cerr := dst.Close(); cerr != nil {
				dvid.Errorf("Error closing %s after failed create: %v\n", describe(dst), cerr)
			}
		}
	}()
	if h.Version == 0 {
		h.Version = format.EncodeVersion(format.VersionMajor, format.VersionMinor)
	}
	if h.Transform == (dvid.Affine{}) {
		h.Transform = dvid.Identity()
	}
	h.Flags &^= format.FlagFinalized
	h.DirOffset, h.DirCount = 0, 0
	if err := h.Validate(); err != nil {
		return nil, err
	}
	buf, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return nil, dvid.IOErr("create", err)
	}
	if err := writeFull(dst, buf); err != nil {
		return nil, dvid.IOErr("create", err)
	}
	if f, err = newFile(describe(dst), h); err != nil {
		return nil, err
	}
	f.dst = dst
	f.closer = dst
	f.pos = format.HeaderSize
	f.index = make(map[uint64]int)
	if r, ok := dst.(io.ReaderAt); ok {
		f.reader = r
	}
	dvid.Debugf("Created %s: %s\n", f.name, &h)
	return f, nil
}

func writeFull(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	return err
}

// Name describes the underlying stream.
func (f *File) Name() string {
	return f.name
}

// Header returns a copy of the header.
func (f *File) Header() format.Header {
	return f.header
}

// Curve returns the Morton curve used for block codes.
func (f *File) Curve() morton.Curve {
	return f.curve
}

// Finalized returns true once the directory has been written.
func (f *File) Finalized() bool {
	return f.finalized
}

// Writable returns true if blocks may still be written.
func (f *File) Writable() bool {
	return f.dst != nil && !f.finalized && !f.closed
}

// Len returns the number of blocks in the directory.
func (f *File) Len() int {
	return len(f.dir)
}

// Code returns the Morton code of a block coordinate, failing with OutOfBounds if
// the block lies outside the extent.  Codes are relative to the extent minimum.
func (f *File) Code(coord dvid.ChunkPoint3d) (uint64, error) {
	p := coord.Point()
	if !f.header.Extent.Contains(p) {
		return 0, dvid.NewError(dvid.OutOfBounds, "block code", "block %s outside extent %s", coord, f.header.Extent)
	}
	return f.curve.Encode(p.Sub(f.header.Extent.Min))
}

// Coord returns the block coordinate of a Morton code.
func (f *File) Coord(code uint64) (dvid.ChunkPoint3d, error) {
	rel, err := f.curve.Decode(code)
	if err != nil {
		return dvid.ChunkPoint3d{}, err
	}
	p := rel.Add(f.header.Extent.Min)
	if !f.header.Extent.Contains(p) {
		return dvid.ChunkPoint3d{}, dvid.NewError(dvid.OutOfBounds, "block coord", "code %#x maps outside extent %s", code, f.header.Extent)
	}
	return dvid.ChunkPoint3d(p), nil
}

func (f *File) lookup(code uint64) (format.DirEntry, bool) {
	if f.index != nil {
		i, found := f.index[code]
		if !found {
			return format.DirEntry{}, false
		}
		return f.dir[i], true
	}
	return f.dir.Find(code)
}

// Has returns true if the block with the given code has been stored.
func (f *File) Has(code uint64) bool {
	_, found := f.lookup(code)
	return found
}

// Entries returns a copy of the directory sorted by code.
func (f *File) Entries() format.Directory {
	entries := make(format.Directory, len(f.dir))
	copy(entries, f.dir)
	if !f.sorted {
		sort.Sort(entries)
	}
	return entries
}

// ReadBlock returns the raw bytes of the block at a block coordinate.
func (f *File) ReadBlock(coord dvid.ChunkPoint3d) ([]byte, error) {
	code, err := f.Code(coord)
	if err != nil {
		return nil, err
	}
	return f.ReadBlockCode(code)
}

// ReadBlockCode returns the raw bytes of a block, failing with NotFound if it was
// never stored, CorruptBlock if it cannot be decoded, or ChecksumMismatch if the
// decoded bytes do not match the recorded checksum.
func (f *File) ReadBlockCode(code uint64) ([]byte, error) {
	if f.closed {
		return nil, dvid.NewError(dvid.IOFailure, "read block", "%s is closed", f.name)
	}
	e, found := f.lookup(code)
	if !found {
		return nil, dvid.NewError(dvid.NotFound, "read block", "no block with code %#x", code)
	}
	return f.readEntry(e)
}

func (f *File) readEntry(e format.DirEntry) ([]byte, error) {
	if f.reader == nil {
		return nil, dvid.NewError(dvid.IOFailure, "read block", "%s cannot be read back", f.name)
	}
	stored := make([]byte, e.StoredLen)
	n, err := f.reader.ReadAt(stored, int64(e.Offset))
	if n < len(stored) {
		if err == nil || errors.Is(err, io.EOF) {
			err = dvid.NewError(dvid.CorruptBlock, "read block", "block %#x truncated: %d of %d bytes", e.Code, n, len(stored))
			dvid.Errorf("%s: %v\n", f.name, err)
			return nil, err
		}
		return nil, dvid.IOErr("read block", err)
	}
	raw, err := f.codec.Decompress(stored, int(e.RawLen))
	if err != nil {
		dvid.Errorf("%s: block %#x: %v\n", f.name, e.Code, err)
		return nil, err
	}
	if sum := crc32.ChecksumIEEE(raw); sum != e.Checksum {
		err := dvid.NewError(dvid.ChecksumMismatch, "read block", "block %#x has checksum %08x, expected %08x", e.Code, sum, e.Checksum)
		dvid.Errorf("%s: %v\n", f.name, err)
		return nil, err
	}
	return raw, nil
}

func (f *File) writable(op string) error {
	switch {
	case f.closed:
		return dvid.NewError(dvid.IOFailure, op, "%s is closed", f.name)
	case f.dst == nil:
		return dvid.NewError(dvid.ReadOnly, op, "%s was opened for reading", f.name)
	case f.finalized:
		return dvid.NewError(dvid.Finalized, op, "%s", f.name)
	}
	return nil
}

// WriteBlock compresses and appends one block.  raw must hold exactly one block
// of voxels.  Writing the same coordinate twice fails with DuplicateBlock.
// Blocks may be written in any order, but increasing Morton order avoids a sort
// at Finalize.
func (f *File) WriteBlock(coord dvid.ChunkPoint3d, raw []byte) error {
	if err := f.writable("write block"); err != nil {
		return err
	}
	if len(raw) != f.header.BlockBytes() {
		return dvid.NewError(dvid.OutOfBounds, "write block", "block has %d bytes, expected %d", len(raw), f.header.BlockBytes())
	}
	code, err := f.Code(coord)
	if err != nil {
		return err
	}
	if _, found := f.index[code]; found {
		return dvid.NewError(dvid.DuplicateBlock, "write block", "block %s already written", coord)
	}
	stored, err := f.codec.Compress(raw)
	if err != nil {
		return dvid.WrapError(dvid.CorruptBlock, "write block", err)
	}
	if err := f.appendBytes(stored); err != nil {
		return dvid.IOErr("write block", err)
	}
	entry := format.DirEntry{
		Code:      code,
		Offset:    f.pos,
		StoredLen: uint32(len(stored)),
		RawLen:    uint32(len(raw)),
		Checksum:  crc32.ChecksumIEEE(raw),
	}
	if n := len(f.dir); n > 0 && f.dir[n-1].Code > code {
		f.sorted = false
	}
	f.index[code] = len(f.dir)
	f.dir = append(f.dir, entry)
	f.pos += uint64(len(stored))
	dvid.Debugf("Wrote block %s (code %#x) to %s: %d -> %d bytes\n", coord, code, f.name, len(raw), len(stored))
	return nil
}

// appendBytes writes at the end of the payload regardless of where the target is
// positioned, so a failed header patch cannot redirect later writes.  On failure
// the target is rewound so a later write overwrites any partial bytes.
func (f *File) appendBytes(b []byte) error {
	if _, err := f.dst.Seek(int64(f.pos), io.SeekStart); err != nil {
		return err
	}
	if err := writeFull(f.dst, b); err != nil {
		if _, serr := f.dst.Seek(int64(f.pos), io.SeekStart); serr != nil {
			dvid.Errorf("Unable to rewind %s after failed write: %v\n", f.name, serr)
		}
		return err
	}
	return nil
}

// Finalize sorts the directory if needed, writes it after the payload, and
// patches the header with its offset, count, and the finalized flag.  Until
// Finalize succeeds the file fails to open.
func (f *File) Finalize() error {
	if err := f.writable("finalize"); err != nil {
		return err
	}
	timedLog := dvid.NewTimeLog()
	if !f.sorted {
		dvid.Debugf("Sorting %d directory entries of %s written out of order\n", len(f.dir), f.name)
		sort.Sort(f.dir)
		for i, e := range f.dir {
			f.index[e.Code] = i
		}
		f.sorted = true
	}
	buf, err := f.dir.MarshalBinary()
	if err != nil {
		return err
	}
	if err := f.appendBytes(buf); err != nil {
		return dvid.IOErr("finalize", err)
	}
	h := f.header
	h.DirOffset = f.pos
	h.DirCount = uint64(len(f.dir))
	h.Flags |= format.FlagFinalized
	hbuf, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := f.dst.Seek(0, io.SeekStart); err != nil {
		return dvid.IOErr("finalize", err)
	}
	if err := writeFull(f.dst, hbuf); err != nil {
		return dvid.IOErr("finalize", err)
	}
	if _, err := f.dst.Seek(0, io.SeekEnd); err != nil {
		return dvid.IOErr("finalize", err)
	}
	if s, ok := f.dst.(syncer); ok {
		if err := s.Sync(); err != nil {
			return dvid.IOErr("finalize", err)
		}
	}
	if c, ok := f.dst.(Committer); ok {
		if err := c.Commit(); err != nil {
			return dvid.IOErr("finalize", err)
		}
	}
	f.header = h
	f.pos += uint64(len(buf))
	f.index = nil
	f.finalized = true
	timedLog.Infof("Finalized %s: %s, %s total", f.name, f.Stats(), humanize.Bytes(f.pos))
	return nil
}

// Close releases the underlying stream.  Closing a write-mode File that was not
// finalized leaves a file that fails to open.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.dst != nil && !f.finalized {
		dvid.Warningf("Closing %s without finalizing; its %d blocks are unreadable\n", f.name, len(f.dir))
	}
	if err := f.closer.Close(); err != nil {
		return dvid.IOErr("close", err)
	}
	return nil
}

// Verify decodes every block and checks its checksum, returning the number of
// blocks verified before the first failure.
func (f *File) Verify() (int, error) {
	timedLog := dvid.NewTimeLog()
	for i, e := range f.Entries() {
		if _, err := f.readEntry(e); err != nil {
			return i, err
		}
	}
	timedLog.Infof("Verified %d blocks of %s", len(f.dir), f.name)
	return len(f.dir), nil
}

// Stats summarizes the blocks stored in a File.
type Stats struct {
	Blocks      int
	RawBytes    uint64
	StoredBytes uint64
}

// Ratio returns raw bytes per stored byte, or 0 if nothing is stored.
func (s Stats) Ratio() float64 {
	if s.StoredBytes == 0 {
		return 0
	}
	return float64(s.RawBytes) / float64(s.StoredBytes)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d blocks, %s raw, %s stored (%.2fx)", s.Blocks,
		humanize.Bytes(s.RawBytes), humanize.Bytes(s.StoredBytes), s.Ratio())
}

// Stats returns block counts and sizes.
func (f *File) Stats() Stats {
	return Stats{
		Blocks:      len(f.dir),
		RawBytes:    f.dir.RawBytes(),
		StoredBytes: f.dir.StoredBytes(),
	}
}
