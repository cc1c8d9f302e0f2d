package format

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/blang/semver"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/morton"
)

const (
	// HeaderSize is the fixed byte size of an encoded header.
	HeaderSize = 120

	// Supported format version.  Readers accept any minor version of the
	// supported major version.
	VersionMajor = 1
	VersionMinor = 0

	MinBlockEdge = 4
	MaxBlockEdge = 256
)

// Magic identifies a sparse voxel container.
var Magic = [4]byte{'S', 'V', 'O', 'X'}

// Flags is the header's reserved flag word.  The low 16 bits are compatible
// flags that older readers may ignore.  The high 16 bits are required flags a
// reader must understand to open the file.
type Flags uint32

const (
	// FlagFinalized is set once the directory has been written and the header
	// patched.  A file without it was never completely written.
	FlagFinalized Flags = 1 << 0

	compatibleFlags Flags = 0x0000FFFF
	requiredFlags   Flags = 0xFFFF0000

	// required flags understood by this version
	knownRequired Flags = 0
)

// Has returns true if all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Header is the fixed-size preamble of a container.  Extent is given in block
// coordinates with inclusive corners.  Transform maps voxel coordinates to
// world space.
type Header struct {
	Version   uint16
	VoxelType VoxelType
	BlockType BlockType
	BlockEdge uint32
	Extent    dvid.Box3d
	Transform dvid.Affine
	Flags     Flags

	DirOffset uint64
	DirCount  uint64
}

// NewHeader returns a validated header at the current format version with an
// identity transform.
func NewHeader(vt VoxelType, bt BlockType, edge uint32, extent dvid.Box3d) (*Header, error) {
	h := &Header{
		Version:   EncodeVersion(VersionMajor, VersionMinor),
		VoxelType: vt,
		BlockType: bt,
		BlockEdge: edge,
		Extent:    extent,
		Transform: dvid.Identity(),
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// EncodeVersion packs a major and minor version into the on-disk u16.
func EncodeVersion(major, minor uint8) uint16 {
	return uint16(major)<<8 | uint16(minor)
}

// SemVer returns the header version as a semantic version.
func (h *Header) SemVer() semver.Version {
	return semver.Version{Major: uint64(h.Version >> 8), Minor: uint64(h.Version & 0xFF)}
}

// SupportedVersion is the newest version this package writes.
func SupportedVersion() semver.Version {
	return semver.Version{Major: VersionMajor, Minor: VersionMinor}
}

// CheckVersion fails with UnsupportedVersion unless v shares the supported major
// version.  Newer minor versions are accepted.
func CheckVersion(v semver.Version) error {
	if v.Major != VersionMajor {
		return dvid.NewError(dvid.UnsupportedVersion, "header", "file version %s, supported %s", v, SupportedVersion())
	}
	return nil
}

// ValidBlockEdge fails with InvalidBlockEdge unless edge is a power of two in
// [MinBlockEdge, MaxBlockEdge].
func ValidBlockEdge(edge uint32) error {
	if edge < MinBlockEdge || edge > MaxBlockEdge || edge&(edge-1) != 0 {
		return dvid.NewError(dvid.InvalidBlockEdge, "header", "block edge %d must be a power of two in [%d,%d]", edge, MinBlockEdge, MaxBlockEdge)
	}
	return nil
}

// Validate checks every field that does not depend on the rest of the file.
func (h *Header) Validate() error {
	if err := CheckVersion(h.SemVer()); err != nil {
		return err
	}
	if unknown := h.Flags & requiredFlags &^ knownRequired; unknown != 0 {
		return dvid.NewError(dvid.UnsupportedVersion, "header", "unknown required flags %#08x", uint32(unknown))
	}
	if !h.VoxelType.Valid() {
		return dvid.NewError(dvid.UnsupportedVersion, "header", "unknown voxel type %d", uint8(h.VoxelType))
	}
	if !h.BlockType.Valid() {
		return dvid.NewError(dvid.UnsupportedVersion, "header", "unknown block type %d", uint8(h.BlockType))
	}
	if err := ValidBlockEdge(h.BlockEdge); err != nil {
		return err
	}
	if h.Extent.Empty() {
		return dvid.NewError(dvid.OutOfBounds, "header", "empty extent %s", h.Extent)
	}
	for dim := 0; dim < 3; dim++ {
		span := int64(h.Extent.Max[dim]) - int64(h.Extent.Min[dim]) + 1
		if span > int64(1)<<morton.MaxBits {
			return dvid.NewError(dvid.OutOfBounds, "header", "extent %s spans more than 2^%d blocks", h.Extent, morton.MaxBits)
		}
		lo := int64(h.Extent.Min[dim]) * int64(h.BlockEdge)
		hi := (int64(h.Extent.Max[dim])+1)*int64(h.BlockEdge) - 1
		if lo < math.MinInt32 || hi > math.MaxInt32 {
			return dvid.NewError(dvid.OutOfBounds, "header", "extent %s overflows voxel coordinates", h.Extent)
		}
	}
	return nil
}

// Finalized returns true if the file was completely written.
func (h *Header) Finalized() bool {
	return h.Flags.Has(FlagFinalized)
}

// BlockVoxels returns the number of voxels in a block.
func (h *Header) BlockVoxels() int {
	e := int(h.BlockEdge)
	return e * e * e
}

// BlockBytes returns the raw byte size of a block.
func (h *Header) BlockBytes() int {
	return h.BlockVoxels() * h.VoxelType.Bytes()
}

// VoxelExtent returns the voxel box covered by the extent.
func (h *Header) VoxelExtent() dvid.Box3d {
	return h.Extent.Voxels(int32(h.BlockEdge))
}

// Curve returns the Morton curve for block coordinates relative to the extent
// minimum.  Each axis gets enough bits to span the largest extent axis.
func (h *Header) Curve() (morton.Curve, error) {
	size := h.Extent.Size()
	span := int64(size[0])
	for dim := 1; dim < 3; dim++ {
		if int64(size[dim]) > span {
			span = int64(size[dim])
		}
	}
	return morton.NewCurve(morton.BitsFor(span))
}

func (h *Header) String() string {
	return fmt.Sprintf("v%s %s voxels, %s blocks of edge %d, extent %s", h.SemVer(), h.VoxelType, h.BlockType, h.BlockEdge, h.Extent)
}

// MarshalBinary encodes the header into HeaderSize little-endian bytes.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	le := binary.LittleEndian
	le.PutUint16(buf[4:], h.Version)
	buf[6] = byte(h.VoxelType)
	buf[7] = byte(h.BlockType)
	le.PutUint32(buf[8:], h.BlockEdge)
	pos := 12
	for _, p := range []dvid.Point3d{h.Extent.Min, h.Extent.Max} {
		for dim := 0; dim < 3; dim++ {
			le.PutUint32(buf[pos:], uint32(p[dim]))
			pos += 4
		}
	}
	for _, f := range h.Transform.Float32() {
		le.PutUint32(buf[pos:], math.Float32bits(f))
		pos += 4
	}
	le.PutUint32(buf[pos:], uint32(h.Flags))
	le.PutUint64(buf[pos+4:], h.DirOffset)
	le.PutUint64(buf[pos+12:], h.DirCount)
	return buf, nil
}

// UnmarshalBinary decodes and validates a header.  The magic is checked first,
// then the version, so a foreign file fails with BadMagic and a newer major
// version fails with UnsupportedVersion before any other field is trusted.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < len(Magic) || !bytes.Equal(buf[:4], Magic[:]) {
		return dvid.NewError(dvid.BadMagic, "header", "not a sparse voxel container")
	}
	if len(buf) < HeaderSize {
		return dvid.NewError(dvid.CorruptDirectory, "header", "truncated header of %d bytes", len(buf))
	}
	le := binary.LittleEndian
	var decoded Header
	decoded.Version = le.Uint16(buf[4:])
	if err := CheckVersion(decoded.SemVer()); err != nil {
		return err
	}
	decoded.VoxelType = VoxelType(buf[6])
	decoded.BlockType = BlockType(buf[7])
	decoded.BlockEdge = le.Uint32(buf[8:])
	pos := 12
	for _, p := range []*dvid.Point3d{&decoded.Extent.Min, &decoded.Extent.Max} {
		for dim := 0; dim < 3; dim++ {
			p[dim] = int32(le.Uint32(buf[pos:]))
			pos += 4
		}
	}
	var f [16]float32
	for i := range f {
		f[i] = math.Float32frombits(le.Uint32(buf[pos:]))
		pos += 4
	}
	decoded.Transform = dvid.AffineFromFloat32(f)
	decoded.Flags = Flags(le.Uint32(buf[pos:]))
	decoded.DirOffset = le.Uint64(buf[pos+4:])
	decoded.DirCount = le.Uint64(buf[pos+12:])
	if err := decoded.Validate(); err != nil {
		return err
	}
	*h = decoded
	return nil
}

// ReadHeader reads and validates the header at the start of r.
func ReadHeader(r io.ReaderAt) (*Header, error) {
	buf := make([]byte, HeaderSize)
	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, dvid.IOErr("read header", err)
	}
	h := new(Header)
	if err := h.UnmarshalBinary(buf[:n]); err != nil {
		return nil, err
	}
	return h, nil
}
