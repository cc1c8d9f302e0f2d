/*
	This file handles the closed enumerations stored in a header: the layout of a
	voxel and the compression scheme of a block.
*/

package format

import (
	"fmt"
	"strings"
)

// ElementKind is the numeric interpretation of each voxel channel.
type ElementKind uint8

const (
	Unsigned ElementKind = iota
	Signed
	Float
)

func (k ElementKind) String() string {
	switch k {
	case Unsigned:
		return "unsigned"
	case Signed:
		return "signed"
	case Float:
		return "float"
	default:
		return "unknown kind"
	}
}

// VoxelType identifies the element kind, channel byte width, and channel count of
// every voxel in a dataset.  The zero value is invalid.
type VoxelType uint8

const (
	Uint8 VoxelType = iota + 1
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float32
	Float64
	RGB8
	RGBA8
)

type voxelLayout struct {
	name     string
	kind     ElementKind
	width    int
	channels int
}

var voxelLayouts = map[VoxelType]voxelLayout{
	Uint8:   {"uint8", Unsigned, 1, 1},
	Int8:    {"int8", Signed, 1, 1},
	Uint16:  {"uint16", Unsigned, 2, 1},
	Int16:   {"int16", Signed, 2, 1},
	Uint32:  {"uint32", Unsigned, 4, 1},
	Int32:   {"int32", Signed, 4, 1},
	Uint64:  {"uint64", Unsigned, 8, 1},
	Int64:   {"int64", Signed, 8, 1},
	Float32: {"float32", Float, 4, 1},
	Float64: {"float64", Float, 8, 1},
	RGB8:    {"rgb8", Unsigned, 1, 3},
	RGBA8:   {"rgba8", Unsigned, 1, 4},
}

// Valid returns true for known voxel types.
func (t VoxelType) Valid() bool {
	_, found := voxelLayouts[t]
	return found
}

// Kind returns how each channel is interpreted.
func (t VoxelType) Kind() ElementKind {
	return voxelLayouts[t].kind
}

// ChannelBytes returns the byte width of one channel.
func (t VoxelType) ChannelBytes() int {
	return voxelLayouts[t].width
}

// Channels returns the number of channels per voxel.
func (t VoxelType) Channels() int {
	return voxelLayouts[t].channels
}

// Bytes returns the number of bytes per voxel, or 0 for an invalid type.
func (t VoxelType) Bytes() int {
	l := voxelLayouts[t]
	return l.width * l.channels
}

func (t VoxelType) String() string {
	if l, found := voxelLayouts[t]; found {
		return l.name
	}
	return fmt.Sprintf("voxel type %d", uint8(t))
}

// MarshalText implements encoding.TextMarshaler for configuration files.
func (t VoxelType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown voxel type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for configuration files.
func (t *VoxelType) UnmarshalText(b []byte) error {
	parsed, err := ParseVoxelType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseVoxelType returns the voxel type with the given name, e.g., "uint16".
func ParseVoxelType(s string) (VoxelType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, l := range voxelLayouts {
		if l.name == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown voxel type %q", s)
}

// BlockType identifies the compression scheme applied to every block payload.
type BlockType uint8

const (
	Raw BlockType = iota
	LZ
	Snappy
	LZ4
	Zstd
	Gzip
)

var blockTypeNames = map[BlockType]string{
	Raw:    "raw",
	LZ:     "lz",
	Snappy: "snappy",
	LZ4:    "lz4",
	Zstd:   "zstd",
	Gzip:   "gzip",
}

func (t BlockType) Valid() bool {
	_, found := blockTypeNames[t]
	return found
}

// Compressed returns true if payloads must be decompressed before use.
func (t BlockType) Compressed() bool {
	return t != Raw
}

func (t BlockType) String() string {
	if name, found := blockTypeNames[t]; found {
		return name
	}
	return fmt.Sprintf("block type %d", uint8(t))
}

func (t BlockType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown block type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *BlockType) UnmarshalText(b []byte) error {
	parsed, err := ParseBlockType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseBlockType returns the block type with the given name, e.g., "zstd".
func ParseBlockType(s string) (BlockType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range blockTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown block type %q", s)
}
