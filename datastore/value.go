package datastore

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
)

// Value is a single voxel: its type and its little-endian element bytes.  Values
// are comparable with ==.
type Value struct {
	typ  format.VoxelType
	data [8]byte
}

// ZeroValue returns the all-zero voxel of a type.
func ZeroValue(t format.VoxelType) Value {
	return Value{typ: t}
}

// ValueFromBytes returns the voxel stored in the first t.Bytes() bytes of b.
func ValueFromBytes(t format.VoxelType, b []byte) Value {
	v := Value{typ: t}
	copy(v.data[:t.Bytes()], b)
	return v
}

func valueError(t format.VoxelType, msg string, args ...interface{}) error {
	return dvid.NewError(dvid.OutOfBounds, "value", "%s: %s", t, fmt.Sprintf(msg, args...))
}

// UintValue returns a single-channel unsigned voxel, failing with OutOfBounds if
// x does not fit the type.
func UintValue(t format.VoxelType, x uint64) (Value, error) {
	if t.Kind() != format.Unsigned || t.Channels() != 1 {
		return Value{}, valueError(t, "not a single-channel unsigned type")
	}
	if w := t.ChannelBytes(); w < 8 && x >= uint64(1)<<(8*w) {
		return Value{}, valueError(t, "%d does not fit", x)
	}
	v := Value{typ: t}
	binary.LittleEndian.PutUint64(v.data[:], x)
	return v, nil
}

// IntValue returns a signed voxel, failing with OutOfBounds if x does not fit.
func IntValue(t format.VoxelType, x int64) (Value, error) {
	if t.Kind() != format.Signed {
		return Value{}, valueError(t, "not a signed type")
	}
	w := t.ChannelBytes()
	if w < 8 {
		limit := int64(1) << (8*w - 1)
		if x < -limit || x >= limit {
			return Value{}, valueError(t, "%d does not fit", x)
		}
	}
	v := Value{typ: t}
	binary.LittleEndian.PutUint64(v.data[:], uint64(x))
	for i := w; i < 8; i++ {
		v.data[i] = 0
	}
	return v, nil
}

// FloatValue returns a floating-point voxel.
func FloatValue(t format.VoxelType, x float64) (Value, error) {
	v := Value{typ: t}
	switch t {
	case format.Float32:
		binary.LittleEndian.PutUint32(v.data[:], math.Float32bits(float32(x)))
	case format.Float64:
		binary.LittleEndian.PutUint64(v.data[:], math.Float64bits(x))
	default:
		return Value{}, valueError(t, "not a float type")
	}
	return v, nil
}

// ChannelsValue returns a voxel of a type with one-byte channels, e.g., RGB8.
func ChannelsValue(t format.VoxelType, channels ...uint8) (Value, error) {
	if t.ChannelBytes() != 1 {
		return Value{}, valueError(t, "channels are not bytes")
	}
	if len(channels) != t.Channels() {
		return Value{}, valueError(t, "got %d channels, expected %d", len(channels), t.Channels())
	}
	v := Value{typ: t}
	copy(v.data[:], channels)
	return v, nil
}

// Type returns the voxel type.
func (v Value) Type() format.VoxelType {
	return v.typ
}

// Bytes returns the little-endian element bytes.
func (v Value) Bytes() []byte {
	return v.data[:v.typ.Bytes()]
}

// Uint returns the value of an unsigned voxel.  For other types it returns the
// element bits zero-extended.
func (v Value) Uint() uint64 {
	return binary.LittleEndian.Uint64(v.data[:])
}

// Int returns the value of a signed or unsigned integer voxel.
func (v Value) Int() int64 {
	if v.typ.Kind() != format.Signed {
		return int64(v.Uint())
	}
	le := binary.LittleEndian
	switch v.typ.ChannelBytes() {
	case 1:
		return int64(int8(v.data[0]))
	case 2:
		return int64(int16(le.Uint16(v.data[:])))
	case 4:
		return int64(int32(le.Uint32(v.data[:])))
	default:
		return int64(le.Uint64(v.data[:]))
	}
}

// Float returns the value of any single-channel voxel as a float64.
func (v Value) Float() float64 {
	switch v.typ {
	case format.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(v.data[:])))
	case format.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(v.data[:]))
	}
	if v.typ.Kind() == format.Signed {
		return float64(v.Int())
	}
	return float64(v.Uint())
}

// Channel returns channel i of a voxel with one-byte channels.
func (v Value) Channel(i int) uint8 {
	return v.data[i]
}

func (v Value) String() string {
	if v.typ.Channels() > 1 {
		parts := make([]string, v.typ.Channels())
		for i := range parts {
			parts[i] = fmt.Sprintf("%d", v.data[i])
		}
		return "(" + strings.Join(parts, ",") + ")"
	}
	switch v.typ.Kind() {
	case format.Float:
		return fmt.Sprintf("%g", v.Float())
	case format.Signed:
		return fmt.Sprintf("%d", v.Int())
	default:
		return fmt.Sprintf("%d", v.Uint())
	}
}

// parseValue converts a decoded TOML value (an integer, a float, or an array of
// channel integers) to a voxel of type t.
func parseValue(t format.VoxelType, raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return ZeroValue(t), nil
	case int64:
		switch t.Kind() {
		case format.Signed:
			return IntValue(t, x)
		case format.Float:
			return FloatValue(t, float64(x))
		}
		if t.Channels() > 1 {
			return Value{}, valueError(t, "expected %d channels", t.Channels())
		}
		if x < 0 {
			return Value{}, valueError(t, "%d is negative", x)
		}
		return UintValue(t, uint64(x))
	case float64:
		if t.Kind() != format.Float {
			return Value{}, valueError(t, "%g is not an integer", x)
		}
		return FloatValue(t, x)
	case []interface{}:
		channels := make([]uint8, len(x))
		for i, c := range x {
			n, ok := c.(int64)
			if !ok || n < 0 || n > math.MaxUint8 {
				return Value{}, valueError(t, "bad channel %v", c)
			}
			channels[i] = uint8(n)
		}
		return ChannelsValue(t, channels...)
	default:
		return Value{}, valueError(t, "cannot use %v (%T)", raw, raw)
	}
}
