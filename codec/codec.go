// Package codec compresses and decompresses the payload of a single block.  Every
// call works on one self-contained buffer: there is no dictionary or state shared
// between blocks, so any block can be decoded without touching the others.
//
// Compressed output starts with a marker byte.  If a scheme cannot shrink the
// input, the output is the stored marker followed by the raw bytes, so
// compression never grows a block by more than one byte.
package codec

import (
	"github.com/janelia-flyem/sparsevol/dvid"
)

const (
	markerStored     byte = 0
	markerCompressed byte = 1
)

// Codec compresses one block's raw bytes.  Decompress must be given the exact
// raw length recorded for the block and fails with CorruptBlock on any mismatch.
type Codec interface {
	Name() string
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte, rawLen int) ([]byte, error)
}

func corrupt(op string, format string, args ...interface{}) error {
	return dvid.NewError(dvid.CorruptBlock, op, format, args...)
}

func stored(src []byte) []byte {
	out := make([]byte, 1+len(src))
	out[0] = markerStored
	copy(out[1:], src)
	return out
}

// frame wraps a scheme's encoded payload, falling back to stored bytes when the
// encoding is no smaller than the input.
func frame(src, encoded []byte) []byte {
	if len(encoded) >= len(src) {
		return stored(src)
	}
	out := make([]byte, 1+len(encoded))
	out[0] = markerCompressed
	copy(out[1:], encoded)
	return out
}

// unframe dispatches on the marker byte and checks the decoded length.
func unframe(name string, src []byte, rawLen int, decode func(payload []byte, rawLen int) ([]byte, error)) ([]byte, error) {
	if rawLen < 0 {
		return nil, corrupt(name, "negative raw length %d", rawLen)
	}
	if len(src) == 0 {
		return nil, corrupt(name, "missing block marker")
	}
	payload := src[1:]
	switch src[0] {
	case markerStored:
		if len(payload) != rawLen {
			return nil, corrupt(name, "stored block has %d bytes, expected %d", len(payload), rawLen)
		}
		out := make([]byte, rawLen)
		copy(out, payload)
		return out, nil
	case markerCompressed:
		out, err := decode(payload, rawLen)
		if err != nil {
			if dvid.KindOf(err) == dvid.CorruptBlock {
				return nil, err
			}
			return nil, dvid.WrapError(dvid.CorruptBlock, name, err)
		}
		if len(out) != rawLen {
			return nil, corrupt(name, "decoded %d bytes, expected %d", len(out), rawLen)
		}
		return out, nil
	default:
		return nil, corrupt(name, "unknown block marker 0x%02x", src[0])
	}
}

// Raw stores blocks as is.
type Raw struct{}

func (Raw) Name() string { return "raw" }

func (Raw) Compress(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (Raw) Decompress(src []byte, rawLen int) ([]byte, error) {
	if len(src) != rawLen {
		return nil, corrupt("raw", "block has %d bytes, expected %d", len(src), rawLen)
	}
	out := make([]byte, rawLen)
	copy(out, src)
	return out, nil
}

