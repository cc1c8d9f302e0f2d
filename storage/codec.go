package storage

import (
	"github.com/janelia-flyem/sparsevol/codec"
	"github.com/janelia-flyem/sparsevol/dvid"
	"github.com/janelia-flyem/sparsevol/format"
)

// CodecFor returns the codec that stores blocks of the given type.
func CodecFor(bt format.BlockType) (codec.Codec, error) {
	switch bt {
	case format.Raw:
		return codec.Raw{}, nil
	case format.LZ:
		return codec.LZ{}, nil
	case format.Snappy:
		return codec.Snappy{}, nil
	case format.LZ4:
		return codec.LZ4{}, nil
	case format.Zstd:
		return codec.Zstd{}, nil
	case format.Gzip:
		return codec.Gzip{}, nil
	default:
		return nil, dvid.NewError(dvid.UnsupportedVersion, "codec", "no codec for %s", bt)
	}
}
