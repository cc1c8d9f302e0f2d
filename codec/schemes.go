package codec

import (
	"bytes"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Snappy compresses blocks with Google's snappy block format.
type Snappy struct{}

func (Snappy) Name() string { return "snappy" }

func (Snappy) Compress(src []byte) ([]byte, error) {
	return frame(src, snappy.Encode(nil, src)), nil
}

func (Snappy) Decompress(src []byte, rawLen int) ([]byte, error) {
	return unframe("snappy", src, rawLen, func(payload []byte, rawLen int) ([]byte, error) {
		n, err := snappy.DecodedLen(payload)
		if err != nil {
			return nil, err
		}
		if n != rawLen {
			return nil, corrupt("snappy", "header says %d bytes, expected %d", n, rawLen)
		}
		return snappy.Decode(make([]byte, rawLen), payload)
	})
}

// LZ4 compresses blocks with the LZ4 block format.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return stored(src), nil
	}
	var c lz4.Compressor
	buf := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := c.CompressBlock(src, buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// incompressible
		return stored(src), nil
	}
	return frame(src, buf[:n]), nil
}

func (LZ4) Decompress(src []byte, rawLen int) ([]byte, error) {
	return unframe("lz4", src, rawLen, func(payload []byte, rawLen int) ([]byte, error) {
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	})
}

var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
)

// Zstd compresses blocks with Zstandard.  The shared encoder and decoder hold no
// state between calls; each block is a complete frame.
type Zstd struct{}

func (Zstd) Name() string { return "zstd" }

func (Zstd) Compress(src []byte) ([]byte, error) {
	enc, err := zstdEncoder()
	if err != nil {
		return nil, err
	}
	return frame(src, enc.EncodeAll(src, nil)), nil
}

func (Zstd) Decompress(src []byte, rawLen int) ([]byte, error) {
	return unframe("zstd", src, rawLen, func(payload []byte, rawLen int) ([]byte, error) {
		dec, err := zstdDecoder()
		if err != nil {
			return nil, err
		}
		return dec.DecodeAll(payload, make([]byte, 0, rawLen))
	})
}

// Gzip compresses blocks with DEFLATE in a gzip wrapper.
type Gzip struct {
	Level int
}

func (Gzip) Name() string { return "gzip" }

func (g Gzip) Compress(src []byte) ([]byte, error) {
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return frame(src, buf.Bytes()), nil
}

func (Gzip) Decompress(src []byte, rawLen int) ([]byte, error) {
	return unframe("gzip", src, rawLen, func(payload []byte, rawLen int) ([]byte, error) {
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		// Read one byte past the expected length so oversized payloads are caught.
		return io.ReadAll(io.LimitReader(zr, int64(rawLen)+1))
	})
}
