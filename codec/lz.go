package codec

import (
	"encoding/binary"
)

// The native block codec is an LZ77 variant tuned for small buffers.  A
// compressed payload is a series of sequences:
//
//	token        1 byte: high nibble literal count, low nibble match length - 4
//	[litExt]     uvarint, present when the literal nibble is 15
//	literals     literal count bytes
//	distance     uvarint back-reference distance, 1 <= distance <= bytes decoded so far
//	[matchExt]   uvarint, present when the match nibble is 15
//
// The final sequence may stop right after its literals.
const (
	MinMatch  = 4
	MaxWindow = 256 << 10

	hashLog  = 14
	maxChain = 48
	nibble   = 15
)

// LZ is the native hash-chain LZ codec.
type LZ struct{}

func (LZ) Name() string { return "lz" }

func (LZ) Compress(src []byte) ([]byte, error) {
	return Compress(src), nil
}

func (LZ) Decompress(src []byte, rawLen int) ([]byte, error) {
	return Decompress(src, rawLen)
}

// Compress always succeeds.  Incompressible input is returned stored.
func Compress(src []byte) []byte {
	if len(src) < MinMatch+1 {
		return stored(src)
	}
	return frame(src, encodeTokens(make([]byte, 0, len(src)/2), src))
}

// Decompress decodes a buffer produced by Compress, failing with CorruptBlock if
// the token stream is malformed or does not decode to exactly rawLen bytes.
func Decompress(src []byte, rawLen int) ([]byte, error) {
	return unframe("lz", src, rawLen, decodeTokens)
}

func hash4(b []byte) uint32 {
	return (binary.LittleEndian.Uint32(b) * 2654435761) >> (32 - hashLog)
}

func matchLen(src []byte, a, b int) int {
	n := 0
	for b+n < len(src) && src[a+n] == src[b+n] {
		n++
	}
	return n
}

// encodeTokens performs a greedy longest-match parse.  head holds the most recent
// position for each hash and prev chains each position to the previous one with
// the same hash, indexed modulo the window.
func encodeTokens(dst, src []byte) []byte {
	n := len(src)
	window := n
	if window > MaxWindow {
		window = MaxWindow
	}
	head := make([]int32, 1<<hashLog)
	for i := range head {
		head[i] = -1
	}
	prev := make([]int32, window)

	insert := func(pos int) {
		h := hash4(src[pos:])
		prev[pos%window] = head[h]
		head[h] = int32(pos)
	}

	anchor, pos := 0, 0
	for pos+MinMatch <= n {
		bestLen, bestDist := 0, 0
		cand := head[hash4(src[pos:])]
		for depth := 0; cand >= 0 && depth < maxChain; depth++ {
			dist := pos - int(cand)
			if dist >= window {
				break
			}
			if l := matchLen(src, int(cand), pos); l > bestLen {
				bestLen, bestDist = l, dist
			}
			cand = prev[int(cand)%window]
		}
		insert(pos)
		if bestLen < MinMatch {
			pos++
			continue
		}
		dst = appendSequence(dst, src[anchor:pos], bestDist, bestLen)
		end := pos + bestLen
		for pos++; pos < end && pos+MinMatch <= n; pos++ {
			insert(pos)
		}
		pos = end
		anchor = pos
	}
	if anchor < n {
		dst = appendLiterals(dst, src[anchor:])
	}
	return dst
}

func appendSequence(dst, literals []byte, dist, length int) []byte {
	litNib := len(literals)
	if litNib > nibble {
		litNib = nibble
	}
	matchNib := length - MinMatch
	if matchNib > nibble {
		matchNib = nibble
	}
	dst = append(dst, byte(litNib<<4|matchNib))
	if litNib == nibble {
		dst = binary.AppendUvarint(dst, uint64(len(literals)-nibble))
	}
	dst = append(dst, literals...)
	dst = binary.AppendUvarint(dst, uint64(dist))
	if matchNib == nibble {
		dst = binary.AppendUvarint(dst, uint64(length-MinMatch-nibble))
	}
	return dst
}

func appendLiterals(dst, literals []byte) []byte {
	litNib := len(literals)
	if litNib > nibble {
		litNib = nibble
	}
	dst = append(dst, byte(litNib<<4))
	if litNib == nibble {
		dst = binary.AppendUvarint(dst, uint64(len(literals)-nibble))
	}
	return append(dst, literals...)
}

// readLength reads a uvarint extension, refusing values that could not fit in
// the remaining output.
func readLength(src []byte, i, limit int) (int, int, bool) {
	ext, k := binary.Uvarint(src[i:])
	if k <= 0 || ext > uint64(limit) {
		return 0, i, false
	}
	return int(ext), i + k, true
}

func decodeTokens(src []byte, rawLen int) ([]byte, error) {
	dst := make([]byte, 0, rawLen)
	i := 0
	for i < len(src) {
		token := src[i]
		i++

		lit := int(token >> 4)
		if lit == nibble {
			ext, next, ok := readLength(src, i, rawLen)
			if !ok {
				return nil, corrupt("lz", "bad literal length at byte %d", i)
			}
			lit += ext
			i = next
		}
		if lit > len(src)-i || len(dst)+lit > rawLen {
			return nil, corrupt("lz", "literal run of %d overflows block at byte %d", lit, i)
		}
		dst = append(dst, src[i:i+lit]...)
		i += lit
		if i == len(src) {
			break
		}

		dist, next, ok := readLength(src, i, len(dst))
		if !ok || dist == 0 {
			return nil, corrupt("lz", "bad match distance at byte %d", i)
		}
		i = next
		length := int(token&nibble) + MinMatch
		if token&nibble == nibble {
			ext, next, ok := readLength(src, i, rawLen)
			if !ok {
				return nil, corrupt("lz", "bad match length at byte %d", i)
			}
			length += ext
			i = next
		}
		if len(dst)+length > rawLen {
			return nil, corrupt("lz", "match of %d overflows block", length)
		}
		start := len(dst) - dist
		for j := 0; j < length; j++ {
			dst = append(dst, dst[start+j])
		}
	}
	if len(dst) != rawLen {
		return nil, corrupt("lz", "decoded %d bytes, expected %d", len(dst), rawLen)
	}
	return dst, nil
}
