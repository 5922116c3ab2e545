package wire

import (
	"encoding/binary"

	"github.com/quic-go/quic-go/quicvarint"
)

// MaxVarInt is the largest value representable in a quic-style varint
// (2^62 - 1); the top two bits of the first byte are reserved for the
// length class.
const MaxVarInt = uint64(1)<<62 - 1

// AppendVarInt appends the canonical (minimum-width) varint encoding of v
// to dst. It panics if v exceeds MaxVarInt — callers that accept values
// from untrusted input must check EncodeVarInt instead.
func AppendVarInt(dst []byte, v uint64) []byte {
	if v > MaxVarInt {
		panic(ErrValueTooLarge)
	}
	return quicvarint.Append(dst, v)
}

// EncodeVarInt appends the canonical varint encoding of v to dst, or
// returns ErrValueTooLarge if v does not fit in 62 bits.
func EncodeVarInt(dst []byte, v uint64) ([]byte, error) {
	if v > MaxVarInt {
		return dst, ErrValueTooLarge
	}
	return quicvarint.Append(dst, v), nil
}

// VarIntLen returns the number of bytes EncodeVarInt would emit for v.
func VarIntLen(v uint64) int {
	return quicvarint.Len(v)
}

// DecodeVarInt reads one varint from the front of src, returning the
// decoded value and the number of bytes consumed. It returns
// ErrNeedMoreData if src is too short to contain the full encoding.
func DecodeVarInt(src []byte) (uint64, int, error) {
	if len(src) == 0 {
		return 0, 0, ErrNeedMoreData
	}
	need := varIntLenFromPrefix(src[0])
	if len(src) < need {
		return 0, 0, ErrNeedMoreData
	}
	v, n, err := quicvarint.Parse(src[:need])
	if err != nil {
		return 0, 0, ErrNeedMoreData
	}
	return v, n, nil
}

// varIntLenFromPrefix returns the total encoded length (including the
// first byte) signalled by the top two bits of the first byte.
func varIntLenFromPrefix(first byte) int {
	switch first >> 6 {
	case 0:
		return 1
	case 1:
		return 2
	case 2:
		return 4
	default:
		return 8
	}
}

// AppendUint8 / AppendUint16 / AppendUint32 / AppendUint64 append
// fixed-width big-endian trivial integers, used for the non-varint fields
// in the wire formats (priorities, group order).

// AppendUint8 appends a single byte.
func AppendUint8(dst []byte, v uint8) []byte {
	return append(dst, v)
}

// AppendUint16 appends a big-endian uint16.
func AppendUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

// AppendUint32 appends a big-endian uint32.
func AppendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// AppendUint64 appends a big-endian uint64.
func AppendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// DecodeUint8 reads a single byte from src.
func DecodeUint8(src []byte) (uint8, int, error) {
	if len(src) < 1 {
		return 0, 0, ErrNeedMoreData
	}
	return src[0], 1, nil
}

// DecodeUint16 reads a big-endian uint16 from src.
func DecodeUint16(src []byte) (uint16, int, error) {
	if len(src) < 2 {
		return 0, 0, ErrNeedMoreData
	}
	return binary.BigEndian.Uint16(src), 2, nil
}

// DecodeUint32 reads a big-endian uint32 from src.
func DecodeUint32(src []byte) (uint32, int, error) {
	if len(src) < 4 {
		return 0, 0, ErrNeedMoreData
	}
	return binary.BigEndian.Uint32(src), 4, nil
}

// DecodeUint64 reads a big-endian uint64 from src.
func DecodeUint64(src []byte) (uint64, int, error) {
	if len(src) < 8 {
		return 0, 0, ErrNeedMoreData
	}
	return binary.BigEndian.Uint64(src), 8, nil
}
