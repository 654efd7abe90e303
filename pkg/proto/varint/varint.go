// Package varint implements the VarInt/VarLong encoding used to frame
// every value on the Minecraft Java Edition wire: 7 bits of payload per
// byte, high bit set as a continuation marker, groups ordered
// little-endian.
package varint

import "errors"

const (
	// MaxVarIntLen is the largest number of bytes a 32-bit VarInt can occupy.
	MaxVarIntLen = 5
	// MaxVarLongLen is the largest number of bytes a 64-bit VarLong can occupy.
	MaxVarLongLen = 10

	segmentBits = 0x7F
	continueBit = 0x80
)

// ErrMalformed is returned when a VarInt/VarLong carries more continuation
// bytes than its width allows. It is always fatal for the connection it
// was read from: the byte stream has desynchronized.
var ErrMalformed = errors.New("varint: malformed, too many continuation bytes")

// ErrShort is returned by the Read* functions when the supplied slice does
// not yet contain a complete value. Callers should retry once more bytes
// have arrived; no bytes have been consumed.
var ErrShort = errors.New("varint: insufficient bytes")

// ReadVarInt decodes a VarInt from the front of b. It returns the decoded
// value and the number of bytes consumed. If b does not contain a complete
// VarInt, it returns (0, 0, ErrShort) without error side effects. A value
// spanning more than MaxVarIntLen bytes is ErrMalformed.
func ReadVarInt(b []byte) (int32, int, error) {
	var value int32
	for i := 0; i < MaxVarIntLen; i++ {
		if i >= len(b) {
			return 0, 0, ErrShort
		}
		cur := b[i]
		value |= int32(cur&segmentBits) << (7 * i)
		if cur&continueBit == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, ErrMalformed
}

// WriteVarInt appends the VarInt encoding of v to dst and returns the
// extended slice.
func WriteVarInt(dst []byte, v int32) []byte {
	u := uint32(v)
	for {
		if u&^segmentBits == 0 {
			return append(dst, byte(u))
		}
		dst = append(dst, byte(u&segmentBits)|continueBit)
		u >>= 7
	}
}

// SizeVarInt returns the number of bytes WriteVarInt would emit for v.
func SizeVarInt(v int32) int {
	u := uint32(v)
	n := 1
	for u&^segmentBits != 0 {
		u >>= 7
		n++
	}
	return n
}

// ReadVarLong decodes a VarLong from the front of b, mirroring ReadVarInt
// at 64-bit width (up to MaxVarLongLen bytes).
func ReadVarLong(b []byte) (int64, int, error) {
	var value int64
	for i := 0; i < MaxVarLongLen; i++ {
		if i >= len(b) {
			return 0, 0, ErrShort
		}
		cur := b[i]
		value |= int64(cur&segmentBits) << (7 * i)
		if cur&continueBit == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, ErrMalformed
}

// WriteVarLong appends the VarLong encoding of v to dst and returns the
// extended slice.
func WriteVarLong(dst []byte, v int64) []byte {
	u := uint64(v)
	for {
		if u&^uint64(segmentBits) == 0 {
			return append(dst, byte(u))
		}
		dst = append(dst, byte(u&segmentBits)|continueBit)
		u >>= 7
	}
}
