package varint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 127, 128, 255, 2097151, 2147483647, math.MinInt32}
	for _, v := range values {
		buf := WriteVarInt(nil, v)
		got, n, err := ReadVarInt(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), n)
	}
}

func TestVarIntShortRead(t *testing.T) {
	full := WriteVarInt(nil, 300)
	_, n, err := ReadVarInt(full[:len(full)-1])
	assert.ErrorIs(t, err, ErrShort)
	assert.Zero(t, n)
}

func TestVarIntMalformed(t *testing.T) {
	malformed := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	_, _, err := ReadVarInt(malformed)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVarLongRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, math.MaxInt64, math.MinInt64}
	for _, v := range values {
		buf := WriteVarLong(nil, v)
		got, n, err := ReadVarLong(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), n)
	}
}

func TestSizeVarIntMatchesWrite(t *testing.T) {
	for _, v := range []int32{0, 1, 127, 128, 16384, 2147483647, -1} {
		assert.Equal(t, len(WriteVarInt(nil, v)), SizeVarInt(v))
	}
}
