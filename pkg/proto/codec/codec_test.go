package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFramePassthrough(t *testing.T) {
	dec := NewDecoder()
	buf := []byte{0x01, 0xAB}
	payload, consumed, err := dec.DecodeFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB}, payload)
	assert.Equal(t, 2, consumed)
}

func TestDecodeFrameShort(t *testing.T) {
	dec := NewDecoder()
	payload, consumed, err := dec.DecodeFrame([]byte{0x05, 0x01})
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Zero(t, consumed)
}

func TestEncodeDecodeRoundTripUncompressed(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder()
	frame, err := enc.EncodeFrame([]byte{0x00, 'h', 'i'})
	require.NoError(t, err)
	payload, consumed, err := dec.DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), consumed)
	assert.Equal(t, []byte{0x00, 'h', 'i'}, payload)
}

func TestEncodeDecodeRoundTripCompressed(t *testing.T) {
	enc := NewEncoder()
	dec := NewDecoder()
	enc.SetCompressionThreshold(4)
	dec.SetCompressionThreshold(4)

	small := []byte{0x00, 'h', 'i'}
	frame, err := enc.EncodeFrame(small)
	require.NoError(t, err)
	payload, _, err := dec.DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, small, payload)
	assert.Equal(t, byte(0x00), frame[1], "below threshold must use the uncompressed 0x00 data_length marker")

	large := make([]byte, 500)
	for i := range large {
		large[i] = byte(i)
	}
	frame, err = enc.EncodeFrame(large)
	require.NoError(t, err)
	payload, _, err = dec.DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, large, payload)
}
