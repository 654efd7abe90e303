package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCFB8RoundTrip(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i * 7)
	}
	enc, err := NewCFB8Encrypter(key)
	require.NoError(t, err)
	dec, err := NewCFB8Decrypter(key)
	require.NoError(t, err)

	plain := []byte("the quick brown fox jumps over the lazy dog, 54 bytes.")
	cipherText := make([]byte, len(plain))
	enc.XORKeyStream(cipherText, plain)
	assert.NotEqual(t, plain, cipherText)

	roundTripped := make([]byte, len(plain))
	dec.XORKeyStream(roundTripped, cipherText)
	assert.Equal(t, plain, roundTripped)
}

func TestCFB8StreamsByteAtATime(t *testing.T) {
	key := make([]byte, 16)
	encWhole, _ := NewCFB8Encrypter(key)
	encByByte, _ := NewCFB8Encrypter(key)

	plain := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	whole := make([]byte, len(plain))
	encWhole.XORKeyStream(whole, plain)

	perByte := make([]byte, len(plain))
	for i, b := range plain {
		encByByte.XORKeyStream(perByte[i:i+1], []byte{b})
	}
	assert.Equal(t, whole, perByte)
}
