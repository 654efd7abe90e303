package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSharedSecretLength(t *testing.T) {
	secret, err := GenerateSharedSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 16)
}

func TestEncryptRSARoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	secret, err := GenerateSharedSecret()
	require.NoError(t, err)

	encrypted, err := EncryptRSA(&priv.PublicKey, secret)
	require.NoError(t, err)

	decrypted, err := rsa.DecryptPKCS1v15(rand.Reader, priv, encrypted)
	require.NoError(t, err)
	assert.Equal(t, secret, decrypted)
}

func TestServerHashKnownVector(t *testing.T) {
	// Vectors from the long-standing community writeup of Mojang's
	// (intentionally non-standard) signed-bigint server hash.
	assert.Equal(t, "4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48", serverHash("Notch", nil, nil))
	assert.Equal(t, "-7c9d5b0044c130109a5d7b5fb5c317c02b4e28c1", serverHash("jeb_", nil, nil))
	assert.Equal(t, "88e16a1019277b15d58faf0541e11910eb756f6", serverHash("simon", nil, nil))
}

func TestRSAToBytesNotEmpty(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	b, err := RSAToBytes(&priv.PublicKey)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}
