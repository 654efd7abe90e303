// Package auth implements the "external collaborator" contract spec.md
// §6.3 assumes: Microsoft/Mojang authentication, RSA key agreement with
// the real server, and message re-signing for authenticated chat. The
// OAuth device-code dance itself stays out of scope (spec.md §1 treats
// authentication as an external library); this package implements
// everything the core actually calls: the session-server join handshake,
// RSA shared-secret encryption, and signature production over an
// in-memory cached identity.
package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// Authenticator is the contract the proxy's packet handlers depend on.
// A single instance is shared by one Proxy and represents one cached
// Microsoft/Mojang identity.
type Authenticator interface {
	// AuthMicrosoft ensures the cached identity named by cacheKey is
	// loaded and its Mojang session token is fresh.
	AuthMicrosoft(cacheKey string) (bool, error)
	PlayerDisplayName() string
	PlayerUUID() uuid.UUID
	PublicKey() []byte
	PrivateKey() *rsa.PrivateKey
	KeyTimestamp() int64
	KeySignature() []byte
	// JoinServer performs the Mojang session-server handshake that
	// proves to the real server the client legitimately holds this
	// identity.
	JoinServer(serverID string, sharedSecret, serverPublicKey []byte) error
	// SignMessage produces a signature over a chat message the same
	// way the real client would, given the rolling chat-session state.
	SignMessage(text string, index int64, sessionUUID uuid.UUID, lastSeenSignatures [][]byte) (signature []byte, salt int64, timestamp int64, err error)
}

// RSAToBytes DER-encodes an RSA public key the way the protocol expects
// it embedded in ClientboundHello/ServerboundHello bodies.
func RSAToBytes(pub *rsa.PublicKey) ([]byte, error) {
	b, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("auth: marshal public key: %w", err)
	}
	return b, nil
}

// DecodeBase64 decodes the standard base64 encoding Mojang's key
// signature responses use.
func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("auth: decode base64: %w", err)
	}
	return b, nil
}

// serverHash computes the SHA-1-derived, possibly-negative hex digest
// Mojang's session-server join/hasJoined endpoints require, per the
// long-standing (and intentionally non-standard) Minecraft convention.
func serverHash(serverID string, sharedSecret, serverPublicKey []byte) string {
	h := sha1.New()
	h.Write([]byte(serverID))
	h.Write(sharedSecret)
	h.Write(serverPublicKey)
	sum := h.Sum(nil)

	// Minecraft's server hash is a signed two's-complement big integer
	// formatted in hex, not a plain digest-to-hex conversion.
	n := new(big.Int).SetBytes(sum)
	if sum[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(sum)*8)))
	}
	return n.Text(16)
}

func trimLeadingZeroHex(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}

// GenerateSharedSecret produces the random 16-byte AES key/IV the
// protocol's key-agreement step requires.
func GenerateSharedSecret() ([]byte, error) {
	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("auth: generate shared secret: %w", err)
	}
	return secret, nil
}

// EncryptRSA encrypts data (a shared secret, nonce, or challenge) with
// the server's RSA public key using PKCS#1 v1.5, the scheme every
// Minecraft protocol revision uses for this handshake.
func EncryptRSA(pub *rsa.PublicKey, data []byte) ([]byte, error) {
	out, err := rsa.EncryptPKCS1v15(rand.Reader, pub, data)
	if err != nil {
		return nil, fmt.Errorf("auth: rsa encrypt: %w", err)
	}
	return out, nil
}

// DecryptRSA reverses EncryptRSA with the holder of the matching
// private key — used by the proxy's own impersonation key to recover a
// shared secret the client encrypted against the proxy's substituted
// public key.
func DecryptRSA(priv *rsa.PrivateKey, data []byte) ([]byte, error) {
	out, err := rsa.DecryptPKCS1v15(rand.Reader, priv, data)
	if err != nil {
		return nil, fmt.Errorf("auth: rsa decrypt: %w", err)
	}
	return out, nil
}

// ParseRSAPublicKey parses the DER-encoded public key bytes a
// ClientboundHello/ServerboundHello body carries, as produced by
// RSAToBytes.
func ParseRSAPublicKey(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("auth: parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("auth: public key is not RSA")
	}
	return rsaPub, nil
}

// SignNonce produces the salted-signature variant of nonce
// verification used by protocol range 759..760: sign SHA-256(salt ||
// nonce) with the player's profile private key.
func SignNonce(priv *rsa.PrivateKey, salt int64, nonce []byte) ([]byte, error) {
	h := sha256.New()
	saltBytes := make([]byte, 8)
	for i := 0; i < 8; i++ {
		saltBytes[7-i] = byte(salt >> (8 * i))
	}
	h.Write(saltBytes)
	h.Write(nonce)
	digest := h.Sum(nil)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, 0, digest)
	if err != nil {
		return nil, fmt.Errorf("auth: sign nonce: %w", err)
	}
	return sig, nil
}
