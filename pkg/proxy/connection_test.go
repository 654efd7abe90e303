package proxy

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adepierre/SniffCraft/pkg/proto/codec"
)

func pipePair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })
	return a, b
}

func TestConnectionDeliversReadBytesToCallback(t *testing.T) {
	local, remote := pipePair(t)

	c := NewConnection(local)
	notified := make(chan int, 8)
	c.SetCallback(func(n int) { notified <- n })
	c.Start()

	_, err := remote.Write([]byte("hello"))
	require.NoError(t, err)

	select {
	case n := <-notified:
		assert.Equal(t, 5, n)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for read notification")
	}

	var buf bytes.Buffer
	c.RetrieveReady(&buf)
	assert.Equal(t, "hello", buf.String())
}

func TestConnectionWriteRawAppliesOwnCipher(t *testing.T) {
	local, remote := pipePair(t)
	c := NewConnection(local)
	c.Start()

	key := make([]byte, 16)
	encStream, err := codec.NewCFB8Encrypter(key)
	require.NoError(t, err)
	decStreamForAssertion, err := codec.NewCFB8Decrypter(key)
	require.NoError(t, err)

	c.SetCipherStreams(nil, encStream)
	c.WriteRaw([]byte("plaintext"))

	out := make([]byte, len("plaintext"))
	_, err = remote.Read(out)
	require.NoError(t, err)

	decoded := make([]byte, len(out))
	decStreamForAssertion.XORKeyStream(decoded, out)
	assert.Equal(t, "plaintext", string(decoded))
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	local, _ := pipePair(t)
	c := NewConnection(local)
	c.Start()

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClosedConn)
	assert.True(t, c.Closed())
}
