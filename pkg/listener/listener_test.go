package listener

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adepierre/SniffCraft/pkg/config"
	"github.com/adepierre/SniffCraft/pkg/packet"
	"github.com/adepierre/SniffCraft/pkg/proto/varint"
)

// TestListenerProxiesHandshakeRewritesToRealAddress exercises
// handleClientIntention end to end: ClientIntention is always suppressed
// (spec.md §4.6), so the backend must see a replacement carrying the
// real, resolved server address rather than whatever hostname the test
// client dialed.
func TestListenerProxiesHandshakeRewritesToRealAddress(t *testing.T) {
	backend, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer backend.Close()

	backendReceived := make(chan []byte, 1)
	go func() {
		conn, err := backend.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 256)
		n, _ := conn.Read(buf)
		backendReceived <- append([]byte(nil), buf[:n]...)
	}()

	cfg := config.Default()
	cfg.ServerAddress = backend.Addr().String()

	l := New(cfg, "", nil)

	front, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer front.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Serve(ctx, front) }()

	clientConn, err := net.Dial("tcp", front.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()

	frame := buildClientIntentionFrame(t)
	_, err = clientConn.Write(frame)
	require.NoError(t, err)

	backendHost, backendPortStr, err := net.SplitHostPort(backend.Addr().String())
	require.NoError(t, err)
	backendPort, err := strconv.Atoi(backendPortStr)
	require.NoError(t, err)

	select {
	case got := <-backendReceived:
		require.NotEqual(t, frame, got, "ClientIntention must be rewritten, not forwarded byte-exact")

		_, lenBytes, err := varint.ReadVarInt(got)
		require.NoError(t, err)
		r := packet.NewReader(got[lenBytes:])
		id, err := r.VarInt()
		require.NoError(t, err)
		require.EqualValues(t, 0, id)

		rewritten := &packet.ClientIntention{}
		require.NoError(t, rewritten.ReadFrom(r))
		require.Equal(t, int32(767), rewritten.ProtocolVersion)
		require.Equal(t, packet.IntentStatus, int(rewritten.Intent))
		require.Equal(t, backendHost, rewritten.ServerAddress)
		require.EqualValues(t, backendPort, rewritten.ServerPort)
	case <-time.After(2 * time.Second):
		t.Fatal("backend never received forwarded frame")
	}
}

func buildClientIntentionFrame(t *testing.T) []byte {
	t.Helper()
	w := packet.NewWriter()
	w.VarInt(0) // ClientIntention's wire id in Handshake/Serverbound
	pk := &packet.ClientIntention{
		ProtocolVersion: 767,
		ServerAddress:   "play.example.com",
		ServerPort:      25565,
		Intent:          packet.IntentStatus,
	}
	require.NoError(t, pk.WriteTo(w))
	body := w.Bytes()

	frame := varint.WriteVarInt(nil, int32(len(body)))
	frame = append(frame, body...)
	return frame
}
