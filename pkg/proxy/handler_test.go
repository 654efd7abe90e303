package proxy

import (
	"crypto/rsa"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/adepierre/SniffCraft/pkg/auth"
	"github.com/adepierre/SniffCraft/pkg/packet"
	"github.com/adepierre/SniffCraft/pkg/proto"
	"github.com/adepierre/SniffCraft/pkg/proto/varint"
)

// fakeAuthenticator is a minimal auth.Authenticator stand-in: no network
// calls, deterministic outputs, so tests can exercise the handler's
// re-signing/substitution logic without a real Mojang session.
type fakeAuthenticator struct {
	displayName string
	playerUUID  uuid.UUID
	pubKey      []byte
	keyTS       int64
	keySig      []byte

	signature []byte
	signErr   error
	emptySig  bool
}

func (f *fakeAuthenticator) AuthMicrosoft(string) (bool, error)  { return true, nil }
func (f *fakeAuthenticator) PlayerDisplayName() string           { return f.displayName }
func (f *fakeAuthenticator) PlayerUUID() uuid.UUID               { return f.playerUUID }
func (f *fakeAuthenticator) PublicKey() []byte                   { return f.pubKey }
func (f *fakeAuthenticator) PrivateKey() *rsa.PrivateKey         { return nil }
func (f *fakeAuthenticator) KeyTimestamp() int64                 { return f.keyTS }
func (f *fakeAuthenticator) KeySignature() []byte                { return f.keySig }
func (f *fakeAuthenticator) JoinServer(string, []byte, []byte) error { return nil }
func (f *fakeAuthenticator) SignMessage(text string, index int64, sessionUUID uuid.UUID, lastSeen [][]byte) ([]byte, int64, int64, error) {
	if f.signErr != nil {
		return nil, 0, 0, f.signErr
	}
	if f.emptySig {
		return []byte{}, 0, 0, nil
	}
	return f.signature, 42, 1000, nil
}

// newTestHandler wires a Handler around two net.Pipe-backed Connections,
// started so their writer goroutines actually flush to the socket; the
// remote halves of each pipe are returned for tests to read injected or
// forwarded frames off of.
func newTestHandler(t *testing.T, authn auth.Authenticator) (*Proxy, *Handler, net.Conn, net.Conn) {
	t.Helper()
	clientLocal, clientRemote := pipePair(t)
	serverLocal, serverRemote := pipePair(t)

	cConn := NewConnection(clientLocal)
	sConn := NewConnection(serverLocal)

	h := NewHandler(nil, nil, authn, "proxy.example", 25566, "real.example", 25577, nil)
	p := New(cConn, sConn, h.Process)
	p.Start()
	t.Cleanup(p.Close)
	return p, h, clientRemote, serverRemote
}

func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	_, lenBytes, err := varint.ReadVarInt(buf[:n])
	require.NoError(t, err)
	return buf[lenBytes:n]
}

func TestHandlerRewritesClientIntentionToRealAddress(t *testing.T) {
	p, h, _, serverRemote := newTestHandler(t, nil)

	v := &packet.ClientIntention{
		ProtocolVersion: 767,
		ServerAddress:   "dialed.example\x00FML",
		ServerPort:      1234,
		Intent:          packet.IntentLogin,
	}
	require.NoError(t, h.handleClientIntention(p, proto.Client, 0x00, v, []byte{0}))
	require.Equal(t, proto.Login, h.state)
	require.Equal(t, "dialed.example\x00FML", h.clientDialedHost)

	r := packet.NewReader(readFrame(t, serverRemote))
	_, err := r.VarInt()
	require.NoError(t, err)

	rewritten := &packet.ClientIntention{}
	require.NoError(t, rewritten.ReadFrom(r))
	require.Equal(t, int32(767), rewritten.ProtocolVersion)
	require.Equal(t, "real.example\x00FML", rewritten.ServerAddress)
	require.EqualValues(t, 25577, rewritten.ServerPort)
	require.Equal(t, packet.IntentLogin, int(rewritten.Intent))
}

func TestHandlerResignsServerboundChat(t *testing.T) {
	authn := &fakeAuthenticator{displayName: "Player", signature: []byte("resigned-signature")}
	p, h, _, serverRemote := newTestHandler(t, authn)

	original := &packet.ServerboundChat{Message: "hello there", Timestamp: 1, Salt: 2, Signature: []byte("client-signature")}
	require.NoError(t, h.handleServerboundChat(p, proto.Client, 0x05, original, []byte{0}))
	require.EqualValues(t, 1, h.chatIndex)

	r := packet.NewReader(readFrame(t, serverRemote))
	id, err := r.VarInt()
	require.NoError(t, err)
	require.EqualValues(t, 0x05, id)

	resent := &packet.ServerboundChat{}
	require.NoError(t, resent.ReadFrom(r))
	require.Equal(t, "hello there", resent.Message)
	require.Equal(t, []byte("resigned-signature"), resent.Signature)
	require.NotEqual(t, original.Signature, resent.Signature)
	require.EqualValues(t, 42, resent.Salt)
	require.EqualValues(t, 1000, resent.Timestamp)
}

func TestHandlerServerboundChatEmptySignatureIsFatal(t *testing.T) {
	authn := &fakeAuthenticator{emptySig: true}
	p, h, _, _ := newTestHandler(t, authn)

	err := h.handleServerboundChat(p, proto.Client, 0x05, &packet.ServerboundChat{Message: "hi"}, []byte{0})
	require.Error(t, err)
}

func TestHandlerSynthesizesChatAckPastOffsetThreshold(t *testing.T) {
	p, h, _, serverRemote := newTestHandler(t, nil)

	for i := 0; i < 65; i++ {
		pk := &packet.ClientboundPlayerChat{HasSignature: true, Signature: []byte("sig")}
		require.NoError(t, h.handleClientboundPlayerChat(p, proto.Server, 0x36, pk, []byte{0}))
	}

	r := packet.NewReader(readFrame(t, serverRemote))
	id, err := r.VarInt()
	require.NoError(t, err)
	require.EqualValues(t, idServerboundChatAck, id)

	ack := &packet.ServerboundChatAck{}
	require.NoError(t, ack.ReadFrom(r))
	require.EqualValues(t, 65, ack.Offset)
	require.Equal(t, 0, h.chatOffset)
}

func TestHandlerClientboundTransferInvokesCallbackAndRedirectsToClientDialedAddress(t *testing.T) {
	p, h, clientRemote, _ := newTestHandler(t, nil)

	var gotHost string
	var gotPort int32
	h.transferCallback = func(host string, port int32) {
		gotHost, gotPort = host, port
	}
	h.clientDialedHost = "dialed.example"

	v := &packet.ClientboundTransfer{Host: "other-real.example", Port: 25500}
	require.NoError(t, h.handleClientboundTransfer(p, proto.Server, 0x73, v, []byte{0}))
	require.Equal(t, "other-real.example", gotHost)
	require.EqualValues(t, 25500, gotPort)

	r := packet.NewReader(readFrame(t, clientRemote))
	_, err := r.VarInt()
	require.NoError(t, err)

	rewritten := &packet.ClientboundTransfer{}
	require.NoError(t, rewritten.ReadFrom(r))
	require.Equal(t, "dialed.example", rewritten.Host)
	require.EqualValues(t, 25566, rewritten.Port)
}

func TestHandlerServerboundHelloAuthenticatedReplacesIdentity(t *testing.T) {
	wantUUID := uuid.New()
	authn := &fakeAuthenticator{displayName: "RealName", playerUUID: wantUUID}
	p, h, _, serverRemote := newTestHandler(t, authn)

	v := &packet.ServerboundHello{Name: "ClientClaimedName", HasPlayerUUID: true, PlayerUUID: uuid.New()}
	require.NoError(t, h.handleServerboundHello(p, proto.Client, 0x00, v, []byte{0}))

	r := packet.NewReader(readFrame(t, serverRemote))
	_, err := r.VarInt()
	require.NoError(t, err)

	rewritten := &packet.ServerboundHello{}
	require.NoError(t, rewritten.ReadFrom(r))
	require.Equal(t, "RealName", rewritten.Name)
	require.Equal(t, wantUUID, rewritten.PlayerUUID)
}
