package packet

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adepierre/SniffCraft/pkg/proto"
)

func TestClientIntentionRoundTrip(t *testing.T) {
	p := &ClientIntention{ProtocolVersion: 763, ServerAddress: "proxy.local", ServerPort: 25565, Intent: IntentLogin}
	w := NewWriter()
	require.NoError(t, p.WriteTo(w))

	var got ClientIntention
	require.NoError(t, got.ReadFrom(NewReader(w.Bytes())))
	assert.Equal(t, *p, got)
}

func TestServerboundHelloWithoutProfileKey(t *testing.T) {
	p := &ServerboundHello{Name: "Steve", HasPlayerUUID: true, PlayerUUID: uuid.New()}
	w := NewWriter()
	require.NoError(t, p.WriteTo(w))

	var got ServerboundHello
	require.NoError(t, got.ReadFrom(NewReader(w.Bytes())))
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.PlayerUUID, got.PlayerUUID)
	assert.False(t, got.HasProfileKey)
}

func TestRegistryLookupUnknownReturnsNil(t *testing.T) {
	assert.Nil(t, Lookup(proto.Play, Serverbound, 0x7F))
}

func TestRegistryLookupKnown(t *testing.T) {
	pkt := Lookup(proto.Handshake, Serverbound, 0x00)
	require.NotNil(t, pkt)
	assert.Equal(t, "ClientIntention", pkt.Name())
}

func TestCustomPayloadIdentifier(t *testing.T) {
	p := &CustomPayload{Channel: "minecraft:brand", Data: []byte("vanilla")}
	var id Identified = p
	assert.Equal(t, "minecraft:brand", id.Identifier())
}
