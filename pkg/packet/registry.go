package packet

import "github.com/adepierre/SniffCraft/pkg/proto"

// Open Question (spec.md §9): whether packet ids are dense,
// declaration-order indices or explicit wire constants could not be
// settled against the packet-schema library (out of scope per spec.md
// §1). This registry resolves it with explicit wire constants per
// (state, direction) table. Only the packets this module decodes are
// registered, so the ids in a table are sparse, not a dense
// declaration-order sequence — see DESIGN.md for the recorded decision.

type factory func() Packet

var registry = map[Key]factory{}

func register(state proto.ConnectionState, dir Direction, id int32, f factory) {
	registry[Key{State: state, Direction: dir, ID: id}] = f
}

func init() {
	register(proto.Handshake, Serverbound, 0x00, func() Packet { return &ClientIntention{} })

	register(proto.Login, Serverbound, 0x00, func() Packet { return &ServerboundHello{} })
	register(proto.Login, Serverbound, 0x01, func() Packet { return &ServerboundKey{} })
	register(proto.Login, Serverbound, 0x03, func() Packet { return &LoginAcknowledged{} })

	register(proto.Login, Clientbound, 0x01, func() Packet { return &ClientboundHello{} })
	register(proto.Login, Clientbound, 0x02, func() Packet { return &GameProfile{} })
	register(proto.Login, Clientbound, 0x03, func() Packet { return &LoginCompression{} })

	register(proto.Configuration, Serverbound, 0x02, func() Packet { return &CustomPayload{Clientbound: false} })
	register(proto.Configuration, Serverbound, 0x03, func() Packet { return &FinishConfigurationAck{} })
	register(proto.Configuration, Clientbound, 0x02, func() Packet { return &ClientboundTransferConfiguration{} })
	register(proto.Configuration, Clientbound, 0x03, func() Packet { return &FinishConfiguration{} })

	register(proto.Play, Serverbound, 0x05, func() Packet { return &ServerboundChat{} })
	register(proto.Play, Serverbound, 0x04, func() Packet { return &ServerboundChatCommand{} })
	register(proto.Play, Serverbound, 0x1F, func() Packet { return &KeepAlive{} })
	register(proto.Play, Serverbound, 0x0C, func() Packet { return &ConfigurationAcknowledged{} })
	register(proto.Play, Serverbound, 0x07, func() Packet { return &ServerboundChatAck{} })
	register(proto.Play, Serverbound, 0x08, func() Packet { return &ServerboundChatSessionUpdate{} })

	register(proto.Play, Clientbound, 0x2B, func() Packet { return &ClientboundLogin{} })
	register(proto.Play, Clientbound, 0x36, func() Packet { return &ClientboundPlayerChat{} })
	register(proto.Play, Clientbound, 0x24, func() Packet { return &KeepAlive{} })
	register(proto.Play, Clientbound, 0x73, func() Packet { return &ClientboundTransfer{} })
}

// FinishConfigurationAck is the client's acknowledgement of
// FinishConfiguration; it carries no fields and is the trigger for the
// Configuration -> Play transition.
type FinishConfigurationAck struct{}

func (p *FinishConfigurationAck) Name() string              { return "FinishConfigurationAck" }
func (p *FinishConfigurationAck) ReadFrom(r *Reader) error   { return nil }
func (p *FinishConfigurationAck) WriteTo(w *Writer) error    { return nil }
func (p *FinishConfigurationAck) Descriptor() map[string]any { return map[string]any{} }

// Lookup constructs a zero-valued Packet for (state, dir, id), or nil if
// no factory is registered — the caller (the proxy's frame processor)
// treats that as an unknown packet: it logs the frame as a RawPacket and
// forwards it byte-exact to the other side, consuming the whole frame so
// the stream stays in sync.
func Lookup(state proto.ConnectionState, dir Direction, id int32) Packet {
	f, ok := registry[Key{State: state, Direction: dir, ID: id}]
	if !ok {
		return nil
	}
	return f()
}
