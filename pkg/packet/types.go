package packet

import "github.com/google/uuid"

// ClientIntention is the first packet of any connection: it carries the
// client's declared protocol version, the address it dialed, and its
// intent (status query, login, or transfer).
type ClientIntention struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	Intent          int32
}

const (
	IntentStatus   = 1
	IntentLogin    = 2
	IntentTransfer = 3
)

func (p *ClientIntention) Name() string { return "ClientIntention" }
func (p *ClientIntention) ReadFrom(r *Reader) (err error) {
	if p.ProtocolVersion, err = r.VarInt(); err != nil {
		return err
	}
	if p.ServerAddress, err = r.String(); err != nil {
		return err
	}
	if p.ServerPort, err = r.UnsignedShort(); err != nil {
		return err
	}
	p.Intent, err = r.VarInt()
	return err
}
func (p *ClientIntention) WriteTo(w *Writer) error {
	w.VarInt(p.ProtocolVersion)
	w.String(p.ServerAddress)
	w.UnsignedShort(p.ServerPort)
	w.VarInt(p.Intent)
	return nil
}
func (p *ClientIntention) Descriptor() map[string]any {
	return map[string]any{"protocol_version": p.ProtocolVersion, "server_address": p.ServerAddress, "server_port": p.ServerPort, "intent": p.Intent}
}

// ServerboundHello is the player's self-declared identity in Login
// state: a display name plus, for authenticated play on newer protocol
// ranges, a signed public key.
type ServerboundHello struct {
	Name             string
	HasProfileKey    bool
	KeyTimestamp     int64
	PublicKey        []byte
	KeySignature     []byte
	HasPlayerUUID    bool
	PlayerUUID       uuid.UUID
}

func (p *ServerboundHello) Name() string { return "ServerboundHello" }
func (p *ServerboundHello) ReadFrom(r *Reader) (err error) {
	if p.Name, err = r.String(); err != nil {
		return err
	}
	if p.HasProfileKey, err = r.Bool(); err != nil {
		return err
	}
	if p.HasProfileKey {
		if p.KeyTimestamp, err = r.Long(); err != nil {
			return err
		}
		if p.PublicKey, err = r.ByteArray(); err != nil {
			return err
		}
		if p.KeySignature, err = r.ByteArray(); err != nil {
			return err
		}
	}
	if p.HasPlayerUUID, err = r.Bool(); err != nil {
		return err
	}
	if p.HasPlayerUUID {
		p.PlayerUUID, err = r.UUID()
	}
	return err
}
func (p *ServerboundHello) WriteTo(w *Writer) error {
	w.String(p.Name)
	w.Bool(p.HasProfileKey)
	if p.HasProfileKey {
		w.Long(p.KeyTimestamp)
		w.ByteArray(p.PublicKey)
		w.ByteArray(p.KeySignature)
	}
	w.Bool(p.HasPlayerUUID)
	if p.HasPlayerUUID {
		w.UUID(p.PlayerUUID)
	}
	return nil
}
func (p *ServerboundHello) Descriptor() map[string]any {
	return map[string]any{"name": p.Name, "has_profile_key": p.HasProfileKey, "has_player_uuid": p.HasPlayerUUID}
}

// LoginCompression tells the client (and, in this proxy, arms the codec
// for) the compression envelope threshold.
type LoginCompression struct {
	Threshold int32
}

func (p *LoginCompression) Name() string                 { return "LoginCompression" }
func (p *LoginCompression) ReadFrom(r *Reader) (err error) { p.Threshold, err = r.VarInt(); return err }
func (p *LoginCompression) WriteTo(w *Writer) error       { w.VarInt(p.Threshold); return nil }
func (p *LoginCompression) Descriptor() map[string]any    { return map[string]any{"threshold": p.Threshold} }

// GameProfile (protocol < 764) finalizes login and moves the connection
// to Play. Properties are preserved as opaque remaining bytes since the
// proxy never rewrites this packet.
type GameProfile struct {
	UUID       uuid.UUID
	Name       string
	Properties []byte
}

func (p *GameProfile) Name() string { return "GameProfile" }
func (p *GameProfile) ReadFrom(r *Reader) (err error) {
	if p.UUID, err = r.UUID(); err != nil {
		return err
	}
	if p.Name, err = r.String(); err != nil {
		return err
	}
	p.Properties = r.Remaining()
	return nil
}
func (p *GameProfile) WriteTo(w *Writer) error {
	w.UUID(p.UUID)
	w.String(p.Name)
	w.Raw(p.Properties)
	return nil
}
func (p *GameProfile) Descriptor() map[string]any {
	return map[string]any{"uuid": p.UUID.String(), "name": p.Name}
}

// ClientboundHello is the key-agreement request: the server's RSA public
// key plus a nonce or challenge (protocol dependent).
type ClientboundHello struct {
	ServerID    string
	PublicKey   []byte
	VerifyToken []byte
	ShouldAuthenticate bool
}

func (p *ClientboundHello) Name() string { return "ClientboundHello" }
func (p *ClientboundHello) ReadFrom(r *Reader) (err error) {
	if p.ServerID, err = r.String(); err != nil {
		return err
	}
	if p.PublicKey, err = r.ByteArray(); err != nil {
		return err
	}
	p.VerifyToken, err = r.ByteArray()
	return err
}
func (p *ClientboundHello) WriteTo(w *Writer) error {
	w.String(p.ServerID)
	w.ByteArray(p.PublicKey)
	w.ByteArray(p.VerifyToken)
	return nil
}
func (p *ClientboundHello) Descriptor() map[string]any {
	return map[string]any{"server_id": p.ServerID, "public_key_len": len(p.PublicKey)}
}

// ServerboundKey completes key agreement: the RSA-encrypted shared
// secret plus either an encrypted verify token (older protocols) or a
// signed-nonce pair (newer ones).
type ServerboundKey struct {
	EncryptedSharedSecret []byte
	HasVerifyToken        bool
	EncryptedVerifyToken  []byte
	Salt                  int64
	MessageSignature      []byte
}

func (p *ServerboundKey) Name() string { return "ServerboundKey" }
func (p *ServerboundKey) ReadFrom(r *Reader) (err error) {
	if p.EncryptedSharedSecret, err = r.ByteArray(); err != nil {
		return err
	}
	if p.HasVerifyToken, err = r.Bool(); err != nil {
		return err
	}
	if p.HasVerifyToken {
		p.EncryptedVerifyToken, err = r.ByteArray()
		return err
	}
	if p.Salt, err = r.Long(); err != nil {
		return err
	}
	p.MessageSignature, err = r.ByteArray()
	return err
}
func (p *ServerboundKey) WriteTo(w *Writer) error {
	w.ByteArray(p.EncryptedSharedSecret)
	w.Bool(p.HasVerifyToken)
	if p.HasVerifyToken {
		w.ByteArray(p.EncryptedVerifyToken)
		return nil
	}
	w.Long(p.Salt)
	w.ByteArray(p.MessageSignature)
	return nil
}
func (p *ServerboundKey) Descriptor() map[string]any { return map[string]any{} }

// ClientboundLogin finalizes login for protocol > 760, carrying the
// player's entity id and world state; the proxy only needs to recognize
// it to trigger the chat-session handshake, so fields beyond the
// entity id are kept as opaque tail bytes.
type ClientboundLogin struct {
	EntityID int32
	Rest     []byte
}

func (p *ClientboundLogin) Name() string { return "ClientboundLogin" }
func (p *ClientboundLogin) ReadFrom(r *Reader) (err error) {
	if p.EntityID, err = readInt32BigEndian(r); err != nil {
		return err
	}
	p.Rest = r.Remaining()
	return nil
}
func (p *ClientboundLogin) WriteTo(w *Writer) error {
	writeInt32BigEndian(w, p.EntityID)
	w.Raw(p.Rest)
	return nil
}
func (p *ClientboundLogin) Descriptor() map[string]any { return map[string]any{"entity_id": p.EntityID} }

func readInt32BigEndian(r *Reader) (int32, error) {
	b0, err := r.Byte()
	if err != nil {
		return 0, err
	}
	b1, err := r.Byte()
	if err != nil {
		return 0, err
	}
	b2, err := r.Byte()
	if err != nil {
		return 0, err
	}
	b3, err := r.Byte()
	if err != nil {
		return 0, err
	}
	return int32(uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)), nil
}

func writeInt32BigEndian(w *Writer, v int32) {
	u := uint32(v)
	w.Byte(byte(u >> 24))
	w.Byte(byte(u >> 16))
	w.Byte(byte(u >> 8))
	w.Byte(byte(u))
}

// ServerboundChat is a signed chat message sent by the client.
type ServerboundChat struct {
	Message           string
	Timestamp         int64
	Salt              int64
	Signature         []byte
	LastSeenMessages  []byte // opaque acknowledgement bitset/list, version dependent
}

func (p *ServerboundChat) Name() string { return "ServerboundChat" }
func (p *ServerboundChat) ReadFrom(r *Reader) (err error) {
	if p.Message, err = r.String(); err != nil {
		return err
	}
	if p.Timestamp, err = r.Long(); err != nil {
		return err
	}
	if p.Salt, err = r.Long(); err != nil {
		return err
	}
	hasSig, err := r.Bool()
	if err != nil {
		return err
	}
	if hasSig {
		if p.Signature, err = r.ByteArray(); err != nil {
			return err
		}
	}
	p.LastSeenMessages = r.Remaining()
	return nil
}
func (p *ServerboundChat) WriteTo(w *Writer) error {
	w.String(p.Message)
	w.Long(p.Timestamp)
	w.Long(p.Salt)
	w.Bool(len(p.Signature) > 0)
	if len(p.Signature) > 0 {
		w.ByteArray(p.Signature)
	}
	w.Raw(p.LastSeenMessages)
	return nil
}
func (p *ServerboundChat) Descriptor() map[string]any { return map[string]any{"message": p.Message} }

// ServerboundChatCommand carries a typed command; arguments may each
// carry their own signature, which passes through untouched. ReadFrom
// keeps everything after the command string, including the trailing
// last-seen-messages field, as the opaque SignedPreview. WriteTo writes
// Command and SignedPreview only; LastSeenMessages is not written.
type ServerboundChatCommand struct {
	Command          string
	SignedPreview    []byte // opaque: timestamp/salt/per-argument signatures
	LastSeenMessages []byte
}

func (p *ServerboundChatCommand) Name() string { return "ServerboundChatCommand" }
func (p *ServerboundChatCommand) ReadFrom(r *Reader) (err error) {
	if p.Command, err = r.String(); err != nil {
		return err
	}
	p.SignedPreview = r.Remaining()
	return nil
}
func (p *ServerboundChatCommand) WriteTo(w *Writer) error {
	w.String(p.Command)
	w.Raw(p.SignedPreview)
	return nil
}
func (p *ServerboundChatCommand) Descriptor() map[string]any {
	return map[string]any{"command": p.Command}
}

// ClientboundPlayerChat is a signed chat message delivered to the
// client; the proxy tracks its signature to maintain the rolling
// last-seen-messages acknowledgement window.
type ClientboundPlayerChat struct {
	HasSignature bool
	Signature    []byte
	Rest         []byte
}

func (p *ClientboundPlayerChat) Name() string { return "ClientboundPlayerChat" }
func (p *ClientboundPlayerChat) ReadFrom(r *Reader) (err error) {
	if p.HasSignature, err = r.Bool(); err != nil {
		return err
	}
	if p.HasSignature {
		if p.Signature, err = r.ByteArray(); err != nil {
			return err
		}
	}
	p.Rest = r.Remaining()
	return nil
}
func (p *ClientboundPlayerChat) WriteTo(w *Writer) error {
	w.Bool(p.HasSignature)
	if p.HasSignature {
		w.ByteArray(p.Signature)
	}
	w.Raw(p.Rest)
	return nil
}
func (p *ClientboundPlayerChat) Descriptor() map[string]any {
	return map[string]any{"has_signature": p.HasSignature}
}

// ServerboundChatAck acknowledges receipt of chat messages, resetting
// the proxy's tracked offset back to zero.
type ServerboundChatAck struct {
	Offset int32
}

func (p *ServerboundChatAck) Name() string                 { return "ServerboundChatAck" }
func (p *ServerboundChatAck) ReadFrom(r *Reader) (err error) { p.Offset, err = r.VarInt(); return err }
func (p *ServerboundChatAck) WriteTo(w *Writer) error       { w.VarInt(p.Offset); return nil }
func (p *ServerboundChatAck) Descriptor() map[string]any    { return map[string]any{"offset": p.Offset} }

// ServerboundChatSessionUpdate announces (or re-announces) the client's
// chat-signing session: a session uuid plus its public key material.
type ServerboundChatSessionUpdate struct {
	SessionUUID  uuid.UUID
	KeyTimestamp int64
	PublicKey    []byte
	KeySignature []byte
}

func (p *ServerboundChatSessionUpdate) Name() string { return "ServerboundChatSessionUpdate" }
func (p *ServerboundChatSessionUpdate) ReadFrom(r *Reader) (err error) {
	if p.SessionUUID, err = r.UUID(); err != nil {
		return err
	}
	if p.KeyTimestamp, err = r.Long(); err != nil {
		return err
	}
	if p.PublicKey, err = r.ByteArray(); err != nil {
		return err
	}
	p.KeySignature, err = r.ByteArray()
	return err
}
func (p *ServerboundChatSessionUpdate) WriteTo(w *Writer) error {
	w.UUID(p.SessionUUID)
	w.Long(p.KeyTimestamp)
	w.ByteArray(p.PublicKey)
	w.ByteArray(p.KeySignature)
	return nil
}
func (p *ServerboundChatSessionUpdate) Descriptor() map[string]any {
	return map[string]any{"session_uuid": p.SessionUUID.String()}
}

// ClientboundTransfer / ClientboundTransferConfiguration (protocol >
// 765) redirect the client to a different server.
type ClientboundTransfer struct {
	Host string
	Port int32
}

func (p *ClientboundTransfer) Name() string { return "ClientboundTransfer" }
func (p *ClientboundTransfer) ReadFrom(r *Reader) (err error) {
	if p.Host, err = r.String(); err != nil {
		return err
	}
	p.Port, err = r.VarInt()
	return err
}
func (p *ClientboundTransfer) WriteTo(w *Writer) error {
	w.String(p.Host)
	w.VarInt(p.Port)
	return nil
}
func (p *ClientboundTransfer) Descriptor() map[string]any {
	return map[string]any{"host": p.Host, "port": p.Port}
}

// ClientboundTransferConfiguration is the Configuration-state sibling of
// ClientboundTransfer; identical wire shape.
type ClientboundTransferConfiguration struct {
	ClientboundTransfer
}

func (p *ClientboundTransferConfiguration) Name() string { return "ClientboundTransferConfiguration" }

// LoginAcknowledged (client -> server, protocol >= 764) moves the
// connection from Login to Configuration. It carries no fields.
type LoginAcknowledged struct{}

func (p *LoginAcknowledged) Name() string                  { return "LoginAcknowledged" }
func (p *LoginAcknowledged) ReadFrom(r *Reader) error       { return nil }
func (p *LoginAcknowledged) WriteTo(w *Writer) error        { return nil }
func (p *LoginAcknowledged) Descriptor() map[string]any     { return map[string]any{} }

// FinishConfiguration (server -> client) signals the end of the
// Configuration phase; the client's acknowledgement moves both sides to
// Play.
type FinishConfiguration struct{}

func (p *FinishConfiguration) Name() string              { return "FinishConfiguration" }
func (p *FinishConfiguration) ReadFrom(r *Reader) error   { return nil }
func (p *FinishConfiguration) WriteTo(w *Writer) error    { return nil }
func (p *FinishConfiguration) Descriptor() map[string]any { return map[string]any{} }

// ConfigurationAcknowledged (client -> server, from Play) re-enters
// Configuration, e.g. for a resource-pack reload.
type ConfigurationAcknowledged struct{}

func (p *ConfigurationAcknowledged) Name() string              { return "ConfigurationAcknowledged" }
func (p *ConfigurationAcknowledged) ReadFrom(r *Reader) error   { return nil }
func (p *ConfigurationAcknowledged) WriteTo(w *Writer) error    { return nil }
func (p *ConfigurationAcknowledged) Descriptor() map[string]any { return map[string]any{} }

// KeepAlive carries a single opaque 64-bit id both directions use to
// verify liveness; the proxy never rewrites it.
type KeepAlive struct {
	ID int64
}

func (p *KeepAlive) Name() string                  { return "KeepAlive" }
func (p *KeepAlive) ReadFrom(r *Reader) (err error) { p.ID, err = r.Long(); return err }
func (p *KeepAlive) WriteTo(w *Writer) error        { w.Long(p.ID); return nil }
func (p *KeepAlive) Descriptor() map[string]any     { return map[string]any{"id": p.ID} }

// CustomPayload (both ServerboundCustomPayload and ClientboundCustomPayload)
// is a plugin-channel message identified by a namespaced channel string;
// the logger keys statistics on "<name>|<identifier>" for these.
type CustomPayload struct {
	Clientbound bool
	Channel     string
	Data        []byte
}

func (p *CustomPayload) Name() string {
	if p.Clientbound {
		return "ClientboundCustomPayload"
	}
	return "ServerboundCustomPayload"
}
func (p *CustomPayload) Identifier() string { return p.Channel }
func (p *CustomPayload) ReadFrom(r *Reader) (err error) {
	if p.Channel, err = r.String(); err != nil {
		return err
	}
	p.Data = r.Remaining()
	return nil
}
func (p *CustomPayload) WriteTo(w *Writer) error {
	w.String(p.Channel)
	w.Raw(p.Data)
	return nil
}
func (p *CustomPayload) Descriptor() map[string]any {
	return map[string]any{"channel": p.Channel, "size": len(p.Data)}
}

// Identified is implemented by packets whose logger statistics key
// needs a per-instance suffix (currently only CustomPayload's channel).
type Identified interface {
	Identifier() string
}

// RawPacket is the fallback for any packet id this registry does not
// model explicitly: its body passes through uninterpreted.
type RawPacket struct {
	PacketName string
	Body       []byte
}

func (p *RawPacket) Name() string { return p.PacketName }
func (p *RawPacket) ReadFrom(r *Reader) error {
	p.Body = r.Remaining()
	return nil
}
func (p *RawPacket) WriteTo(w *Writer) error {
	w.Raw(p.Body)
	return nil
}
func (p *RawPacket) Descriptor() map[string]any {
	return map[string]any{"size": len(p.Body)}
}
