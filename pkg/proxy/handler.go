package proxy

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adepierre/SniffCraft/pkg/auth"
	"github.com/adepierre/SniffCraft/pkg/logger"
	"github.com/adepierre/SniffCraft/pkg/packet"
	"github.com/adepierre/SniffCraft/pkg/proto"
	"github.com/adepierre/SniffCraft/pkg/proto/codec"
	"github.com/adepierre/SniffCraft/pkg/replay"
)

// Wire ids for packets this Handler synthesizes outside the normal
// decode/forward path, where no decoded id is available to reuse.
// Grounded on pkg/packet/registry.go's Play/Serverbound table.
const (
	idServerboundChatAck           int32 = 0x07
	idServerboundChatSessionUpdate int32 = 0x08
)

// Handler is the protocol state machine: it owns the single parser
// goroutine's view of (state, pending key agreement, chat session) and
// the packet rewrite specs a MITM sniffer needs. Grounded on
// sniffcraft/src/MinecraftProxy.cpp's packet-specific Handle(...)
// overloads, restructured as one dispatch switch the way
// go.minekube.com/gate's session handlers are chained per state.
type Handler struct {
	log    *logger.Logger
	record *replay.Recorder
	authn  auth.Authenticator

	localHost string
	localPort int

	// realHost/realPort are the real server's resolved address, as seen
	// by the listener before it dialed out; ClientIntention's replacement
	// is rewritten to point here instead of wherever the client dialed.
	realHost string
	realPort uint16

	// transferCallback registers the real destination of a suppressed
	// ClientboundTransfer/ClientboundTransferConfiguration with whatever
	// owns this Handler (the Listener), which records it as the most
	// recent transfer target.
	transferCallback func(host string, port int32)

	// clientDialedHost/Port is what the client's own ClientIntention
	// named, captured so a later transfer redirect can point back at the
	// same address/port the client already knows how to reach.
	clientDialedHost string
	clientDialedPort uint16

	state proto.ConnectionState

	// own keypair presented to the client in place of the real server's,
	// so the proxy can decrypt (and re-encrypt toward the real server)
	// every subsequent Play-state frame.
	impersonationKey   *rsa.PrivateKey
	impersonationPub   []byte
	clientVerifyToken  []byte

	realServerID        string
	realServerPublicKey []byte
	realVerifyToken     []byte

	sessionUUID        uuid.UUID
	chatIndex          int64
	lastSeenSignatures [][]byte
	chatOffset         int
}

// NewHandler constructs a Handler bound to one Logger and (optionally)
// one Recorder and Authenticator; authn is nil when the target server
// runs in offline mode, in which case the key-agreement and chat-signing
// handlers fall back to pure pass-through. realHost/realPort are the
// real server's resolved address; transferCallback may be nil.
func NewHandler(log *logger.Logger, record *replay.Recorder, authn auth.Authenticator, localHost string, localPort int, realHost string, realPort uint16, transferCallback func(host string, port int32)) *Handler {
	return &Handler{
		log:              log,
		record:           record,
		authn:            authn,
		localHost:        localHost,
		localPort:        localPort,
		realHost:         realHost,
		realPort:         realPort,
		transferCallback: transferCallback,
		state:            proto.Handshake,
	}
}

// Process implements ProcessFunc: decode exactly one frame from
// available (if a complete one is present), dispatch it, and report how
// many bytes were consumed.
func (h *Handler) Process(p *Proxy, source proto.Endpoint, available []byte) (int, error) {
	conn := p.ClientConn
	if source == proto.Server {
		conn = p.ServerConn
	}

	payload, consumed, err := conn.DecodeFrame(available)
	if err != nil {
		return 0, fmt.Errorf("proxy: decode frame from %s: %w", source, err)
	}
	if consumed == 0 {
		return 0, nil
	}

	dir := packet.Clientbound
	if source == proto.Client {
		dir = packet.Serverbound
	}

	r := packet.NewReader(payload)
	id, err := r.VarInt()
	if err != nil {
		return 0, fmt.Errorf("proxy: read packet id from %s: %w", source, err)
	}

	pk := packet.Lookup(h.state, dir, id)
	if pk == nil {
		h.logFrame(&packet.RawPacket{PacketName: fmt.Sprintf("Unknown(0x%02x)", id), Body: payload}, source, consumed)
		h.forwardRaw(p, source, available[:consumed])
		return consumed, nil
	}

	if err := pk.ReadFrom(packet.NewReader(r.Remaining())); err != nil {
		return 0, fmt.Errorf("proxy: decode %s: %w", pk.Name(), err)
	}

	if err := h.dispatch(p, source, id, pk, available[:consumed]); err != nil {
		return 0, err
	}
	return consumed, nil
}

func (h *Handler) logFrame(pk packet.Packet, origin proto.Endpoint, bandwidth int) {
	if h.log != nil {
		h.log.Log(pk, h.state, origin, bandwidth, nil)
	}
	if h.record != nil {
		_ = h.record.Capture(pk, origin)
	}
}

// suppressedOrigin is how a packet the proxy consumed and did not
// forward is logged: the proxy stood in for whichever side would
// otherwise have received it unmodified.
func suppressedOrigin(source proto.Endpoint) proto.Endpoint {
	if source == proto.Client {
		return proto.ClientToSniffcraft
	}
	return proto.ServerToSniffcraft
}

// injectedOrigin is how a replacement packet the proxy synthesized in
// place of a suppressed original is logged: it travels the same
// direction the original would have.
func injectedOrigin(source proto.Endpoint) proto.Endpoint {
	if source == proto.Client {
		return proto.SniffcraftToServer
	}
	return proto.SniffcraftToClient
}

// forwardRaw passes a frame through byte-exact to the opposite
// Connection: the default behavior for every packet this Handler does
// not need to rewrite.
func (h *Handler) forwardRaw(p *Proxy, source proto.Endpoint, frame []byte) {
	target := p.ServerConn
	if source == proto.Server {
		target = p.ClientConn
	}
	// frame aliases the parser's accumulation buffer, which the next
	// RetrieveReady/buf.Next can compact or overwrite before the writer
	// goroutine drains this enqueued job; WriteRaw needs its own copy.
	cp := make([]byte, len(frame))
	copy(cp, frame)
	target.WriteRaw(cp)
}

// forwardUnchanged logs pk's original frame under source's plain origin
// (transmit_original_packet stays true) and forwards the original wire
// bytes verbatim — never a re-serialization, so unknown or
// forward-compatible fields this model doesn't decode survive the trip.
func (h *Handler) forwardUnchanged(p *Proxy, source proto.Endpoint, pk packet.Packet, rawFrame []byte) {
	h.logFrame(pk, source, len(rawFrame))
	h.forwardRaw(p, source, rawFrame)
}

// sendTo serializes pk under id and enqueues it directly on target,
// regardless of which Connection the triggering frame arrived on. Used
// for packets injected in addition to (not instead of) a forwarded
// original, where the injected packet's direction doesn't follow from
// the triggering packet's source.
func (h *Handler) sendTo(target *Connection, id int32, pk packet.Packet) error {
	w := packet.NewWriter()
	w.VarInt(id)
	if err := pk.WriteTo(w); err != nil {
		return fmt.Errorf("proxy: encode %s: %w", pk.Name(), err)
	}
	return target.EncodeAndWrite(w.Bytes())
}

// forward re-serializes pk (a handler's rewritten replacement) under id
// and sends it to the opposite Connection from source — the same target
// a plain forward of the original would have used.
func (h *Handler) forward(p *Proxy, source proto.Endpoint, id int32, pk packet.Packet) error {
	target := p.ServerConn
	if source == proto.Server {
		target = p.ClientConn
	}
	return h.sendTo(target, id, pk)
}

// encodeLastSeenMessages packs the chat-context signature window into
// the (opaque, version-dependent) last-seen-messages trailer this
// model's packets carry, using the same Reader/Writer primitives every
// other field uses.
func encodeLastSeenMessages(signatures [][]byte) []byte {
	w := packet.NewWriter()
	w.VarInt(int32(len(signatures)))
	for _, sig := range signatures {
		w.ByteArray(sig)
	}
	return w.Bytes()
}

// rewriteIntentionHost swaps the hostname portion a client dialed for
// the real server's resolved host, preserving any bytes after the first
// NUL — Forge/FML tags its intention hostname with a trailing marker
// that mod-loader-aware servers parse back out of the string.
func rewriteIntentionHost(original, realHost string) string {
	if i := strings.IndexByte(original, 0); i >= 0 {
		return realHost + original[i:]
	}
	return realHost
}

// dispatch routes a decoded packet to its rewrite handler, or to
// forwardRaw for the large majority that need none.
func (h *Handler) dispatch(p *Proxy, source proto.Endpoint, id int32, pk packet.Packet, rawFrame []byte) error {
	switch v := pk.(type) {
	case *packet.ClientIntention:
		return h.handleClientIntention(p, source, id, v, rawFrame)
	case *packet.ServerboundHello:
		return h.handleServerboundHello(p, source, id, v, rawFrame)
	case *packet.ClientboundHello:
		return h.handleClientboundHello(p, source, id, v, rawFrame)
	case *packet.ServerboundKey:
		return h.handleServerboundKey(p, source, id, v, rawFrame)
	case *packet.LoginCompression:
		return h.handleLoginCompression(p, source, id, v, rawFrame)
	case *packet.GameProfile:
		h.state = proto.Play
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	case *packet.ClientboundLogin:
		// Already in Play by the time this arrives; protocol>=764 sends
		// it as the first Play-state packet instead of routing entity
		// setup through GameProfile.
		return h.handleClientboundLogin(p, source, id, v, rawFrame)
	case *packet.LoginAcknowledged:
		h.state = proto.Configuration
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	case *packet.FinishConfiguration:
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	case *packet.FinishConfigurationAck:
		h.state = proto.Play
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	case *packet.ConfigurationAcknowledged:
		h.state = proto.Configuration
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	case *packet.ServerboundChatSessionUpdate:
		h.sessionUUID = v.SessionUUID
		h.lastSeenSignatures = nil
		h.chatIndex = 0
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	case *packet.ServerboundChat:
		return h.handleServerboundChat(p, source, id, v, rawFrame)
	case *packet.ServerboundChatCommand:
		return h.handleServerboundChatCommand(p, source, id, v, rawFrame)
	case *packet.ServerboundChatAck:
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	case *packet.ClientboundPlayerChat:
		return h.handleClientboundPlayerChat(p, source, id, v, rawFrame)
	case *packet.ClientboundTransfer:
		return h.handleClientboundTransfer(p, source, id, v, rawFrame)
	case *packet.ClientboundTransferConfiguration:
		return h.handleClientboundTransferConfiguration(p, source, id, v, rawFrame)
	default:
		h.forwardRaw(p, source, rawFrame)
		return nil
	}
}

// handleClientIntention drives the Handshake -> {Status, Login} split; a
// transfer intent also lands in Login, matching the client's own
// reconnect-after-transfer handshake. Always suppressed: the replacement
// carries the real server's resolved address instead of whatever the
// client dialed, so the rest of the handshake actually reaches it.
func (h *Handler) handleClientIntention(p *Proxy, source proto.Endpoint, id int32, v *packet.ClientIntention, rawFrame []byte) error {
	switch v.Intent {
	case packet.IntentStatus:
		h.state = proto.Status
	case packet.IntentLogin, packet.IntentTransfer:
		h.state = proto.Login
	}

	h.clientDialedHost = v.ServerAddress
	h.clientDialedPort = v.ServerPort

	h.logFrame(v, suppressedOrigin(source), len(rawFrame))

	rewritten := &packet.ClientIntention{
		ProtocolVersion: v.ProtocolVersion,
		ServerAddress:   rewriteIntentionHost(v.ServerAddress, h.realHost),
		ServerPort:      h.realPort,
		Intent:          v.Intent,
	}
	if err := h.forward(p, source, id, rewritten); err != nil {
		return err
	}
	h.logFrame(rewritten, injectedOrigin(source), 0)
	return nil
}

// handleServerboundHello replaces the client's self-declared identity
// with the authenticated profile's, once a real authenticator is
// configured; offline-mode targets have nothing to impersonate.
func (h *Handler) handleServerboundHello(p *Proxy, source proto.Endpoint, id int32, v *packet.ServerboundHello, rawFrame []byte) error {
	if h.authn == nil {
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	}

	h.logFrame(v, suppressedOrigin(source), len(rawFrame))

	rewritten := &packet.ServerboundHello{
		Name:          h.authn.PlayerDisplayName(),
		HasProfileKey: v.HasProfileKey,
		HasPlayerUUID: v.HasPlayerUUID,
	}
	if v.HasProfileKey {
		replacementKey := h.authn.PublicKey()
		if len(v.PublicKey) > 0 && len(replacementKey) > 0 && !bytes.Equal(v.PublicKey, replacementKey) {
			zap.S().Warnw("proxy: authenticated profile key differs from client-supplied chat key, signed chat will likely be rejected",
				"remote", p.ClientConn.RemoteAddr())
		}
		rewritten.KeyTimestamp = h.authn.KeyTimestamp()
		rewritten.PublicKey = replacementKey
		rewritten.KeySignature = h.authn.KeySignature()
	}
	if v.HasPlayerUUID {
		rewritten.PlayerUUID = h.authn.PlayerUUID()
	}

	if err := h.forward(p, source, id, rewritten); err != nil {
		return err
	}
	h.logFrame(rewritten, injectedOrigin(source), 0)
	return nil
}

// handleClientboundHello is the heart of the MITM: instead of relaying
// the real server's RSA public key to the client, the proxy substitutes
// its own, so the shared secret the client encrypts next is one only
// the proxy can recover. The real key material is cached so the proxy
// can independently complete key agreement with the real server.
func (h *Handler) handleClientboundHello(p *Proxy, source proto.Endpoint, id int32, v *packet.ClientboundHello, rawFrame []byte) error {
	h.realServerID = v.ServerID
	h.realServerPublicKey = v.PublicKey
	h.realVerifyToken = v.VerifyToken

	if h.authn == nil {
		// Offline-mode target: nothing to impersonate, pass through.
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	}

	h.logFrame(v, suppressedOrigin(source), len(rawFrame))

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		return fmt.Errorf("proxy: generate impersonation key: %w", err)
	}
	pubBytes, err := auth.RSAToBytes(&key.PublicKey)
	if err != nil {
		return fmt.Errorf("proxy: marshal impersonation key: %w", err)
	}
	h.impersonationKey = key
	h.impersonationPub = pubBytes
	h.clientVerifyToken = v.VerifyToken

	rewritten := &packet.ClientboundHello{
		ServerID:    v.ServerID,
		PublicKey:   pubBytes,
		VerifyToken: v.VerifyToken,
	}
	if err := h.forward(p, source, id, rewritten); err != nil {
		return err
	}
	h.logFrame(rewritten, injectedOrigin(source), 0)
	return nil
}

// handleServerboundKey decrypts the client's shared secret with the
// proxy's impersonation key, arms the client<->proxy cipher, then
// independently negotiates a second shared secret with the real server
// so the proxy sits decrypted in the middle of both legs.
func (h *Handler) handleServerboundKey(p *Proxy, source proto.Endpoint, id int32, v *packet.ServerboundKey, rawFrame []byte) error {
	if h.authn == nil || h.impersonationKey == nil {
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	}

	h.logFrame(v, suppressedOrigin(source), len(rawFrame))

	clientSecret, err := auth.DecryptRSA(h.impersonationKey, v.EncryptedSharedSecret)
	if err != nil {
		return fmt.Errorf("proxy: decrypt client shared secret: %w", err)
	}

	decStream, err := codec.NewCFB8Decrypter(clientSecret)
	if err != nil {
		return fmt.Errorf("proxy: install client decrypt stream: %w", err)
	}
	encStream, err := codec.NewCFB8Encrypter(clientSecret)
	if err != nil {
		return fmt.Errorf("proxy: install client encrypt stream: %w", err)
	}
	p.ClientConn.SetCipherStreams(decStream, encStream)

	if ok, err := h.authn.AuthMicrosoft(""); err != nil || !ok {
		if err != nil {
			zap.S().Warnw("proxy: microsoft auth refresh failed, continuing with cached session", "error", err)
		}
	}

	serverSecret, err := auth.GenerateSharedSecret()
	if err != nil {
		return fmt.Errorf("proxy: generate server shared secret: %w", err)
	}
	serverPub, err := auth.ParseRSAPublicKey(h.realServerPublicKey)
	if err != nil {
		return fmt.Errorf("proxy: parse real server public key: %w", err)
	}
	if err := h.authn.JoinServer(h.realServerID, serverSecret, h.realServerPublicKey); err != nil {
		return fmt.Errorf("proxy: join real server session: %w", err)
	}

	encSecret, err := auth.EncryptRSA(serverPub, serverSecret)
	if err != nil {
		return fmt.Errorf("proxy: encrypt server shared secret: %w", err)
	}
	encToken, err := auth.EncryptRSA(serverPub, h.realVerifyToken)
	if err != nil {
		return fmt.Errorf("proxy: encrypt server verify token: %w", err)
	}

	outbound := &packet.ServerboundKey{
		EncryptedSharedSecret: encSecret,
		HasVerifyToken:        true,
		EncryptedVerifyToken:  encToken,
	}
	if err := h.forward(p, source, id, outbound); err != nil {
		return err
	}
	h.logFrame(outbound, injectedOrigin(source), 0)

	serverDecStream, err := codec.NewCFB8Decrypter(serverSecret)
	if err != nil {
		return fmt.Errorf("proxy: install server decrypt stream: %w", err)
	}
	serverEncStream, err := codec.NewCFB8Encrypter(serverSecret)
	if err != nil {
		return fmt.Errorf("proxy: install server encrypt stream: %w", err)
	}
	p.ServerConn.SetCipherStreams(serverDecStream, serverEncStream)
	return nil
}

// handleLoginCompression arms both legs' compression independently;
// each Connection has its own Decoder/Encoder, so the threshold is
// applied twice rather than shared. Content is never rewritten.
func (h *Handler) handleLoginCompression(p *Proxy, source proto.Endpoint, id int32, v *packet.LoginCompression, rawFrame []byte) error {
	p.ClientConn.SetCompressionThreshold(v.Threshold)
	p.ServerConn.SetCompressionThreshold(v.Threshold)
	h.forwardUnchanged(p, source, v, rawFrame)
	return nil
}

// handleClientboundLogin forwards unchanged, then (once authenticated)
// synthesizes a fresh chat session and announces it to the real server
// via an injected ServerboundChatSessionUpdate.
func (h *Handler) handleClientboundLogin(p *Proxy, source proto.Endpoint, id int32, v *packet.ClientboundLogin, rawFrame []byte) error {
	h.forwardUnchanged(p, source, v, rawFrame)

	if h.authn == nil {
		return nil
	}

	sessionUUID, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("proxy: generate chat session uuid: %w", err)
	}
	h.sessionUUID = sessionUUID
	h.lastSeenSignatures = nil
	h.chatIndex = 0
	h.chatOffset = 0

	update := &packet.ServerboundChatSessionUpdate{
		SessionUUID:  sessionUUID,
		KeyTimestamp: h.authn.KeyTimestamp(),
		PublicKey:    h.authn.PublicKey(),
		KeySignature: h.authn.KeySignature(),
	}
	if err := h.sendTo(p.ServerConn, idServerboundChatSessionUpdate, update); err != nil {
		return err
	}
	h.logFrame(update, proto.SniffcraftToServer, 0)
	return nil
}

// handleServerboundChat suppresses the client's signed message and
// re-signs it under the authenticated profile's key, since the
// signature the client produced was bound to a session the real server
// never saw (the proxy sits between them). An empty signature from the
// authenticator is fatal: the server would silently reject the chat.
func (h *Handler) handleServerboundChat(p *Proxy, source proto.Endpoint, id int32, v *packet.ServerboundChat, rawFrame []byte) error {
	if h.authn == nil {
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	}

	h.logFrame(v, suppressedOrigin(source), len(rawFrame))

	sig, salt, ts, err := h.authn.SignMessage(v.Message, h.chatIndex, h.sessionUUID, h.lastSeenSignatures)
	if err != nil {
		return fmt.Errorf("proxy: re-sign chat message: %w", err)
	}
	if len(sig) == 0 {
		return fmt.Errorf("proxy: re-signed chat message: authenticator returned an empty signature")
	}
	h.chatIndex++

	rewritten := &packet.ServerboundChat{
		Message:          v.Message,
		Timestamp:        ts,
		Salt:             salt,
		Signature:        sig,
		LastSeenMessages: encodeLastSeenMessages(h.lastSeenSignatures),
	}
	if err := h.forward(p, source, id, rewritten); err != nil {
		return err
	}
	h.logFrame(rewritten, injectedOrigin(source), 0)
	return nil
}

// handleServerboundChatCommand follows the same suppress-and-replace
// pattern as handleServerboundChat, but re-signs nothing: the command
// text and the opaque SignedPreview tail pass through untouched, since
// the proxy never rewrites command content. That tail includes the
// client's own last-seen-messages field; the LastSeenMessages value set
// here is not serialized by ServerboundChatCommand.WriteTo, so the
// forwarded command keeps the client's original acknowledgement.
func (h *Handler) handleServerboundChatCommand(p *Proxy, source proto.Endpoint, id int32, v *packet.ServerboundChatCommand, rawFrame []byte) error {
	if h.authn == nil {
		h.forwardUnchanged(p, source, v, rawFrame)
		return nil
	}

	h.logFrame(v, suppressedOrigin(source), len(rawFrame))

	rewritten := &packet.ServerboundChatCommand{
		Command:          v.Command,
		SignedPreview:    v.SignedPreview,
		LastSeenMessages: encodeLastSeenMessages(h.lastSeenSignatures),
	}
	if err := h.forward(p, source, id, rewritten); err != nil {
		return err
	}
	h.logFrame(rewritten, injectedOrigin(source), 0)
	return nil
}

// handleClientboundPlayerChat forwards unchanged, tracks the rolling
// last-seen-signature window, and once the unacknowledged offset climbs
// past 64, synthesizes a ServerboundChatAck to the real server and
// resets it — the server expects a steady stream of these regardless of
// whether the player is actually typing.
func (h *Handler) handleClientboundPlayerChat(p *Proxy, source proto.Endpoint, id int32, v *packet.ClientboundPlayerChat, rawFrame []byte) error {
	h.forwardUnchanged(p, source, v, rawFrame)

	if !v.HasSignature {
		return nil
	}

	h.lastSeenSignatures = append(h.lastSeenSignatures, v.Signature)
	const maxTracked = 20
	if len(h.lastSeenSignatures) > maxTracked {
		h.lastSeenSignatures = h.lastSeenSignatures[len(h.lastSeenSignatures)-maxTracked:]
	}

	h.chatOffset++
	if h.chatOffset <= 64 {
		return nil
	}

	ack := &packet.ServerboundChatAck{Offset: int32(h.chatOffset)}
	if err := h.sendTo(p.ServerConn, idServerboundChatAck, ack); err != nil {
		return err
	}
	h.logFrame(ack, proto.SniffcraftToServer, 0)
	h.chatOffset = 0
	return nil
}

// handleClientboundTransfer suppresses the redirect, registers the real
// target with the listener's transfer_callback, and sends the client a
// replacement pointing back at the address it already used to reach
// this proxy.
func (h *Handler) handleClientboundTransfer(p *Proxy, source proto.Endpoint, id int32, v *packet.ClientboundTransfer, rawFrame []byte) error {
	h.logFrame(v, suppressedOrigin(source), len(rawFrame))

	if h.transferCallback != nil {
		h.transferCallback(v.Host, v.Port)
	}

	rewritten := &packet.ClientboundTransfer{
		Host: h.replacementTransferHost(),
		Port: h.replacementTransferPort(),
	}
	if err := h.forward(p, source, id, rewritten); err != nil {
		return err
	}
	h.logFrame(rewritten, injectedOrigin(source), 0)
	return nil
}

// handleClientboundTransferConfiguration is the Configuration-state
// sibling of handleClientboundTransfer; identical behavior, different
// wire id and wrapper type.
func (h *Handler) handleClientboundTransferConfiguration(p *Proxy, source proto.Endpoint, id int32, v *packet.ClientboundTransferConfiguration, rawFrame []byte) error {
	h.logFrame(v, suppressedOrigin(source), len(rawFrame))

	if h.transferCallback != nil {
		h.transferCallback(v.Host, v.Port)
	}

	rewritten := &packet.ClientboundTransferConfiguration{ClientboundTransfer: packet.ClientboundTransfer{
		Host: h.replacementTransferHost(),
		Port: h.replacementTransferPort(),
	}}
	if err := h.forward(p, source, id, rewritten); err != nil {
		return err
	}
	h.logFrame(rewritten, injectedOrigin(source), 0)
	return nil
}

// replacementTransferHost is the address a transferred client is
// redirected back to: the hostname it originally dialed to reach this
// proxy, captured from ClientIntention, falling back to the configured
// listen address if none was captured yet.
func (h *Handler) replacementTransferHost() string {
	if h.clientDialedHost != "" {
		return h.clientDialedHost
	}
	return h.localHost
}

// replacementTransferPort is the port counterpart of
// replacementTransferHost: the port the client's ClientIntention named,
// falling back to the configured listen port if none was captured yet.
func (h *Handler) replacementTransferPort() int32 {
	if h.clientDialedPort != 0 {
		return int32(h.clientDialedPort)
	}
	return int32(h.localPort)
}
