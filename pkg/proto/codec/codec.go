// Package codec implements the wire framing described by the protocol:
// a VarInt length prefix wrapping an optional zlib compression envelope,
// with an optional AES-CFB8 cipher stage applied over the whole framed
// byte stream. It is grounded on the
// bufio.Reader/bufio.Writer-wrapped connection in go.minekube.com/gate's
// pkg/proxy/connection.go, generalized to the compression/cipher layering
// this protocol requires.
package codec

import (
	"bytes"
	"compress/zlib"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"

	"github.com/adepierre/SniffCraft/pkg/proto/varint"
)

// MaxCompressedPacketLen bounds any compressed frame to defend against a
// malicious or corrupt length prefix exhausting memory.
const MaxCompressedPacketLen = 200 * 1024

// ErrMalformedLength is fatal for the connection it was read on: the
// length-prefix VarInt overflowed its maximum width.
var ErrMalformedLength = errors.New("codec: malformed length varint")

// ErrCompressedTooLarge is fatal for the connection: a compressed frame
// exceeded MaxCompressedPacketLen.
var ErrCompressedTooLarge = errors.New("codec: compressed frame exceeds limit")

// Decoder parses framed, optionally compressed packets from byte slices
// that have already been decrypted; it has no cipher stage of its own.
// It is not safe for concurrent use; each Connection owns exactly one
// Decoder on its read path.
type Decoder struct {
	compressionThreshold int32 // -1 disables the compression envelope
}

// NewDecoder constructs a Decoder with compression disabled.
func NewDecoder() *Decoder {
	return &Decoder{compressionThreshold: -1}
}

// SetCompressionThreshold arms or disarms the compression envelope. It is
// called once, from the LoginCompression handler, and applies to every
// subsequent frame this Decoder parses.
func (d *Decoder) SetCompressionThreshold(threshold int32) {
	d.compressionThreshold = threshold
}

// DecodeFrame attempts to parse exactly one frame from the front of buf
// (already decrypted, if a cipher stage is active upstream). It returns
// the frame's payload (packet id + fields, after stripping the length and
// compression envelopes) and the number of bytes of buf consumed by the
// whole frame, or 0 if buf does not yet contain a complete frame.
func (d *Decoder) DecodeFrame(buf []byte) (payload []byte, consumed int, err error) {
	length, lenBytes, err := varint.ReadVarInt(buf)
	if errors.Is(err, varint.ErrShort) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedLength, err)
	}
	total := lenBytes + int(length)
	if len(buf) < total {
		return nil, 0, nil
	}
	frame := buf[lenBytes:total]

	if d.compressionThreshold < 0 {
		return frame, total, nil
	}

	dataLength, n, err := varint.ReadVarInt(frame)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedLength, err)
	}
	rest := frame[n:]
	if dataLength == 0 {
		return rest, total, nil
	}
	if len(rest) > MaxCompressedPacketLen {
		return nil, 0, ErrCompressedTooLarge
	}
	zr, err := zlib.NewReader(bytes.NewReader(rest))
	if err != nil {
		return nil, 0, fmt.Errorf("codec: zlib init: %w", err)
	}
	defer zr.Close()
	raw := make([]byte, 0, dataLength)
	out := bytes.NewBuffer(raw)
	if _, err := io.CopyN(out, zr, int64(dataLength)); err != nil {
		return nil, 0, fmt.Errorf("codec: zlib inflate: %w", err)
	}
	return out.Bytes(), total, nil
}

// Encoder serializes a packet payload (id + fields) into the framed wire
// representation: optional compression envelope, then the length prefix.
type Encoder struct {
	compressionThreshold int32
	writer               cipher.Stream
}

// NewEncoder constructs an Encoder with compression disabled.
func NewEncoder() *Encoder {
	return &Encoder{compressionThreshold: -1}
}

// SetCompressionThreshold mirrors Decoder.SetCompressionThreshold for the
// write direction; both directions are armed together by the
// LoginCompression handler.
func (e *Encoder) SetCompressionThreshold(threshold int32) {
	e.compressionThreshold = threshold
}

// SetWriter installs the cipher stage used to encrypt the fully framed
// bytes before they reach the socket.
func (e *Encoder) SetWriter(w cipher.Stream) {
	e.writer = w
}

// EncodeFrame serializes payload (packet id + fields, already
// serialized) into a complete frame ready to hand to the writer.
func (e *Encoder) EncodeFrame(payload []byte) ([]byte, error) {
	var body []byte
	if e.compressionThreshold < 0 {
		body = payload
	} else if int32(len(payload)) < e.compressionThreshold {
		body = varint.WriteVarInt(make([]byte, 0, len(payload)+1), 0)
		body = append(body, payload...)
	} else {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, fmt.Errorf("codec: zlib deflate: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("codec: zlib deflate close: %w", err)
		}
		body = varint.WriteVarInt(make([]byte, 0, buf.Len()+varint.MaxVarIntLen), int32(len(payload)))
		body = append(body, buf.Bytes()...)
	}
	frame := varint.WriteVarInt(make([]byte, 0, len(body)+varint.MaxVarIntLen), int32(len(body)))
	frame = append(frame, body...)
	if e.writer != nil {
		out := make([]byte, len(frame))
		e.writer.XORKeyStream(out, frame)
		return out, nil
	}
	return frame, nil
}

