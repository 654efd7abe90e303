// Package packet is the "assumed library" spec.md §1 treats as an
// external collaborator: given a connection state, a numeric id, and a
// direction, produce a typed packet able to read/write itself from/to a
// byte stream and emit a structured descriptor for the logger's detailed
// dump mode. Field layouts are grounded on the handler bodies in
// sniffcraft/src/MinecraftProxy.cpp, generalized to idiomatic Go value
// types instead of protocolCraft's C++ class hierarchy.
package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/adepierre/SniffCraft/pkg/proto"
	"github.com/adepierre/SniffCraft/pkg/proto/varint"
)

// Packet is implemented by every typed packet this module knows about.
// Name identifies the packet for logging and statistics. The numeric
// wire id is not part of the interface; it is the key under which the
// packet is registered (see Lookup).
type Packet interface {
	Name() string
	ReadFrom(r *Reader) error
	WriteTo(w *Writer) error
	Descriptor() map[string]any
}

// Reader wraps a packet body so handler code can pull fields off it with
// the same primitives the wire codec itself uses.
type Reader struct {
	buf *bytes.Reader
}

// NewReader wraps b (the frame payload after the packet id has already
// been consumed) for field-level decoding.
func NewReader(b []byte) *Reader { return &Reader{buf: bytes.NewReader(b)} }

func (r *Reader) remaining() []byte {
	b := make([]byte, r.buf.Len())
	_, _ = r.buf.Read(b)
	_, _ = r.buf.Seek(int64(-len(b)), 1)
	return b
}

// VarInt reads a VarInt field.
func (r *Reader) VarInt() (int32, error) {
	b := r.remaining()
	v, n, err := varint.ReadVarInt(b)
	if err != nil {
		return 0, err
	}
	if _, err := r.buf.Seek(int64(n), 1); err != nil {
		return 0, err
	}
	return v, nil
}

// VarLong mirrors VarInt at 64-bit width.
func (r *Reader) VarLong() (int64, error) {
	b := r.remaining()
	v, n, err := varint.ReadVarLong(b)
	if err != nil {
		return 0, err
	}
	if _, err := r.buf.Seek(int64(n), 1); err != nil {
		return 0, err
	}
	return v, nil
}

// String reads a VarInt-length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	n, err := r.VarInt()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.buf.Read(b); err != nil {
		return "", fmt.Errorf("packet: short string: %w", err)
	}
	return string(b), nil
}

// UnsignedShort reads a big-endian u16 (used for ports).
func (r *Reader) UnsignedShort() (uint16, error) {
	var v uint16
	if err := binary.Read(r.buf, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// Long reads a big-endian i64.
func (r *Reader) Long() (int64, error) {
	var v int64
	if err := binary.Read(r.buf, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// Bool reads a single-byte boolean.
func (r *Reader) Bool() (bool, error) {
	b, err := r.buf.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// Byte reads a single raw byte.
func (r *Reader) Byte() (byte, error) { return r.buf.ReadByte() }

// UUID reads a raw 16-byte UUID (no length prefix, as Minecraft encodes it).
func (r *Reader) UUID() (uuid.UUID, error) {
	var b [16]byte
	if _, err := r.buf.Read(b[:]); err != nil {
		return uuid.UUID{}, fmt.Errorf("packet: short uuid: %w", err)
	}
	return uuid.UUID(b), nil
}

// ByteArray reads a VarInt-length-prefixed byte array.
func (r *Reader) ByteArray() ([]byte, error) {
	n, err := r.VarInt()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := r.buf.Read(b); err != nil {
		return nil, fmt.Errorf("packet: short byte array: %w", err)
	}
	return b, nil
}

// Remaining returns every byte not yet consumed, verbatim.
func (r *Reader) Remaining() []byte { return r.remaining() }

// Writer builds a packet body field by field, in the same wire format
// Reader parses.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) VarInt(v int32)  { w.buf.Write(varint.WriteVarInt(nil, v)) }
func (w *Writer) VarLong(v int64) { w.buf.Write(varint.WriteVarLong(nil, v)) }
func (w *Writer) String(s string) {
	w.VarInt(int32(len(s)))
	w.buf.WriteString(s)
}
func (w *Writer) UnsignedShort(v uint16) { _ = binary.Write(&w.buf, binary.BigEndian, v) }
func (w *Writer) Long(v int64)           { _ = binary.Write(&w.buf, binary.BigEndian, v) }
func (w *Writer) Bool(b bool) {
	if b {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}
func (w *Writer) Byte(b byte) { w.buf.WriteByte(b) }
func (w *Writer) UUID(u uuid.UUID) { w.buf.Write(u[:]) }
func (w *Writer) ByteArray(b []byte) {
	w.VarInt(int32(len(b)))
	w.buf.Write(b)
}
func (w *Writer) Raw(b []byte) { w.buf.Write(b) }

// Bytes returns the accumulated body.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Direction distinguishes serverbound from clientbound within a state's
// id table, since the two directions number packets independently.
type Direction int

const (
	Serverbound Direction = iota
	Clientbound
)

// Key identifies one entry in the packet factory: the state the
// connection must be in, which direction the frame travels, and its
// numeric id within that (state, direction) table.
type Key struct {
	State     proto.ConnectionState
	Direction Direction
	ID        int32
}
