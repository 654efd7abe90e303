package logger

import (
	"time"

	"github.com/adepierre/SniffCraft/pkg/packet"
	"github.com/adepierre/SniffCraft/pkg/proto"
)

// Item is one entry enqueued for the worker: a parsed packet plus the
// context the sinks need to render it. BandwidthBytes is the frame's
// on-the-wire size (length prefix + payload) and is 0 for
// synthesized/injected packets that never touched the wire.
type Item struct {
	Packet          packet.Packet
	Timestamp       time.Time
	ConnectionState proto.ConnectionState
	Origin          proto.Endpoint
	BandwidthBytes  int
	RawBytes        []byte // only populated when the raw-bytes sink option is on
}

// RecapItem tracks aggregate count/bandwidth for one packet-name bucket.
type RecapItem struct {
	Count          int64
	BandwidthBytes int64
}
