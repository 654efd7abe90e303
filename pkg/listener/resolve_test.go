package listener

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveShortCircuitsExplicitPort(t *testing.T) {
	r := NewResolver("8.8.8.8:53")
	host, port := r.Resolve("play.example.com:25580")
	assert.Equal(t, "play.example.com", host)
	assert.EqualValues(t, 25580, port)
}

func TestResolveFallsBackOnUnreachableResolver(t *testing.T) {
	r := NewResolver("127.0.0.1:1")
	host, port := r.Resolve("play.example.com")
	assert.Equal(t, "play.example.com", host)
	assert.EqualValues(t, 25565, port)
}

func TestParseSRVResponseExtractsTargetAndPort(t *testing.T) {
	msg := buildFakeSRVResponse(t, "mc.backend.example.com", 25577)
	host, port, err := parseSRVResponse(msg)
	require.NoError(t, err)
	assert.Equal(t, "mc.backend.example.com", host)
	assert.EqualValues(t, 25577, port)
}

// buildFakeSRVResponse hand-assembles a minimal one-answer DNS response
// carrying a single SRV record, mirroring what a real resolver would
// send back for a _minecraft._tcp.<host> query.
func buildFakeSRVResponse(t *testing.T, target string, port uint16) []byte {
	t.Helper()
	var msg []byte

	header := make([]byte, 12)
	binary.BigEndian.PutUint16(header[0:2], 0x1234)
	binary.BigEndian.PutUint16(header[2:4], 0x8180)
	binary.BigEndian.PutUint16(header[4:6], 1) // QDCOUNT
	binary.BigEndian.PutUint16(header[6:8], 1) // ANCOUNT
	msg = append(msg, header...)

	name := "_minecraft._tcp.play.example.com"
	msg = append(msg, encodeName(name)...)
	qtype := make([]byte, 4)
	binary.BigEndian.PutUint16(qtype[0:2], 33)
	binary.BigEndian.PutUint16(qtype[2:4], 1)
	msg = append(msg, qtype...)

	msg = append(msg, encodeName(name)...)
	rrHead := make([]byte, 8)
	binary.BigEndian.PutUint16(rrHead[0:2], 33) // TYPE SRV
	binary.BigEndian.PutUint16(rrHead[2:4], 1)  // CLASS IN
	binary.BigEndian.PutUint32(rrHead[4:8], 300) // TTL
	msg = append(msg, rrHead...)

	rdata := make([]byte, 6)
	binary.BigEndian.PutUint16(rdata[0:2], 0) // priority
	binary.BigEndian.PutUint16(rdata[2:4], 0) // weight
	binary.BigEndian.PutUint16(rdata[4:6], port)
	rdata = append(rdata, encodeName(target)...)

	rdlength := make([]byte, 2)
	binary.BigEndian.PutUint16(rdlength, uint16(len(rdata)))
	msg = append(msg, rdlength...)
	msg = append(msg, rdata...)

	return msg
}

func encodeName(name string) []byte {
	var out []byte
	start := 0
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '.' {
			label := name[start:i]
			out = append(out, byte(len(label)))
			out = append(out, label...)
			start = i + 1
		}
	}
	out = append(out, 0x00)
	return out
}
