// Package listener owns the accept loop and per-connection Proxy
// lifecycle: dialing the real server (after resolving its address via
// Minecraft's _minecraft._tcp SRV convention), constructing a fresh
// Logger/Recorder/Handler triple per connection, and reaping finished
// Proxies. Grounded on sniffcraft/src/main.cpp's accept loop and
// go.minekube.com/gate's listener setup in cmd/gate/gate.go.
package listener

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// srvCacheSize bounds the DNS SRV result cache; a sniffing proxy only
// ever targets a handful of distinct servers in one run.
const srvCacheSize = 64

// dnsTimeout bounds a single SRV query round trip.
const dnsTimeout = 3 * time.Second

type srvResult struct {
	host string
	port uint16
}

// Resolver looks up the Minecraft SRV record for a hostname against a
// configurable DNS server, caching successful results. No DNS library
// appears anywhere in the example corpus, so the wire query/response is
// hand-assembled here (see DESIGN.md).
type Resolver struct {
	serverAddr string // "host:port" of the resolver to query

	mu    sync.Mutex
	cache *lru.Cache
}

// NewResolver builds a Resolver querying serverAddr (e.g. "8.8.8.8:53").
func NewResolver(serverAddr string) *Resolver {
	return &Resolver{serverAddr: serverAddr, cache: lru.New(srvCacheSize)}
}

// Resolve returns the (host, port) a Minecraft client would actually
// connect to for address. If address already carries an explicit port
// (host:port), it is returned unchanged — SRV lookup only applies to a
// bare hostname, matching the client's own connection logic. On any SRV
// failure (no record, timeout, malformed response) it falls back to
// (address, 25565).
func (r *Resolver) Resolve(address string) (string, uint16) {
	if host, portStr, err := net.SplitHostPort(address); err == nil {
		if port, convErr := strconv.ParseUint(portStr, 10, 16); convErr == nil {
			return host, uint16(port)
		}
	}

	r.mu.Lock()
	if v, ok := r.cache.Get(address); ok {
		r.mu.Unlock()
		res := v.(srvResult)
		return res.host, res.port
	}
	r.mu.Unlock()

	host, port, err := r.lookupSRV(address)
	if err != nil {
		return address, 25565
	}

	r.mu.Lock()
	r.cache.Add(address, srvResult{host: host, port: port})
	r.mu.Unlock()
	return host, port
}

func (r *Resolver) lookupSRV(address string) (string, uint16, error) {
	name := "_minecraft._tcp." + strings.TrimSuffix(address, ".") + "."

	conn, err := net.DialTimeout("udp", r.serverAddr, dnsTimeout)
	if err != nil {
		return "", 0, fmt.Errorf("listener: dial resolver: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(dnsTimeout))

	query := buildSRVQuery(name)
	if _, err := conn.Write(query); err != nil {
		return "", 0, fmt.Errorf("listener: send srv query: %w", err)
	}

	resp := make([]byte, 512)
	n, err := conn.Read(resp)
	if err != nil {
		return "", 0, fmt.Errorf("listener: read srv response: %w", err)
	}

	return parseSRVResponse(resp[:n])
}

// buildSRVQuery hand-assembles a minimal DNS query for one SRV record,
// per RFC 1035 §4.1.
func buildSRVQuery(name string) []byte {
	const (
		typeSRV  = 33
		classINET = 1
	)
	var msg []byte

	id := uint16(0x1234)
	header := make([]byte, 12)
	binary.BigEndian.PutUint16(header[0:2], id)
	binary.BigEndian.PutUint16(header[2:4], 0x0100) // standard query, recursion desired
	binary.BigEndian.PutUint16(header[4:6], 1)      // QDCOUNT
	msg = append(msg, header...)

	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		msg = append(msg, byte(len(label)))
		msg = append(msg, label...)
	}
	msg = append(msg, 0x00)

	qtype := make([]byte, 4)
	binary.BigEndian.PutUint16(qtype[0:2], typeSRV)
	binary.BigEndian.PutUint16(qtype[2:4], classINET)
	msg = append(msg, qtype...)
	return msg
}

// parseSRVResponse extracts the target host and port from the first
// answer's SRV record, decompressing the target name if it uses a DNS
// compression pointer back into the message.
func parseSRVResponse(msg []byte) (string, uint16, error) {
	if len(msg) < 12 {
		return "", 0, fmt.Errorf("listener: dns response too short")
	}
	ancount := binary.BigEndian.Uint16(msg[6:8])
	qdcount := binary.BigEndian.Uint16(msg[4:6])
	if ancount == 0 {
		return "", 0, fmt.Errorf("listener: no SRV record found")
	}

	offset := 12
	for i := 0; i < int(qdcount); i++ {
		var err error
		offset, err = skipName(msg, offset)
		if err != nil {
			return "", 0, err
		}
		offset += 4 // QTYPE + QCLASS
	}

	for i := 0; i < int(ancount); i++ {
		var err error
		offset, err = skipName(msg, offset)
		if err != nil {
			return "", 0, err
		}
		if offset+10 > len(msg) {
			return "", 0, fmt.Errorf("listener: truncated answer record")
		}
		rdlength := int(binary.BigEndian.Uint16(msg[offset+8 : offset+10]))
		rdataStart := offset + 10
		if rdataStart+rdlength > len(msg) {
			return "", 0, fmt.Errorf("listener: truncated rdata")
		}

		rtype := binary.BigEndian.Uint16(msg[offset : offset+2])
		if rtype == 33 && rdlength >= 6 {
			port := binary.BigEndian.Uint16(msg[rdataStart+4 : rdataStart+6])
			target, _, err := readName(msg, rdataStart+6)
			if err != nil {
				return "", 0, err
			}
			return target, port, nil
		}
		offset = rdataStart + rdlength
	}
	return "", 0, fmt.Errorf("listener: no SRV record in answers")
}

// skipName advances past a (possibly compressed) name starting at
// offset and returns the offset immediately after it.
func skipName(msg []byte, offset int) (int, error) {
	_, next, err := readName(msg, offset)
	return next, err
}

// readName decodes a DNS name starting at offset, following every
// compression pointer it meets along the way, and returns the name plus the offset
// immediately following its on-wire representation at the call site
// (not following any pointer).
func readName(msg []byte, offset int) (string, int, error) {
	var labels []string
	start := offset
	jumped := false
	pos := offset

	for {
		if pos >= len(msg) {
			return "", 0, fmt.Errorf("listener: name runs past end of message")
		}
		length := int(msg[pos])
		if length == 0 {
			pos++
			break
		}
		if length&0xC0 == 0xC0 {
			if pos+1 >= len(msg) {
				return "", 0, fmt.Errorf("listener: truncated compression pointer")
			}
			pointer := int(binary.BigEndian.Uint16(msg[pos:pos+2]) & 0x3FFF)
			if !jumped {
				start = pos + 2
			}
			pos = pointer
			jumped = true
			continue
		}
		pos++
		if pos+length > len(msg) {
			return "", 0, fmt.Errorf("listener: truncated name label")
		}
		labels = append(labels, string(msg[pos:pos+length]))
		pos += length
	}

	end := pos
	if jumped {
		end = start
	}
	return strings.Join(labels, "."), end, nil
}
