package proxy

import (
	"bytes"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/adepierre/SniffCraft/pkg/proto"
)

// dataSourceEntry is one notification in the parser's FIFO: "N more
// bytes arrived from this Endpoint". Grounded on spec.md §4.4's
// data_sources queue and sniffcraft/src/BaseProxy.cpp's
// ReadIncomingData.
type dataSourceEntry struct {
	endpoint proto.Endpoint
	bytes    int
}

// ProcessFunc is the single extension point spec.md's design notes call
// out as replacing the BaseProxy -> MinecraftProxy inheritance chain:
// given all currently available bytes for source, consume as many as
// form complete frames and return how many were consumed. The three-
// way contract (0 / n>available / 0<n<=available) is spec.md §4.4's.
type ProcessFunc func(p *Proxy, source proto.Endpoint, available []byte) (consumed int, err error)

// Proxy owns exactly two Connections and runs the single parser
// goroutine that is the sole consumer of decoded bytes — this is what
// lets ProcessFunc run lock-free against the accumulation buffers.
// Grounded on sniffcraft/src/BaseProxy.cpp for the data_sources
// reconciliation algorithm.
type Proxy struct {
	ClientConn *Connection
	ServerConn *Connection

	process ProcessFunc

	mu          sync.Mutex
	cond        *sync.Cond
	dataSources []dataSourceEntry

	clientReceived bytes.Buffer // parser-goroutine-only, no lock needed
	serverReceived bytes.Buffer

	closed atomic.Bool
	done   chan struct{}
}

// New constructs a Proxy around already-dialed client/server
// connections. process defaults to transparent pass-through
// (BaseProxy-equivalent) if nil.
func New(client, server *Connection, process ProcessFunc) *Proxy {
	if process == nil {
		process = passthroughProcess
	}
	p := &Proxy{
		ClientConn: client,
		ServerConn: server,
		process:    process,
		done:       make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	client.SetCallback(func(n int) { p.notify(proto.Client, n) })
	server.SetCallback(func(n int) { p.notify(proto.Server, n) })
	return p
}

// notify is the on-new-data callback invoked (per spec.md §4.3) while
// the Connection's own read mutex is still held; it must not block.
func (p *Proxy) notify(source proto.Endpoint, n int) {
	p.mu.Lock()
	p.dataSources = append(p.dataSources, dataSourceEntry{endpoint: source, bytes: n})
	p.mu.Unlock()
	p.cond.Signal()
}

// Start launches both Connections and the parser goroutine.
func (p *Proxy) Start() {
	p.ClientConn.Start()
	p.ServerConn.Start()
	go p.parseLoop()
}

// Running reports whether Close has not yet been called. The Listener
// does not use it; it waits on Done to drop a finished Proxy.
func (p *Proxy) Running() bool { return !p.closed.Load() }

// Close tears down both Connections; idempotent.
func (p *Proxy) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	_ = p.ClientConn.Close()
	_ = p.ServerConn.Close()
	p.cond.Signal()
}

// Done returns a channel closed once the parser goroutine has exited.
func (p *Proxy) Done() <-chan struct{} { return p.done }

func (p *Proxy) parseLoop() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for len(p.dataSources) == 0 && !p.closed.Load() {
			p.cond.Wait()
		}
		if len(p.dataSources) == 0 && p.closed.Load() {
			p.mu.Unlock()
			return
		}
		entry := p.dataSources[0]
		p.dataSources = p.dataSources[1:]
		p.mu.Unlock()

		p.drainAndProcess(entry.endpoint)

		if p.ClientConn.Closed() || p.ServerConn.Closed() {
			p.Close()
		}
	}
}

// drainAndProcess pulls every currently-ready byte for endpoint into
// its accumulation buffer, then repeatedly invokes process until it
// stops consuming (spec.md §4.4's parsing loop).
func (p *Proxy) drainAndProcess(endpoint proto.Endpoint) {
	conn, buf := p.connAndBuffer(endpoint)
	conn.RetrieveReady(buf)

	for buf.Len() > 0 {
		consumed, err := p.process(p, endpoint, buf.Bytes())
		if err != nil {
			zap.S().Warnw("proxy: fatal error processing frame, closing", "endpoint", endpoint, "error", err)
			p.Close()
			return
		}
		if consumed == 0 {
			return
		}
		if consumed > buf.Len() {
			zap.S().Warnw("proxy: process consumed more than available, clamping", "endpoint", endpoint, "consumed", consumed, "available", buf.Len())
			consumed = buf.Len()
		}
		buf.Next(consumed)
		p.reconcileDataSources(endpoint, consumed)
	}
}

func (p *Proxy) connAndBuffer(endpoint proto.Endpoint) (*Connection, *bytes.Buffer) {
	if endpoint == proto.Client {
		return p.ClientConn, &p.clientReceived
	}
	return p.ServerConn, &p.serverReceived
}

// reconcileDataSources subtracts n bytes from data_sources entries
// belonging to endpoint, walking from the head and skipping (without
// reordering) entries for the other endpoint — spec.md §4.4's
// resolution of the Open Question in §9 about whether other-endpoint
// entries may be interleaved before a fully-consumed prefix.
func (p *Proxy) reconcileDataSources(endpoint proto.Endpoint, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	remaining := n
	out := p.dataSources[:0]
	for _, e := range p.dataSources {
		if remaining == 0 || e.endpoint != endpoint {
			out = append(out, e)
			continue
		}
		if e.bytes <= remaining {
			remaining -= e.bytes
			continue
		}
		e.bytes -= remaining
		remaining = 0
		out = append(out, e)
	}
	p.dataSources = out
}

// passthroughProcess is the BaseProxy-equivalent default: forward bytes
// verbatim to the opposite Connection.
func passthroughProcess(p *Proxy, source proto.Endpoint, available []byte) (int, error) {
	var target *Connection
	if source == proto.Client {
		target = p.ServerConn
	} else {
		target = p.ClientConn
	}
	// available aliases the parser's accumulation buffer, which the next
	// RetrieveReady/buf.Next can compact or overwrite before the writer
	// goroutine drains this enqueued job; WriteRaw needs its own copy.
	cp := make([]byte, len(available))
	copy(cp, available)
	target.WriteRaw(cp)
	return len(available), nil
}
