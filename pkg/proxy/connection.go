package proxy

import (
	"bytes"
	"crypto/cipher"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/adepierre/SniffCraft/pkg/proto/codec"
)

// ErrClosedConn is returned by Write once a Connection has closed.
var ErrClosedConn = errors.New("connection is closed")

const (
	readBufferSize        = 1024
	steadyStateIdleTimeout = 60 * time.Second
	firstReadIdleTimeout   = 10 * time.Second
)

// writeJob is one entry in a Connection's outbound FIFO: the bytes to
// send, and whether they must pass through the cipher stage first.
type writeJob struct {
	bytes      []byte
	runThroughCipher bool
}

// onDataFunc is invoked once per completed async read, with the read
// mutex still held — load-bearing, per spec.md §4.3, so the Proxy's
// data_sources queue can never observe a byte count that
// ready_received_data does not yet reflect.
type onDataFunc func(n int)

// Connection owns a single TCP socket: an async reader goroutine, a
// serialized writer goroutine, and the shared buffers/FIFO between
// them. Grounded on go.minekube.com/gate's pkg/proxy/connection.go for
// the goroutine/atomic-flag shape, and on
// sniffcraft/src/Connection.cpp for the exact read/write/timeout
// semantics spec.md §4.3 requires.
type Connection struct {
	conn net.Conn

	closed          atomic.Bool
	knownDisconnect atomic.Bool

	readMu           sync.Mutex
	readyReceived    bytes.Buffer
	onData           onDataFunc
	decoder          *codec.Decoder
	decryptStream    cipher.Stream

	writeMu    sync.Mutex
	writeCond  *sync.Cond
	writeQueue []writeJob
	encoder    *codec.Encoder
	encryptStream cipher.Stream

	idleTimer     *time.Timer
	idleTimeout   time.Duration
	firstRead     bool

	writerDone chan struct{}
}

// NewConnection wraps base. Call SetCallback then Start to begin
// pumping bytes.
func NewConnection(base net.Conn) *Connection {
	c := &Connection{
		conn:        base,
		decoder:     codec.NewDecoder(),
		encoder:     codec.NewEncoder(),
		firstRead:   true,
		idleTimeout: steadyStateIdleTimeout,
		writerDone:  make(chan struct{}),
	}
	c.writeCond = sync.NewCond(&c.writeMu)
	return c
}

// SetIdleTimeout overrides the steady-state read-idle timeout (default
// 60s); the very first read always uses firstReadIdleTimeout regardless
// of this setting, matching the original implementation's more
// impatient login-phase timeout.
func (c *Connection) SetIdleTimeout(d time.Duration) {
	c.idleTimeout = d
}

// SetCallback installs the on-new-data callback. Must be called before Start.
func (c *Connection) SetCallback(f onDataFunc) {
	c.readMu.Lock()
	c.onData = f
	c.readMu.Unlock()
}

// SetCompressionThreshold arms the compression envelope on both the
// read and write paths from the next frame onward.
func (c *Connection) SetCompressionThreshold(threshold int32) {
	c.decoder.SetCompressionThreshold(threshold)
	c.encoder.SetCompressionThreshold(threshold)
}

// SetCipherStreams installs the AES-CFB8 cipher stage under the write
// mutex, so the swap is atomic with respect to in-flight writes (spec.md
// §4.2).
func (c *Connection) SetCipherStreams(decrypt, encrypt cipher.Stream) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.decryptStream = decrypt
	c.encryptStream = encrypt
	c.encoder.SetWriter(encrypt)
}

// Start schedules the first async read and spawns the writer goroutine.
func (c *Connection) Start() {
	c.resetIdleTimer()
	go c.readLoop()
	go c.writeLoop()
}

func (c *Connection) resetIdleTimer() {
	timeout := c.idleTimeout
	if c.firstRead {
		timeout = firstReadIdleTimeout
	}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.idleTimer = time.AfterFunc(timeout, func() {
		zap.S().Debugw("connection: read-idle timeout, closing", "remote", c.conn.RemoteAddr())
		_ = c.Close()
	})
}

func (c *Connection) readLoop() {
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			plain := buf[:n]
			if c.decryptStream != nil {
				out := make([]byte, n)
				c.decryptStream.XORKeyStream(out, plain)
				plain = out
			}

			c.readMu.Lock()
			c.readyReceived.Write(plain)
			c.firstRead = false
			if c.onData != nil {
				c.onData(n)
			}
			c.readMu.Unlock()
			c.resetIdleTimer()
		}
		if err != nil {
			if !c.knownDisconnect.Load() {
				zap.S().Debugw("connection: read error, closing", "error", err, "remote", c.conn.RemoteAddr())
			}
			_ = c.Close()
			return
		}
	}
}

// RetrieveReady moves every accumulated, already-decrypted byte into
// the caller's buffer and clears the internal one.
func (c *Connection) RetrieveReady(dst *bytes.Buffer) {
	c.readMu.Lock()
	dst.Write(c.readyReceived.Bytes())
	c.readyReceived.Reset()
	c.readMu.Unlock()
}

// Write enqueues already-framed bytes for the writer goroutine.
// runThroughCipher controls whether the cipher stage (if armed)
// transforms them before they hit the socket: a freshly constructed
// frame from EncodeAndWrite has already been enciphered as part of
// EncodeFrame (pass false here), while bytes forwarded byte-exactly
// from the opposite Connection's original frame still need this
// Connection's own cipher applied on their way out (pass true).
func (c *Connection) Write(b []byte, runThroughCipher bool) {
	c.writeMu.Lock()
	c.writeQueue = append(c.writeQueue, writeJob{bytes: b, runThroughCipher: runThroughCipher})
	c.writeMu.Unlock()
	c.writeCond.Signal()
}

func (c *Connection) writeLoop() {
	defer close(c.writerDone)
	for {
		c.writeMu.Lock()
		for len(c.writeQueue) == 0 && !c.closed.Load() {
			c.writeCond.Wait()
		}
		if len(c.writeQueue) == 0 && c.closed.Load() {
			c.writeMu.Unlock()
			return
		}
		job := c.writeQueue[0]
		c.writeQueue = c.writeQueue[1:]
		out := job.bytes
		if job.runThroughCipher && c.encryptStream != nil {
			enciphered := make([]byte, len(out))
			c.encryptStream.XORKeyStream(enciphered, out)
			out = enciphered
		}
		c.writeMu.Unlock()

		if _, err := c.conn.Write(out); err != nil {
			if !c.knownDisconnect.Load() {
				zap.S().Debugw("connection: write error, closing", "error", err, "remote", c.conn.RemoteAddr())
			}
			_ = c.Close()
		}
	}
}

// EncodeAndWrite frames payload (packet id + fields) through this
// Connection's Encoder (compression + cipher) and enqueues the result
// without re-enciphering it a second time in the writer.
func (c *Connection) EncodeAndWrite(payload []byte) error {
	c.writeMu.Lock()
	frame, err := c.encoder.EncodeFrame(payload)
	c.writeMu.Unlock()
	if err != nil {
		return err
	}
	c.Write(frame, false)
	return nil
}

// WriteRaw enqueues bytes that were received byte-exact from the
// opposite Connection's frame (pass-through forwarding) for this
// Connection's cipher stage and socket.
func (c *Connection) WriteRaw(b []byte) {
	c.Write(b, true)
}

// Close is idempotent: it marks the connection closed, closes the
// socket, and wakes the writer so it can exit.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosedConn
	}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	err := c.conn.Close()
	c.writeCond.Signal()
	return err
}

// CloseKnown marks the next close as expected (no error logging).
func (c *Connection) CloseKnown() error {
	c.knownDisconnect.Store(true)
	return c.Close()
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool { return c.closed.Load() }

// WaitWriterDone blocks until the writer goroutine has exited, for
// orderly teardown.
func (c *Connection) WaitWriterDone() { <-c.writerDone }

// RemoteAddr exposes the underlying socket's remote address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// DecodeFrame attempts to parse exactly one frame from the front of buf
// using this connection's Decoder (compression-aware).
func (c *Connection) DecodeFrame(buf []byte) (payload []byte, consumed int, err error) {
	return c.decoder.DecodeFrame(buf)
}
