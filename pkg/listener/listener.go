package listener

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adepierre/SniffCraft/pkg/auth"
	"github.com/adepierre/SniffCraft/pkg/config"
	"github.com/adepierre/SniffCraft/pkg/logger"
	"github.com/adepierre/SniffCraft/pkg/proxy"
	"github.com/adepierre/SniffCraft/pkg/replay"
)

// defaultProtocolVersion stamps the replay metadata sidecar; the proxy
// never negotiates a protocol version itself, it only observes whatever
// the real client/server agree on, so this is informational only.
const defaultProtocolVersion = 767

// acceptBurst allows a short burst of near-simultaneous connections
// (e.g. several players joining at once) before the steady-state rate
// applies.
const acceptBurst = 8

// Listener owns the accept loop and the set of in-flight Proxies.
type Listener struct {
	cfg      *config.Config
	confPath string
	resolver *Resolver
	authn    auth.Authenticator

	limiter *rate.Limiter

	mu     sync.Mutex
	active map[*proxy.Proxy]struct{}

	transferMu   sync.Mutex
	lastTransfer transferTarget
}

// transferTarget is the most recent real destination a Handler
// suppressed behind a ClientboundTransfer, recorded via
// Listener.RecordTransfer (the transfer_callback spec.md §4.6 requires).
type transferTarget struct {
	host string
	port int32
}

// New constructs a Listener. authn may be nil, in which case every
// Proxy runs in pure pass-through mode with no key impersonation.
func New(cfg *config.Config, confPath string, authn auth.Authenticator) *Listener {
	return &Listener{
		cfg:      cfg,
		confPath: confPath,
		resolver: NewResolver(cfg.DNSResolverAddress),
		authn:    authn,
		limiter:  rate.NewLimiter(rate.Limit(20), acceptBurst),
		active:   make(map[*proxy.Proxy]struct{}),
	}
}

// Serve accepts connections on ln until ctx is canceled or Accept
// fails. Each accepted connection gets its own dialed upstream, Logger,
// and (optionally) replay Recorder.
func (l *Listener) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			zap.S().Warnw("listener: accept failed", "error", err)
			continue
		}
		go l.handleConn(ctx, conn)
	}
}

// Shutdown closes every currently active Proxy, disconnecting all
// in-flight sessions.
func (l *Listener) Shutdown() {
	l.mu.Lock()
	proxies := make([]*proxy.Proxy, 0, len(l.active))
	for px := range l.active {
		proxies = append(proxies, px)
	}
	l.mu.Unlock()

	for _, px := range proxies {
		px.Close()
	}
}

func (l *Listener) track(px *proxy.Proxy) {
	l.mu.Lock()
	l.active[px] = struct{}{}
	l.mu.Unlock()
}

func (l *Listener) untrack(px *proxy.Proxy) {
	l.mu.Lock()
	delete(l.active, px)
	l.mu.Unlock()
}

// RecordTransfer registers the real destination a Handler just
// suppressed behind a ClientboundTransfer/ClientboundTransferConfiguration
// as the most recent transfer target (see LastTransfer) and logs it.
// handleConn does not consult it: every incoming connection is dialed to
// the configured server address. Passed into proxy.NewHandler as the
// transfer_callback.
func (l *Listener) RecordTransfer(host string, port int32) {
	l.transferMu.Lock()
	l.lastTransfer = transferTarget{host: host, port: port}
	l.transferMu.Unlock()
	zap.S().Infow("listener: client transferred away from real destination", "real_host", host, "real_port", port)
}

// LastTransfer reports the most recently recorded transfer target, if any.
func (l *Listener) LastTransfer() (host string, port int32, ok bool) {
	l.transferMu.Lock()
	defer l.transferMu.Unlock()
	if l.lastTransfer.host == "" {
		return "", 0, false
	}
	return l.lastTransfer.host, l.lastTransfer.port, true
}

func (l *Listener) handleConn(ctx context.Context, clientConn net.Conn) {
	host, port := l.resolver.Resolve(l.cfg.ServerAddress)
	dialAddr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	dialer := net.Dialer{Timeout: 10 * time.Second}
	serverConn, err := dialer.DialContext(ctx, "tcp", dialAddr)
	if err != nil {
		zap.S().Warnw("listener: could not dial real server", "address", dialAddr, "error", err)
		_ = clientConn.Close()
		return
	}

	baseFilename := fmt.Sprintf("session_%s", time.Now().Format("20060102_150405.000000"))
	log := logger.New(baseFilename, l.confPath, l.cfg)

	var rec *replay.Recorder
	if l.cfg.LogToReplay {
		rec, err = replay.New(baseFilename, l.cfg.ServerAddress, defaultProtocolVersion)
		if err != nil {
			zap.S().Warnw("listener: could not start replay recorder", "error", err)
			rec = nil
		}
	}

	cConn := proxy.NewConnection(clientConn)
	sConn := proxy.NewConnection(serverConn)
	if l.cfg.ReadIdleTimeoutSec > 0 {
		idle := time.Duration(l.cfg.ReadIdleTimeoutSec) * time.Second
		cConn.SetIdleTimeout(idle)
		sConn.SetIdleTimeout(idle)
	}
	handler := proxy.NewHandler(log, rec, l.authn, "127.0.0.1", l.cfg.LocalPort, host, port, l.RecordTransfer)
	px := proxy.New(cConn, sConn, handler.Process)

	l.track(px)
	px.Start()
	<-px.Done()
	l.untrack(px)

	log.Stop()
	if rec != nil {
		if err := rec.Stop(); err != nil {
			zap.S().Warnw("listener: replay recorder finalize failed", "error", err)
		}
	}
}
