// Package logger implements the proxy's observability worker: a single
// background goroutine draining a FIFO of parsed packets into up to
// three sinks (text file, self-describing binary capture, colorized
// console), filtered per (ConnectionState, SimpleOrigin) and
// statistics-tracked per packet name. Grounded line-for-line on
// sniffcraft/src/Logger.cpp and sniffcraft/include/sniffcraft/Logger.hpp
// from the original C++ implementation, translated into the worker-
// goroutine idiom go.minekube.com/gate uses for its own background
// loops (pkg/proxy/connection.go's read/write goroutines).
package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/gookit/color"
	"go.uber.org/zap"

	"github.com/adepierre/SniffCraft/pkg/config"
	"github.com/adepierre/SniffCraft/pkg/packet"
	"github.com/adepierre/SniffCraft/pkg/proto"
)

const (
	configPollInterval = 5 * time.Second
	recapInterval      = 10 * time.Second
)

type filterKey struct {
	state  proto.ConnectionState
	origin proto.Endpoint
}

// Logger owns one worker goroutine and the sinks it fans out to. A
// Proxy creates exactly one Logger and feeds it from the parser
// goroutine via Log, which never blocks on sink I/O.
type Logger struct {
	baseFilename string
	confPath     string

	mu          sync.Mutex
	cond        *sync.Cond
	queue       deque.Deque
	running     bool

	logToFile        bool
	logToBinaryFile  bool
	logToConsole     bool
	logRawBytes      bool
	logNetworkRecap  bool

	textFile   *os.File
	binaryFile *os.File

	filterMu  sync.Mutex
	ignored   map[filterKey]map[string]bool
	detailed  map[filterKey]map[string]bool

	recapMu          sync.Mutex
	clientboundRecap map[string]*RecapItem
	serverboundRecap map[string]*RecapItem
	clientboundTotal RecapItem
	serverboundTotal RecapItem

	startTime             time.Time
	lastConfCheck         time.Time
	lastConfModTime       int64
	lastRecapPrint        time.Time

	wg sync.WaitGroup
}

// New constructs a Logger for one connection pair. baseFilename is the
// stem used for the text/binary sink files (".txt"/".scbin" are
// appended); confPath is polled for hot-reloadable filters.
func New(baseFilename, confPath string, cfg *config.Config) *Logger {
	l := &Logger{
		baseFilename:     baseFilename,
		confPath:         confPath,
		running:          true,
		ignored:          make(map[filterKey]map[string]bool),
		detailed:         make(map[filterKey]map[string]bool),
		clientboundRecap: make(map[string]*RecapItem),
		serverboundRecap: make(map[string]*RecapItem),
		startTime:        time.Now(),
	}
	l.cond = sync.NewCond(&l.mu)
	l.applyConfig(cfg)
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Logger) applyConfig(cfg *config.Config) {
	l.logToFile = cfg.LogToTxtFile
	l.logToBinaryFile = cfg.LogToBinFile
	l.logToConsole = cfg.LogToConsole
	l.logRawBytes = cfg.LogRawBytes
	l.logNetworkRecap = cfg.NetworkRecapToConsole

	l.filterMu.Lock()
	defer l.filterMu.Unlock()
	l.ignored = make(map[filterKey]map[string]bool)
	l.detailed = make(map[filterKey]map[string]bool)
	for state, pf := range map[proto.ConnectionState]config.PacketFilter{
		proto.Handshake:     cfg.Handshaking,
		proto.Status:        cfg.Status,
		proto.Login:         cfg.Login,
		proto.Configuration: cfg.Configuration,
		proto.Play:          cfg.Play,
	} {
		l.ignored[filterKey{state, proto.Client}] = toSet(pf.IgnoredServerbound)
		l.ignored[filterKey{state, proto.Server}] = toSet(pf.IgnoredClientbound)
		l.detailed[filterKey{state, proto.Client}] = toSet(pf.DetailedServerbound)
		l.detailed[filterKey{state, proto.Server}] = toSet(pf.DetailedClientbound)
	}

	if l.logToFile && l.textFile == nil {
		f, err := os.OpenFile(l.baseFilename+".txt", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			zap.S().Warnw("logger: could not open text sink", "error", err)
		} else {
			l.textFile = f
		}
	}
	if l.logToBinaryFile && l.binaryFile == nil {
		f, err := os.OpenFile(l.baseFilename+".scbin", os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			zap.S().Warnw("logger: could not open binary sink", "error", err)
		} else {
			l.binaryFile = f
			writeBinaryHeader(f)
		}
	}
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Log enqueues a parsed packet for asynchronous processing and returns
// immediately. timestamp is assigned here, at enqueue time, so log
// ordering matches enqueue order rather than worker-drain order (spec's
// §5 ordering guarantee).
func (l *Logger) Log(p packet.Packet, state proto.ConnectionState, origin proto.Endpoint, bandwidthBytes int, rawBytes []byte) {
	item := Item{Packet: p, Timestamp: time.Now(), ConnectionState: state, Origin: origin, BandwidthBytes: bandwidthBytes}
	if l.logRawBytes {
		item.RawBytes = rawBytes
	}
	l.mu.Lock()
	l.queue.PushBack(item)
	l.mu.Unlock()
	l.cond.Signal()
}

// GetBaseFilename returns the stem used for this Logger's sink files.
func (l *Logger) GetBaseFilename() string { return l.baseFilename }

// Stop signals the worker to drain and exit, then blocks until it has.
func (l *Logger) Stop() {
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
	l.cond.Signal()
	l.wg.Wait()
}

func (l *Logger) run() {
	defer l.wg.Done()
	defer l.closeSinks()

	for {
		l.mu.Lock()
		for l.queue.Len() == 0 && l.running {
			l.cond.Wait()
		}
		if l.queue.Len() == 0 && !l.running {
			l.mu.Unlock()
			return
		}
		item := l.queue.PopFront().(Item)
		l.mu.Unlock()

		l.consume(item)
		l.maybeReloadConfig()
		l.maybePrintRecap()
	}
}

func (l *Logger) closeSinks() {
	if l.textFile != nil {
		_ = l.textFile.Close()
	}
	if l.binaryFile != nil {
		_ = l.binaryFile.Close()
	}
}

// consume is LogConsume's Go counterpart: render to every enabled sink
// and fold into the statistics maps.
func (l *Logger) consume(item Item) {
	name := l.packetName(item.Packet)

	if !l.isIgnored(item.ConnectionState, item.Origin, name) {
		line := l.formatLine(item, name)
		if l.logToConsole {
			fmt.Println(colorizeLine(item.Origin, line))
		}
		if l.logToFile && l.textFile != nil {
			_, _ = l.textFile.WriteString(line + "\n")
		}
	}

	if l.logToBinaryFile && l.binaryFile != nil {
		if err := appendBinaryRecord(l.binaryFile, item, l.startTime); err != nil {
			zap.S().Warnw("logger: binary sink write failed", "error", err)
		}
	}

	if item.BandwidthBytes > 0 {
		l.recordStatistics(item, name)
	}
}

func (l *Logger) packetName(p packet.Packet) string {
	name := p.Name()
	if ident, ok := p.(packet.Identified); ok {
		return name + "|" + ident.Identifier()
	}
	return name
}

func (l *Logger) isIgnored(state proto.ConnectionState, origin proto.Endpoint, name string) bool {
	l.filterMu.Lock()
	defer l.filterMu.Unlock()
	set := l.ignored[filterKey{state, proto.SimpleOrigin(origin)}]
	return set != nil && set[name]
}

func (l *Logger) isDetailed(state proto.ConnectionState, origin proto.Endpoint, name string) bool {
	l.filterMu.Lock()
	defer l.filterMu.Unlock()
	set := l.detailed[filterKey{state, proto.SimpleOrigin(origin)}]
	return set != nil && set[name]
}

func directionArrow(origin proto.Endpoint) string {
	switch proto.SimpleOrigin(origin) {
	case proto.Client:
		return "C -> S"
	default:
		return "S -> C"
	}
}

func (l *Logger) formatLine(item Item, name string) string {
	ts := item.Timestamp.Format("15:04:05.000")
	line := fmt.Sprintf("[%s] [%s] [%s] %s", ts, item.ConnectionState, directionArrow(item.Origin), name)
	if l.logRawBytes && len(item.RawBytes) > 0 {
		line += "\n" + hexDump(item.RawBytes)
	}
	if l.isDetailed(item.ConnectionState, item.Origin, name) {
		line += fmt.Sprintf("\n%v", item.Packet.Descriptor())
	}
	return line
}

func hexDump(b []byte) string {
	return fmt.Sprintf("% x", b)
}

func colorizeLine(origin proto.Endpoint, line string) string {
	switch proto.SimpleOrigin(origin) {
	case proto.Client:
		return color.FgGreen.Render(line)
	default:
		return color.FgBlue.Render(line)
	}
}

func (l *Logger) recordStatistics(item Item, name string) {
	l.recapMu.Lock()
	defer l.recapMu.Unlock()

	var bucket map[string]*RecapItem
	var total *RecapItem
	switch proto.SimpleOrigin(item.Origin) {
	case proto.Client:
		bucket = l.serverboundRecap
		total = &l.serverboundTotal
	default:
		bucket = l.clientboundRecap
		total = &l.clientboundTotal
	}
	entry, ok := bucket[name]
	if !ok {
		entry = &RecapItem{}
		bucket[name] = entry
	}
	entry.Count++
	entry.BandwidthBytes += int64(item.BandwidthBytes)
	total.Count++
	total.BandwidthBytes += int64(item.BandwidthBytes)
}

func (l *Logger) maybeReloadConfig() {
	if l.confPath == "" || time.Since(l.lastConfCheck) < configPollInterval {
		return
	}
	l.lastConfCheck = time.Now()

	modTime, err := config.ModTime(l.confPath)
	if err != nil || modTime == l.lastConfModTime {
		return
	}
	l.lastConfModTime = modTime

	cfg, err := config.Load(l.confPath)
	if err != nil {
		zap.S().Warnw("logger: could not reload config, keeping previous filters", "error", err)
		return
	}
	l.applyConfig(cfg)
}

func (l *Logger) maybePrintRecap() {
	if !l.logNetworkRecap || time.Since(l.lastRecapPrint) < recapInterval {
		return
	}
	l.lastRecapPrint = time.Now()
	fmt.Println(l.GenerateNetworkRecap(10))
}
