package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adepierre/SniffCraft/pkg/config"
	"github.com/adepierre/SniffCraft/pkg/packet"
	"github.com/adepierre/SniffCraft/pkg/proto"
)

func TestLoggerWritesTextSinkAndStats(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "capture")

	cfg := config.Default()
	cfg.LogToTxtFile = true
	cfg.LogToConsole = false

	l := New(base, "", cfg)
	l.Log(&packet.KeepAlive{ID: 1}, proto.Play, proto.Server, 10, nil)
	l.Stop()

	data, err := os.ReadFile(base + ".txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "KeepAlive")

	l.recapMu.Lock()
	defer l.recapMu.Unlock()
	assert.EqualValues(t, 1, l.clientboundTotal.Count)
	assert.EqualValues(t, 10, l.clientboundTotal.BandwidthBytes)
}

func TestLoggerIgnoresInjectedZeroBandwidthForStats(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "capture")
	cfg := config.Default()
	cfg.LogToConsole = false

	l := New(base, "", cfg)
	l.Log(&packet.KeepAlive{ID: 1}, proto.Play, proto.SniffcraftToServer, 0, nil)
	l.Stop()

	l.recapMu.Lock()
	defer l.recapMu.Unlock()
	assert.Zero(t, l.serverboundTotal.Count)
}

func TestLoggerFilteringIgnoresConfiguredPacket(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "capture")
	cfg := config.Default()
	cfg.LogToTxtFile = true
	cfg.LogToConsole = false
	cfg.Play.IgnoredClientbound = []string{"KeepAlive"}

	l := New(base, "", cfg)
	l.Log(&packet.KeepAlive{ID: 1}, proto.Play, proto.Server, 10, nil)
	l.Stop()

	data, err := os.ReadFile(base + ".txt")
	require.NoError(t, err)
	assert.Empty(t, string(data))
}

func TestGenerateNetworkRecapIncludesTotals(t *testing.T) {
	l := &Logger{clientboundRecap: make(map[string]*RecapItem), serverboundRecap: make(map[string]*RecapItem)}
	l.recordStatistics(Item{Origin: proto.Server, BandwidthBytes: 42}, "KeepAlive")
	recap := l.GenerateNetworkRecap(10)
	assert.Contains(t, recap, "clientbound")
	assert.Contains(t, recap, "KeepAlive")
}

func TestMaybeReloadConfigAppliesNewFilter(t *testing.T) {
	dir := t.TempDir()
	confPath := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(confPath, []byte(`{"ServerAddress":"s","LocalPort":1}`), 0o644))

	cfg := config.Default()
	cfg.ServerAddress = "s"
	cfg.LocalPort = 1
	l := New(filepath.Join(dir, "capture"), confPath, cfg)
	l.lastConfCheck = time.Now().Add(-time.Hour)
	l.maybeReloadConfig()
	l.Stop()

	assert.NotZero(t, l.lastConfModTime)
}
