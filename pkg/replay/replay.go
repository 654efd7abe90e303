// Package replay captures server->client traffic into a .mcpr archive
// consumable by an external Minecraft replay viewer. Grounded on
// sniffcraft/src/ReplayModLogger.cpp; only clientbound and
// SniffcraftToClient packets are recorded, matching its capture
// window.
package replay

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/adepierre/SniffCraft/pkg/packet"
	"github.com/adepierre/SniffCraft/pkg/proto"
	"github.com/adepierre/SniffCraft/pkg/replay/zipwriter"
)

// mcprFormatTag is the fixed replay-format identifier the original
// implementation stamps into the metadata sidecar.
const mcprFormatTag = "MCPR v14"

// metadata is the JSON sidecar zipped alongside the raw recording.
type metadata struct {
	SingleplayerPlayerName string `json:"singleplayerPlayerName"`
	ServerName             string `json:"serverName"`
	Duration               int64  `json:"duration"`
	Date                   int64  `json:"date"`
	MCVersion              string `json:"mcversion"`
	FileFormat             string `json:"fileFormat"`
	FileFormatVersion      int    `json:"fileFormatVersion"`
	Protocol               int32  `json:"protocol"`
	Generator              string `json:"generator"`
}

// Recorder owns the temporary .tmcpr stream for one connection and
// zips it into a .mcpr archive once Stop is called.
type Recorder struct {
	mu            sync.Mutex
	tmpFile       *os.File
	startTime     time.Time
	outputPrefix  string
	serverName    string
	protocol      int32
}

// New creates a Recorder that writes its temporary recording under
// outputPrefix + ".tmcpr" and will zip to outputPrefix + ".mcpr" on Stop.
func New(outputPrefix, serverName string, protocol int32) (*Recorder, error) {
	f, err := os.Create(outputPrefix + ".tmcpr")
	if err != nil {
		return nil, fmt.Errorf("replay: create temp recording: %w", err)
	}
	return &Recorder{tmpFile: f, startTime: time.Now(), outputPrefix: outputPrefix, serverName: serverName, protocol: protocol}, nil
}

// Capture records one packet if it belongs to the clientbound capture
// window (spec.md §4.8: server->client and SniffcraftToClient only).
func (r *Recorder) Capture(p packet.Packet, origin proto.Endpoint) error {
	if origin != proto.Server && origin != proto.SniffcraftToClient {
		return nil
	}
	w := packet.NewWriter()
	if err := p.WriteTo(w); err != nil {
		return fmt.Errorf("replay: serialize packet: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	relativeMs := int32(time.Since(r.startTime).Milliseconds())
	header := make([]byte, 8)
	binary.BigEndian.PutUint32(header[0:4], uint32(relativeMs))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(w.Bytes())))
	if _, err := r.tmpFile.Write(header); err != nil {
		return fmt.Errorf("replay: write record header: %w", err)
	}
	if _, err := r.tmpFile.Write(w.Bytes()); err != nil {
		return fmt.Errorf("replay: write record payload: %w", err)
	}
	return nil
}

// Stop flushes the temporary recording, writes the metadata sidecar,
// zips both into the final .mcpr archive, and removes the temporaries.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	tmpPath := r.tmpFile.Name()
	err := r.tmpFile.Close()
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("replay: close temp recording: %w", err)
	}

	meta := metadata{
		ServerName:        r.serverName,
		Duration:          time.Since(r.startTime).Milliseconds(),
		Date:              r.startTime.UnixMilli(),
		MCVersion:         "",
		FileFormat:        mcprFormatTag,
		FileFormatVersion: 14,
		Protocol:          r.protocol,
		Generator:         "sniffcraft",
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("replay: marshal metadata: %w", err)
	}
	metaPath := r.outputPrefix + ".metadata.json"
	if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
		return fmt.Errorf("replay: write metadata: %w", err)
	}
	defer os.Remove(metaPath)
	defer os.Remove(tmpPath)

	return zipwriter.CreateZipArchive(
		r.outputPrefix+".mcpr",
		[]string{metaPath, tmpPath},
		[]string{"metaData.json", "recording.tmcpr"},
	)
}
