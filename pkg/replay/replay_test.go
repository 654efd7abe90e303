package replay

import (
	"archive/zip"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adepierre/SniffCraft/pkg/packet"
	"github.com/adepierre/SniffCraft/pkg/proto"
)

func TestRecorderCapturesOnlyClientboundTraffic(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "session")
	r, err := New(prefix, "play.example.com", 767)
	require.NoError(t, err)

	require.NoError(t, r.Capture(&packet.KeepAlive{ID: 1}, proto.Server))
	require.NoError(t, r.Capture(&packet.KeepAlive{ID: 2}, proto.Client))
	require.NoError(t, r.Capture(&packet.KeepAlive{ID: 3}, proto.SniffcraftToClient))
	require.NoError(t, r.Capture(&packet.KeepAlive{ID: 4}, proto.ClientToSniffcraft))

	require.NoError(t, r.Stop())

	zr, err := zip.OpenReader(prefix + ".mcpr")
	require.NoError(t, err)
	defer zr.Close()

	var recordingSize int64
	for _, f := range zr.File {
		if f.Name == "recording.tmcpr" {
			recordingSize = int64(f.UncompressedSize64)
		}
	}
	// Two captured packets (ids 1 and 3), each an 8-byte record header
	// plus an 8-byte KeepAlive id payload.
	assert.EqualValues(t, 2*(8+8), recordingSize)
}
