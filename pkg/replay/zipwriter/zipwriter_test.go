package zipwriter

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateZipArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	metaPath := filepath.Join(dir, "metaData.json")
	recordingPath := filepath.Join(dir, "recording.tmcpr")
	require.NoError(t, os.WriteFile(metaPath, []byte(`{"protocol":767}`), 0o644))
	require.NoError(t, os.WriteFile(recordingPath, make([]byte, 4096), 0o644))

	outPath := filepath.Join(dir, "out.mcpr")
	require.NoError(t, CreateZipArchive(outPath, []string{metaPath, recordingPath}, []string{"metaData.json", "recording.tmcpr"}))

	r, err := zip.OpenReader(outPath)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.File, 2)
	names := map[string]*zip.File{}
	for _, f := range r.File {
		names[f.Name] = f
	}

	metaEntry, ok := names["metaData.json"]
	require.True(t, ok)
	rc, err := metaEntry.Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, `{"protocol":767}`, string(content))

	recordingEntry, ok := names["recording.tmcpr"]
	require.True(t, ok)
	rc2, err := recordingEntry.Open()
	require.NoError(t, err)
	content2, err := io.ReadAll(rc2)
	require.NoError(t, err)
	rc2.Close()
	assert.Len(t, content2, 4096)
}
