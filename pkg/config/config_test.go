package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ServerAddress": "play.example.com", "LocalPort": 25566}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "play.example.com", cfg.ServerAddress)
	assert.True(t, cfg.LogToConsole)
	assert.Equal(t, "8.8.8.8:53", cfg.DNSResolverAddress)
}

func TestValidateRejectsMissingServerAddress(t *testing.T) {
	cfg := Default()
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.ServerAddress = "play.example.com"
	cfg.LocalPort = 70000
	assert.Error(t, Validate(cfg))
}
