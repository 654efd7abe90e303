// Package config loads and validates the proxy's JSON configuration
// file. It follows the teacher's (go.minekube.com/gate) use of
// github.com/spf13/viper for loading, but points viper at a JSON file
// path instead of Gate's embedded YAML, matching spec.md §6.4's
// "conf.json" convention and the original C++ conf.cpp's platform
// default path.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// PacketFilter is one state's filter configuration: which packets (by
// numeric id or by name) should be suppressed from the logger entirely,
// and which should additionally get a full structured field dump.
type PacketFilter struct {
	IgnoredClientbound  []string `mapstructure:"ignored_clientbound" json:"ignored_clientbound"`
	IgnoredServerbound  []string `mapstructure:"ignored_serverbound" json:"ignored_serverbound"`
	DetailedClientbound []string `mapstructure:"detailed_clientbound" json:"detailed_clientbound"`
	DetailedServerbound []string `mapstructure:"detailed_serverbound" json:"detailed_serverbound"`
}

// Config mirrors spec.md §6.4's recognized key set.
type Config struct {
	ServerAddress string `mapstructure:"ServerAddress" json:"ServerAddress"`
	LocalPort     int    `mapstructure:"LocalPort" json:"LocalPort"`

	LogToTxtFile          bool `mapstructure:"LogToTxtFile" json:"LogToTxtFile"`
	LogToBinFile          bool `mapstructure:"LogToBinFile" json:"LogToBinFile"`
	LogToConsole          bool `mapstructure:"LogToConsole" json:"LogToConsole"`
	LogToReplay           bool `mapstructure:"LogToReplay" json:"LogToReplay"`
	LogRawBytes           bool `mapstructure:"LogRawBytes" json:"LogRawBytes"`
	NetworkRecapToConsole bool `mapstructure:"NetworkRecapToConsole" json:"NetworkRecapToConsole"`

	Online                  bool   `mapstructure:"Online" json:"Online"`
	MicrosoftAccountCacheKey string `mapstructure:"MicrosoftAccountCacheKey" json:"MicrosoftAccountCacheKey"`

	DNSResolverAddress string `mapstructure:"DNSResolverAddress" json:"DNSResolverAddress"`
	ReadIdleTimeoutSec int    `mapstructure:"ReadIdleTimeoutSec" json:"ReadIdleTimeoutSec"`

	Handshaking   PacketFilter `mapstructure:"Handshaking" json:"Handshaking"`
	Status        PacketFilter `mapstructure:"Status" json:"Status"`
	Login         PacketFilter `mapstructure:"Login" json:"Login"`
	Configuration PacketFilter `mapstructure:"Configuration" json:"Configuration"`
	Play          PacketFilter `mapstructure:"Play" json:"Play"`
}

// Default returns the configuration used when no file is present, or a
// loaded file omits a key: local-only proxying, console logging on,
// everything else off, matching a fresh install of the original binary.
func Default() *Config {
	return &Config{
		LocalPort:          25566,
		LogToConsole:       true,
		DNSResolverAddress: "8.8.8.8:53",
		ReadIdleTimeoutSec: 60,
	}
}

// Validate checks the minimal invariants the proxy cannot run without.
func Validate(c *Config) error {
	if c.ServerAddress == "" {
		return fmt.Errorf("config: ServerAddress is required")
	}
	if c.LocalPort <= 0 || c.LocalPort > 65535 {
		return fmt.Errorf("config: LocalPort %d out of range", c.LocalPort)
	}
	return nil
}

// DefaultPath resolves where the config file lives when none is given
// on the command line: "conf.json" in the working directory everywhere
// except macOS, where the original C++ implementation (conf.cpp) places
// it under the user's Application Support directory.
func DefaultPath() string {
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, "Library", "Application Support", "SniffCraft", "conf.json")
		}
	}
	return "conf.json"
}

// Load reads and unmarshals the config file at path, starting from
// Default() so missing keys take on documented defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}

// ModTime reports the config file's modification time, used by the
// logger's hot-reload poll to detect an edit without re-reading on
// every tick.
func ModTime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixNano(), nil
}
