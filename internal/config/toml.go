// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Watch WatchConfig `toml:"watch"`
}

// WatchConfig maps monitor and simulation settings.
type WatchConfig struct {
	Log          *string   `toml:"log"`
	Executable   *string   `toml:"executable"`
	Args         []string  `toml:"args"`
	Dir          *string   `toml:"dir"`
	Input        *string   `toml:"input"`
	Output       *string   `toml:"output"`
	Interval     *Duration `toml:"interval"`
	Header       *string   `toml:"header"`
	GroupColumn  *string   `toml:"group-column"`
	TimingColumn *string   `toml:"timing-column"`
	GroupLabel   *string   `toml:"group-label"`
	DebugLog     *string   `toml:"debug-log"`
}

// Duration decodes TOML strings such as "600ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
