package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Port         string `toml:"port"`
	Baud         int    `toml:"baud"`
	Emulate      *bool  `toml:"emulate"`
	QueueSize    int    `toml:"queue_size"`
	WriteTimeout string `toml:"write_timeout"`
	WriteRetries int    `toml:"write_retries"`
	Interval     string `toml:"interval"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.portcodes/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".portcodes", "config.toml")
	}
	return ""
}

// FileExists reports whether the given path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", fc.Port, &cfg.Port)
	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setBool("emulate", fc.Emulate, &cfg.Emulate)
	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)
	s.setInt("retries", fc.WriteRetries, &cfg.WriteRetries)

	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}

	return nil
}
