package cliconfig

import (
	"fmt"
	"time"
)

// Config holds CLI configuration for the portcodes tool.
type Config struct {
	Port    string
	Baud    int
	Emulate bool

	QueueSize    int
	WriteTimeout time.Duration
	WriteRetries int

	// Interval is the pause between self-test codes.
	Interval time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Baud:         9600,
		Emulate:      true,
		QueueSize:    64,
		WriteTimeout: time.Second,
		WriteRetries: 3,
		Interval:     500 * time.Millisecond,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" && !c.Emulate {
		return fmt.Errorf("port is required (or enable emulation)")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.WriteRetries < 0 {
		return fmt.Errorf("write retries must not be negative")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntFromString parses and sets an int value if present and flag not changed.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	var v int
	if _, err := fmt.Sscanf(value, "%d", &v); err != nil {
		return fmt.Errorf("invalid %s value %q: %w", flag, value, err)
	}
	*dst = v
	return nil
}

// setDuration parses and sets a duration value if present and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s duration %q: %w", flag, value, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if present and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString parses and sets a bool value if present and flag not changed.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	switch value {
	case "1", "t", "true", "y", "yes":
		*dst = true
	case "0", "f", "false", "n", "no":
		*dst = false
	}
}
