package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (PORTCODES_*).
// It respects flags that have been explicitly set (changed map).
// Returns an error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", os.Getenv("PORTCODES_PORT"), &cfg.Port)
	s.setBoolFromString("emulate", os.Getenv("PORTCODES_EMULATE"), &cfg.Emulate)

	if err := s.setIntFromString("baud", os.Getenv("PORTCODES_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-size", os.Getenv("PORTCODES_QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}
	if err := s.setIntFromString("retries", os.Getenv("PORTCODES_WRITE_RETRIES"), &cfg.WriteRetries); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", os.Getenv("PORTCODES_WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}
	if err := s.setDuration("interval", os.Getenv("PORTCODES_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}

	return nil
}
