package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (TRACESHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("collector-url", os.Getenv("TRACESHIP_COLLECTOR_URL"), &cfg.CollectorURL)
	s.setString("protocol", os.Getenv("TRACESHIP_PROTOCOL"), &cfg.Protocol)
	s.setString("service", os.Getenv("TRACESHIP_SERVICE"), &cfg.Service)
	s.setString("hostname", os.Getenv("TRACESHIP_HOSTNAME"), &cfg.Hostname)
	s.setString("container-id", os.Getenv("TRACESHIP_CONTAINER_ID"), &cfg.ContainerID)
	s.setString("replay", os.Getenv("TRACESHIP_REPLAY_FILE"), &cfg.ReplayFile)
	s.setString("state-dir", os.Getenv("TRACESHIP_STATE_DIR"), &cfg.StateDir)
	s.setString("metrics-addr", os.Getenv("TRACESHIP_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setDuration("emit-interval", os.Getenv("TRACESHIP_EMIT_INTERVAL"), &cfg.EmitInterval); err != nil {
		return err
	}
	if err := s.setDuration("flush-interval", os.Getenv("TRACESHIP_FLUSH_INTERVAL"), &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("probe-retry-delay", os.Getenv("TRACESHIP_PROBE_RETRY_DELAY"), &cfg.ProbeRetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("TRACESHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("count", os.Getenv("TRACESHIP_COUNT"), &cfg.Count); err != nil {
		return err
	}
	if err := s.setIntFromString("buffer-size", os.Getenv("TRACESHIP_BUFFER_SIZE"), &cfg.BufferSize); err != nil {
		return err
	}

	s.setBoolFromString("once", os.Getenv("TRACESHIP_ONCE"), &cfg.Once)
	s.setBoolFromString("verbose", os.Getenv("TRACESHIP_VERBOSE"), &cfg.Verbose)

	return nil
}
