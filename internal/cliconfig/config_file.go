package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	CollectorURL    string `toml:"collector_url"`
	Protocol        string `toml:"protocol"`
	Service         string `toml:"service"`
	Hostname        string `toml:"hostname"`
	Count           int    `toml:"count"`
	EmitInterval    string `toml:"emit_interval"`
	ReplayFile      string `toml:"replay_file"`
	FlushInterval   string `toml:"flush_interval"`
	ProbeRetryDelay string `toml:"probe_retry_delay"`
	HTTPTimeout     string `toml:"http_timeout"`
	BufferSize      int    `toml:"buffer_size"`
	StateDir        string `toml:"state_dir"`
	MetricsAddr     string `toml:"metrics_addr"`
	Once            *bool  `toml:"once"`
	Verbose         *bool  `toml:"verbose"`
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
// Returns ~/.traceship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".traceship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("collector-url", fc.CollectorURL, &cfg.CollectorURL)
	s.setString("protocol", fc.Protocol, &cfg.Protocol)
	s.setString("service", fc.Service, &cfg.Service)
	s.setString("hostname", fc.Hostname, &cfg.Hostname)
	s.setString("replay", fc.ReplayFile, &cfg.ReplayFile)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setDuration("emit-interval", fc.EmitInterval, &cfg.EmitInterval); err != nil {
		return err
	}
	if err := s.setDuration("flush-interval", fc.FlushInterval, &cfg.FlushInterval); err != nil {
		return err
	}
	if err := s.setDuration("probe-retry-delay", fc.ProbeRetryDelay, &cfg.ProbeRetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setInt("count", fc.Count, &cfg.Count)
	s.setInt("buffer-size", fc.BufferSize, &cfg.BufferSize)

	s.setBool("once", fc.Once, &cfg.Once)
	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
