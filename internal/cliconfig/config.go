package cliconfig

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultCollectorURL is the default collector endpoint.
const DefaultCollectorURL = "http://localhost:8126"

// Config holds CLI configuration for traceship.
type Config struct {
	CollectorURL string
	Protocol     string

	Service     string
	Hostname    string
	ContainerID string

	Count        int
	EmitInterval time.Duration
	ReplayFile   string

	FlushInterval   time.Duration
	ProbeRetryDelay time.Duration
	HTTPTimeout     time.Duration
	BufferSize      int

	StateDir    string
	MetricsAddr string

	Once    bool
	Verbose bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		CollectorURL:    DefaultCollectorURL,
		Service:         "traceship-demo",
		Count:           100,
		EmitInterval:    10 * time.Millisecond,
		FlushInterval:   2 * time.Second,
		ProbeRetryDelay: 500 * time.Millisecond,
		HTTPTimeout:     10 * time.Second,
		BufferSize:      8 << 20, // 8MB
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.CollectorURL == "" {
		c.CollectorURL = DefaultCollectorURL
	}

	// Ensure no trailing slash
	if len(c.CollectorURL) > 0 && c.CollectorURL[len(c.CollectorURL)-1] == '/' {
		c.CollectorURL = c.CollectorURL[:len(c.CollectorURL)-1]
	}

	if c.Service == "" {
		return fmt.Errorf("service is required")
	}

	if c.ReplayFile == "" && c.Count <= 0 {
		return fmt.Errorf("count must be positive (or set a replay file)")
	}
	if c.EmitInterval < 0 {
		return fmt.Errorf("emit interval must not be negative")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive")
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

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
