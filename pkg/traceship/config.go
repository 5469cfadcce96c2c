package traceship

import (
	"fmt"
	"os"
	"time"

	"github.com/bft-labs/traceship/internal/app"
	"github.com/bft-labs/traceship/internal/domain"
	"github.com/bft-labs/traceship/pkg/transport"
)

// DefaultFlushInterval is how often the exporter flushes buffered traces when
// the caller does not configure an interval.
const DefaultFlushInterval = 2 * time.Second

// Config holds the exporter configuration. CollectorURL is required; every
// other field has a sensible default applied by SetDefaults.
type Config struct {
	// CollectorURL is the collector endpoint. Accepts http(s) URLs, unix://
	// socket URLs, or a bare filesystem path to a unix socket.
	CollectorURL string

	// Protocol pins the collector protocol ("v1", "v2"). Leave empty to let
	// the exporter discover it by probing.
	Protocol string

	// BufferSize caps the encoded size of one payload in bytes.
	// Default: 8 MiB.
	BufferSize int

	// FlushInterval is how often buffered traces are shipped.
	// Default: 2 seconds.
	FlushInterval time.Duration

	// ProbeRetryDelay is the wait between protocol probes after an ambiguous
	// answer. Default: 500 milliseconds.
	ProbeRetryDelay time.Duration

	// HTTPTimeout bounds each collector request. Default: 10 seconds.
	HTTPTimeout time.Duration

	// Hostname identifies this host to the collector.
	// Default: os.Hostname().
	Hostname string

	// ExtraHeaders are added to every collector request.
	ExtraHeaders map[string]string

	// ShutdownTimeout is the maximum time Stop waits for in-flight work.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration
}

// SetDefaults fills in defaults for unset fields.
func (c *Config) SetDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = app.DefaultBufferSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.ProbeRetryDelay <= 0 {
		c.ProbeRetryDelay = app.DefaultProbeRetryDelay
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = transport.DefaultTimeout
	}
	if c.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			c.Hostname = h
		}
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = app.ShutdownTimeout
	}
}

// Validate checks the configuration for correctness.
// Call SetDefaults first.
func (c *Config) Validate() error {
	if c.CollectorURL == "" {
		return fmt.Errorf("%w: CollectorURL is required", domain.ErrInvalidConfig)
	}
	if _, err := transport.ParseDestination(c.CollectorURL); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}
