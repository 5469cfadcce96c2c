package traceship

import (
	"github.com/bft-labs/traceship/internal/domain"
	"github.com/bft-labs/traceship/internal/ports"
	"github.com/bft-labs/traceship/pkg/log"
	"github.com/bft-labs/traceship/pkg/metrics"
	"github.com/bft-labs/traceship/pkg/sampler"
	"github.com/bft-labs/traceship/pkg/transport"
)

// Convenience aliases so embedders only need this package for the common
// integration points. The canonical definitions live in the sub-packages.
type (
	// Span is a single timed operation; Trace is an ordered group of spans
	// sharing a trace ID. Traces are the unit Export accepts.
	Span  = domain.Span
	Trace = domain.Trace

	// Logger is the structured logging interface from pkg/log.
	Logger = log.Logger

	// LogField is the structured log field type from pkg/log.
	LogField = log.Field

	// HTTPClient is the HTTP execution interface from pkg/transport.
	// *http.Client satisfies it.
	HTTPClient = transport.HTTPClient

	// Metrics is the counter interface from pkg/metrics.
	Metrics = metrics.Client

	// Sampler receives rate-by-service updates from collector responses.
	Sampler = ports.Sampler

	// StartupReporter receives the one-time startup connectivity report.
	StartupReporter = ports.StartupReporter
)

// Option configures optional behavior of an Exporter.
type Option func(*options)

// options holds the optional configuration for an Exporter instance.
type options struct {
	httpClient   HTTPClient
	logger       ports.Logger
	metrics      ports.Metrics
	sampler      ports.Sampler
	reporter     ports.StartupReporter
	eventHandler EventHandler
	lookup       transport.LookupFunc
	plugins      []Plugin
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger:  &noopLogger{},
		metrics: metrics.NewNoop(),
		sampler: sampler.New(),
	}
}

// WithHTTPClient sets a custom HTTP client for collector communication.
// If not provided, a client with the configured timeout is used. When set,
// the configured CollectorURL contributes only the base URL.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics client exporter internals record to.
// If not provided, records are discarded.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSampler sets the sampler that receives rate-by-service updates from
// collector responses. If not provided, an internal rate table is kept and
// exposed through Exporter.SampleRate.
func WithSampler(s Sampler) Option {
	return func(o *options) {
		o.sampler = s
	}
}

// WithStartupReporter sets the receiver for the one-time startup report made
// after the first collector contact. If not provided, the report is logged.
func WithStartupReporter(r StartupReporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithEventHandler sets a handler for exporter events.
// Events are called synchronously from exporter goroutines.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithLookup overrides DNS resolution for the collector destination.
// Useful for pinning a collector to known addresses in restricted networks.
func WithLookup(lookup transport.LookupFunc) Option {
	return func(o *options) {
		o.lookup = lookup
	}
}

// WithPlugin registers a plugin to be initialized when the exporter starts.
// Plugins are initialized in registration order and shut down in reverse
// order. For built-in plugins, prefer their package options, e.g.
// configwatcher.WithConfigWatcher().
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// noopLogger discards all log messages.
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}
