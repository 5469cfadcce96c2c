package metricsserver

import "github.com/bft-labs/traceship/pkg/traceship"

// WithServer returns the traceship Options that wire a metrics server in:
// the Prometheus-backed metrics client plus the plugin that serves it.
//
// Usage:
//
//	srv := metricsserver.New(metricsserver.Config{Addr: ":9102"})
//	exp, err := traceship.New(cfg, metricsserver.WithServer(srv)...)
func WithServer(srv *Plugin) []traceship.Option {
	return []traceship.Option{
		traceship.WithMetrics(srv.Metrics()),
		traceship.WithPlugin(srv),
	}
}

// WithDefaultServer returns the traceship Options for a metrics server
// with default settings (listen on :9102, serve /metrics).
//
// Usage:
//
//	exp, err := traceship.New(cfg, metricsserver.WithDefaultServer()...)
func WithDefaultServer() []traceship.Option {
	return WithServer(New(DefaultConfig()))
}
