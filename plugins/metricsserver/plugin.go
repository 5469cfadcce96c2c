// Package metricsserver exposes exporter metrics over HTTP for traceship.
// When enabled, it registers a Prometheus-backed metrics client and serves
// it on a /metrics endpoint.
package metricsserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/traceship/pkg/metrics"
	"github.com/bft-labs/traceship/pkg/traceship"
)

// Plugin serves exporter metrics over HTTP.
// Construct it before the exporter and pass Metrics() to
// traceship.WithMetrics so the exporter records into the served registry.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	addr            string
	path            string
	shutdownTimeout time.Duration

	// Runtime state
	registry *prometheus.Registry
	client   *metrics.Prometheus
	logger   traceship.Logger
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// Config holds configuration options for the metrics server plugin.
type Config struct {
	// Addr is the listen address for the metrics endpoint.
	// Default: ":9102"
	Addr string

	// Path is the HTTP path metrics are served on.
	// Default: "/metrics"
	Path string

	// ShutdownTimeout bounds how long Shutdown waits for the server
	// to drain. Default: 5 seconds
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":9102",
		Path:            "/metrics",
		ShutdownTimeout: 5 * time.Second,
	}
}

// New creates a new metrics server plugin with the given configuration.
// The registry and metrics client exist from construction so Metrics()
// can be handed to traceship.WithMetrics before the exporter starts.
func New(cfg Config) *Plugin {
	if cfg.Addr == "" {
		cfg.Addr = ":9102"
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	registry := prometheus.NewRegistry()

	return &Plugin{
		addr:            cfg.Addr,
		path:            cfg.Path,
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		client:          metrics.NewPrometheus(registry),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "metricsserver"
}

// Metrics returns the Prometheus-backed metrics client for
// traceship.WithMetrics.
func (p *Plugin) Metrics() *metrics.Prometheus {
	return p.client
}

// Registry returns the plugin's Prometheus registry so callers can
// register their own collectors alongside the exporter's.
func (p *Plugin) Registry() *prometheus.Registry {
	return p.registry
}

// Addr returns the bound listen address once Initialize has run, or the
// configured address before that. Useful with ":0" listeners.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener != nil {
		return p.listener.Addr().String()
	}
	return p.addr
}

// Initialize binds the listen address and starts serving metrics.
// A bind failure is returned so a misconfigured address fails the
// exporter's Start instead of silently exporting nothing.
func (p *Plugin) Initialize(ctx context.Context, cfg traceship.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.mu.Unlock()

	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("metrics server: listen on %s: %w", p.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(p.path, promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Handler: mux,
	}

	p.mu.Lock()
	p.listener = ln
	p.server = server
	p.mu.Unlock()

	p.logger.Info("Metrics server plugin initialized")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			_ = err // logged as generic error
			p.logger.Error("Metrics server: serve failed")
		}
	}()

	return nil
}

// Shutdown drains and stops the HTTP server.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	server := p.server
	p.server = nil
	p.listener = nil
	p.mu.Unlock()

	if server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	p.wg.Wait()
	return err
}

// Ensure Plugin implements traceship.Plugin.
var _ traceship.Plugin = (*Plugin)(nil)
