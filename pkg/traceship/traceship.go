package traceship

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/traceship/internal/app"
	"github.com/bft-labs/traceship/internal/domain"
	"github.com/bft-labs/traceship/internal/ports"
	"github.com/bft-labs/traceship/pkg/encode"
	"github.com/bft-labs/traceship/pkg/log"
	"github.com/bft-labs/traceship/pkg/metrics"
	"github.com/bft-labs/traceship/pkg/replay"
	"github.com/bft-labs/traceship/pkg/sampler"
	"github.com/bft-labs/traceship/pkg/state"
	"github.com/bft-labs/traceship/pkg/transport"
)

// Exporter ships traces to a collector, negotiating the wire protocol when it
// is not pinned by configuration. Use New() to create an instance, then
// Start() to begin exporting; Export() accepts traces from any goroutine.
type Exporter struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	transport *transport.HTTPTransport
	runtimeID string
	logger    ports.Logger

	// rates is the internal rate table, nil when a custom sampler is set.
	rates *sampler.RateByService

	// Plugin support
	plugins []Plugin

	// newWriter builds a fresh writer. A writer closes permanently on Stop,
	// so each Start of a stopped exporter negotiates with a new one.
	newWriter func() (*app.Writer, error)

	mu     sync.RWMutex
	writer *app.Writer
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Exporter with the given configuration.
// The instance is created in StateStopped; call Start() to begin exporting.
// A pinned Protocol resolves here, synchronously; otherwise negotiation runs
// after Start. Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Exporter, error) {
	// Set defaults
	cfg.SetDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validate module version compatibility
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	// Apply options
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	// Keep the internal rate table readable when it is ours.
	var rates *sampler.RateByService
	if rt, ok := o.sampler.(*sampler.RateByService); ok {
		rates = rt
	}

	runtimeID := uuid.NewString()

	// Create the transport
	tr, err := transport.New(transport.Config{
		Destination: cfg.CollectorURL,
		Timeout:     cfg.HTTPTimeout,
		Client:      o.httpClient,
		Lookup:      o.lookup,
	})
	if err != nil {
		return nil, err
	}

	// Default startup reporting goes to the logger.
	reporter := o.reporter
	if reporter == nil {
		reporter = &startupLogReporter{
			logger:      logger,
			destination: cfg.CollectorURL,
			protocol:    cfg.Protocol,
			bufferSize:  cfg.BufferSize,
		}
	}

	// Create event emitter wrapper
	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	// Create lifecycle manager
	lifecycle := app.NewLifecycle(logger, emitter)

	// Create the writer
	newWriter := func() (*app.Writer, error) {
		return app.NewWriter(app.Config{
			Protocol:        cfg.Protocol,
			BufferSize:      cfg.BufferSize,
			ProbeRetryDelay: cfg.ProbeRetryDelay,
			TracerVersion:   Version,
			Hostname:        cfg.Hostname,
			RuntimeID:       runtimeID,
			ExtraHeaders:    cfg.ExtraHeaders,
		}, tr, nil, o.sampler, o.metrics, reporter, logger, emitter)
	}
	writer, err := newWriter()
	if err != nil {
		return nil, err
	}

	return &Exporter{
		config:    cfg,
		opts:      o,
		lifecycle: lifecycle,
		writer:    writer,
		transport: tr,
		runtimeID: runtimeID,
		logger:    logger,
		rates:     rates,
		plugins:   o.plugins,
		newWriter: newWriter,
	}, nil
}

// Start begins exporting in the background.
// Returns immediately after starting the export goroutines.
// Returns an error if already running or if startup fails.
// The provided context bounds the export lifetime: canceling it has the same
// effect as calling Stop without the graceful flush.
func (e *Exporter) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}

	// Transition to starting
	if err := e.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	// A restart negotiates from scratch with a fresh writer.
	if e.writer.Closed() {
		writer, err := e.newWriter()
		if err != nil {
			_ = e.lifecycle.TransitionTo(app.StateCrashed, "writer rebuild failed")
			return err
		}
		e.writer = writer
	}

	// Create cancellable context
	runCtx, cancel := context.WithCancel(ctx)
	e.ctx = runCtx
	e.cancel = cancel
	e.lifecycle.SetCancel(cancel)

	// Initialize plugins
	pluginCfg := PluginConfig{
		CollectorURL: e.config.CollectorURL,
		Protocol:     e.config.Protocol,
		Hostname:     e.config.Hostname,
		RuntimeID:    e.runtimeID,
		Logger:       e.logger,
		Exporter:     e,
	}
	for _, p := range e.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			e.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			_ = e.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		e.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	// Kick off protocol negotiation (no-op when the protocol is pinned).
	e.writer.Start(runCtx)

	// Run the flush scheduler
	e.lifecycle.AddWorker()
	go func() {
		defer e.lifecycle.WorkerDone()

		// Transition to running
		if err := e.lifecycle.TransitionTo(app.StateRunning, "exporter started"); err != nil {
			e.logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		e.flushLoop(runCtx)
	}()

	return nil
}

// flushLoop ships buffered traces every FlushInterval until ctx is canceled.
func (e *Exporter) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.currentWriter().Flush()
		}
	}
}

// Export accepts one trace for delivery. Before the protocol is resolved the
// trace is queued; afterwards it is encoded immediately. Safe to call from
// any goroutine, including before Start.
//
// An oversized trace is dropped and logged, not returned as an error. After
// Stop, Export returns ErrWriterClosed until the exporter is started again.
func (e *Exporter) Export(trace Trace) error {
	return e.currentWriter().Append(trace)
}

// Flush ships everything buffered so far without waiting for the next tick.
func (e *Exporter) Flush() {
	e.currentWriter().Flush()
}

func (e *Exporter) currentWriter() *app.Writer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.writer
}

// Stop gracefully shuts down the exporter.
// Flushes buffered traces, waits for in-flight sends, and persists nothing
// itself: callers that want a run record should read Status and RunStatus
// before discarding the instance.
// Waits up to ShutdownTimeout before forcing shutdown.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (e *Exporter) Stop() error {
	e.mu.Lock()

	if !e.lifecycle.CanStop() {
		e.mu.Unlock()
		return domain.ErrNotRunning
	}

	// Transition to stopping
	if err := e.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		e.mu.Unlock()
		return err
	}

	// Cancel the context: ends negotiation and the flush scheduler.
	if e.cancel != nil {
		e.cancel()
	}

	writer := e.writer
	e.mu.Unlock()

	// Wait for the flush scheduler, then drain the writer (final flush plus
	// in-flight sends).
	err := e.lifecycle.WaitWithTimeout(e.config.ShutdownTimeout)
	if werr := writer.Stop(e.config.ShutdownTimeout); err == nil {
		err = werr
	}

	// Shutdown plugins (in reverse order)
	shutdownCtx := context.Background()
	for i := len(e.plugins) - 1; i >= 0; i-- {
		p := e.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			e.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			e.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	// Transition to stopped
	if err != nil {
		_ = e.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = e.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}

	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (e *Exporter) Status() State {
	return convertState(e.lifecycle.State())
}

// Protocol returns the collector protocol name: "v1", "v2", or "unresolved"
// while negotiation is still in progress.
func (e *Exporter) Protocol() string {
	return e.currentWriter().Protocol().String()
}

// Stats snapshots the writer: queued and buffered trace counts and whether a
// flush is owed. Counters for sent and dropped traces are exposed through the
// metrics client and the event handler.
func (e *Exporter) Stats() Stats {
	return convertStats(e.currentWriter().Stats())
}

// SampleRate reports the collector-provided sampling rate for a service/env
// pair. When a custom sampler was injected with WithSampler, the exporter has
// no visibility into it and reports 1.
func (e *Exporter) SampleRate(service, env string) float64 {
	if e.rates == nil {
		return 1
	}
	return e.rates.Rate(service, env)
}

// SetDestination points the exporter at a new collector endpoint. In-flight
// requests finish against the old endpoint. The resolved protocol is kept:
// negotiation happens once per exporter, not per destination.
func (e *Exporter) SetDestination(url string) error {
	if err := e.transport.SetDestination(url); err != nil {
		return err
	}
	e.logger.Info("collector destination updated", ports.String("url", url))
	return nil
}

// RuntimeID returns the per-process identifier sent with every request.
func (e *Exporter) RuntimeID() string {
	return e.runtimeID
}

// startupLogReporter is the default startup diagnostics sink: one structured
// log record after the first collector contact.
type startupLogReporter struct {
	logger      ports.Logger
	destination string
	protocol    string
	bufferSize  int
}

func (r *startupLogReporter) ReportStartup(err error) {
	mode := r.protocol
	if mode == "" {
		mode = "negotiate"
	}
	if err != nil {
		r.logger.Warn("collector unreachable on first contact",
			ports.String("destination", r.destination),
			ports.String("protocol_mode", mode),
			ports.Int("buffer_size", r.bufferSize),
			ports.Err(err),
		)
		return
	}
	r.logger.Info("collector reached",
		ports.String("destination", r.destination),
		ports.String("protocol_mode", mode),
		ports.Int("buffer_size", r.bufferSize),
	)
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnProtocolResolved(version domain.ProtocolVersion) {
	if e.handler == nil {
		return
	}
	e.handler.OnProtocolResolved(ProtocolResolvedEvent{Protocol: version.String()})
}

func (e *eventEmitterWrapper) OnSendSuccess(traces, bytes int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{
		Traces:   traces,
		Bytes:    bytes,
		Duration: duration,
	})
}

func (e *eventEmitterWrapper) OnSendError(err error, traces int) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{
		Error:  err,
		Traces: traces,
	})
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"encode":    {encode.Version, encode.MinCompatibleVersion},
		"transport": {transport.Version, transport.MinCompatibleVersion},
		"sampler":   {sampler.Version, sampler.MinCompatibleVersion},
		"metrics":   {metrics.Version, metrics.MinCompatibleVersion},
		"state":     {state.Version, state.MinCompatibleVersion},
		"replay":    {replay.Version, replay.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	// Parse versions (simplified semver comparison)
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
