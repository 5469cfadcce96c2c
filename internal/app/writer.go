package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	adapterlog "github.com/bft-labs/traceship/internal/adapters/log"
	"github.com/bft-labs/traceship/internal/domain"
	"github.com/bft-labs/traceship/internal/ports"
	"github.com/bft-labs/traceship/pkg/encode"
	"github.com/bft-labs/traceship/pkg/metrics"
	"github.com/bft-labs/traceship/pkg/sampler"
)

// Writer defaults.
const (
	// DefaultBufferSize is the encode buffer capacity: one payload never
	// exceeds it.
	DefaultBufferSize = 8 << 20

	// DefaultProbeRetryDelay is the fixed wait between ambiguous probes.
	DefaultProbeRetryDelay = 500 * time.Millisecond

	// concurrentSendLimit bounds in-flight payload sends per writer.
	concurrentSendLimit = 100
)

// Drop reason labels for metrics.
const (
	dropBufferFull   = "buffer_full"
	dropNegotiation  = "negotiation_ambiguous"
	dropShutdown     = "shutdown"
	dropPayloadError = "payload_error"
)

// TraceCountHeader carries the payload's trace count as a decimal string.
const TraceCountHeader = "X-Traceship-Trace-Count"

// Config contains the writer tunables and request identity.
type Config struct {
	// Protocol pins the collector protocol ("v1", "v2", ...). Empty means
	// negotiate by probing.
	Protocol string

	// BufferSize is the encode buffer capacity in bytes.
	BufferSize int

	// HeaderReserve is the space kept at the front of the buffer for the
	// container-length prefix. It must match the prefix encoding, so in
	// practice only the default is valid; it is configuration because it is
	// part of the buffer contract, not encoder knowledge.
	HeaderReserve int

	// ProbeRetryDelay is the fixed wait between ambiguous probes.
	ProbeRetryDelay time.Duration

	// TracerVersion, Hostname and RuntimeID identify this tracer to the
	// collector. Empty values are omitted from request headers.
	TracerVersion string
	Hostname      string
	RuntimeID     string

	// ExtraHeaders are merged into every collector request.
	ExtraHeaders map[string]string
}

func (c *Config) applyDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.HeaderReserve <= 0 {
		c.HeaderReserve = domain.ContainerHeaderSize
	}
	if c.ProbeRetryDelay <= 0 {
		c.ProbeRetryDelay = DefaultProbeRetryDelay
	}
}

// Validate checks the writer configuration.
func (c *Config) Validate() error {
	c.applyDefaults()
	if c.HeaderReserve != domain.ContainerHeaderSize {
		return fmt.Errorf("%w: header reserve must be %d bytes",
			domain.ErrInvalidConfig, domain.ContainerHeaderSize)
	}
	if c.BufferSize <= c.HeaderReserve {
		return fmt.Errorf("%w: buffer size %d below header reserve",
			domain.ErrInvalidConfig, c.BufferSize)
	}
	return nil
}

// EncoderFactory builds the encoder for a resolved protocol version.
type EncoderFactory func(domain.ProtocolVersion) ports.Encoder

// SendEventEmitter is notified of payload outcomes and protocol resolution.
type SendEventEmitter interface {
	OnProtocolResolved(version domain.ProtocolVersion)
	OnSendSuccess(traces, bytes int, duration time.Duration)
	OnSendError(err error, traces int)
}

// Writer accumulates traces into a bounded encode buffer and ships finished
// payloads to the collector. Until the collector protocol is known it queues
// whole traces in arrival order; resolution replays the queue through the
// encoder selected for the discovered version.
//
// All buffer and queue mutation happens under one mutex. The async network
// send and the probe retry timer are the only suspension points, so appends
// are encoded in exact call order, including across the negotiation boundary.
type Writer struct {
	cfg        Config
	transport  ports.Transport
	newEncoder EncoderFactory
	sampler    ports.Sampler
	metrics    ports.Metrics
	logger     ports.Logger
	emitter    SendEventEmitter
	startup    *startupOnce

	mu           sync.Mutex
	version      domain.ProtocolVersion
	enc          ports.Encoder
	buf          *encodeBuffer
	pending      []domain.Trace
	flushPending bool
	fatal        error
	closed       bool

	neg    *Negotiator
	climit chan struct{}
	wg     sync.WaitGroup
}

// NewWriter creates a writer. transport is required; nil collaborators fall
// back to no-op implementations and encoders default to the built-in wire
// formats. A pinned protocol in cfg resolves synchronously here, with zero
// probes; otherwise Start launches the negotiation loop.
func NewWriter(
	cfg Config,
	transport ports.Transport,
	encoders EncoderFactory,
	smp ports.Sampler,
	m ports.Metrics,
	reporter ports.StartupReporter,
	logger ports.Logger,
	emitter SendEventEmitter,
) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is required", domain.ErrInvalidConfig)
	}
	if encoders == nil {
		encoders = encode.ForVersion
	}
	if smp == nil {
		smp = sampler.New()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	if logger == nil {
		logger = adapterlog.NewNoopLogger()
	}

	w := &Writer{
		cfg:        cfg,
		transport:  transport,
		newEncoder: encoders,
		sampler:    smp,
		metrics:    m,
		logger:     logger,
		emitter:    emitter,
		startup:    &startupOnce{reporter: reporter},
		climit:     make(chan struct{}, concurrentSendLimit),
	}

	if v := domain.ParseProtocol(cfg.Protocol); v.Resolved() {
		w.resolve(v)
		return w, nil
	}

	w.neg = &Negotiator{
		transport:   transport,
		delay:       cfg.ProbeRetryDelay,
		headers:     w.headers,
		first:       w.startup,
		logger:      logger,
		metrics:     m,
		onAmbiguous: w.dropPending,
		onResolved:  w.resolve,
	}
	return w, nil
}

// Start launches the negotiation loop when the protocol is not pinned.
// Canceling ctx stops the loop without resolving.
func (w *Writer) Start(ctx context.Context) {
	if w.neg == nil {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.neg.Run(ctx)
	}()
}

// Append accepts one trace. Before resolution it queues the trace; after, it
// encodes into the buffer. An oversized trace is dropped and logged, never an
// error. A non-overflow encoder failure poisons the writer and is returned
// here and on every later call.
func (w *Writer) Append(trace domain.Trace) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return domain.ErrWriterClosed
	}
	if w.fatal != nil {
		return w.fatal
	}
	if !w.version.Resolved() {
		w.pending = append(w.pending, trace)
		return nil
	}
	if err := w.encodeLocked(trace); err != nil {
		w.fatal = err
		return err
	}
	return nil
}

// encodeLocked runs one trace through the encoder. Overflow drops the trace
// and leaves the buffer untouched.
func (w *Writer) encodeLocked(trace domain.Trace) error {
	off, err := w.enc.Encode(w.buf.data, w.buf.writeOff, trace)
	if err != nil {
		if errors.Is(err, domain.ErrBufferFull) {
			w.metrics.RecordDropped(dropBufferFull, 1)
			w.logger.Warn("trace dropped: encode buffer full",
				ports.Int("spans", len(trace)),
				ports.Int("buffered_traces", w.buf.itemCount),
				ports.Int("buffered_bytes", w.buf.writeOff),
			)
			return nil
		}
		return fmt.Errorf("encode trace: %w", err)
	}
	w.buf.writeOff = off
	w.buf.itemCount++
	return nil
}

// Flush hands the buffered payload to the async sender and immediately
// resets for the next generation. Unresolved writers only mark that a flush
// is owed; an empty buffer is a no-op.
func (w *Writer) Flush() {
	w.mu.Lock()
	if !w.closed {
		w.flushLocked()
	}
	w.mu.Unlock()
}

func (w *Writer) flushLocked() {
	if !w.version.Resolved() {
		w.flushPending = true
		return
	}
	if w.buf.empty() {
		return
	}

	data, count := w.buf.finalize()
	payload, err := w.enc.MakePayload(data)

	// The sent payload must be independent of the next buffer generation,
	// so the buffer is replaced, not rewound.
	w.buf = newEncodeBuffer(w.cfg.BufferSize, w.cfg.HeaderReserve)
	w.enc.Init()

	if err != nil {
		w.fatal = fmt.Errorf("assemble payload: %w", err)
		w.metrics.RecordDropped(dropPayloadError, count)
		w.logger.Error("payload assembly failed", ports.Err(err), ports.Int("traces", count))
		return
	}

	w.metrics.RecordFlush(count, len(payload))
	w.dispatch(payload, count, w.version)
}

// dispatch sends a finished payload without blocking the mutator.
func (w *Writer) dispatch(payload []byte, count int, version domain.ProtocolVersion) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.climit <- struct{}{}
		defer func() { <-w.climit }()
		w.sendPayload(payload, count, version)
	}()
}

// sendPayload delivers one payload. Failures are terminal for the payload:
// it is logged, counted and lost. Successful responses feed the sampler.
func (w *Writer) sendPayload(payload []byte, count int, version domain.ProtocolVersion) {
	req := ports.Request{
		Method:  http.MethodPut,
		Path:    version.TracePath(),
		Headers: w.headers(count),
		Body:    payload,
	}

	w.metrics.RecordRequest()
	start := time.Now()
	resp, err := w.transport.Send(context.Background(), req)
	w.startup.report(err)
	if err != nil {
		w.metrics.RecordTransportError(errorKind(err))
		w.logger.Error("trace payload lost: transport failure",
			ports.Err(err),
			ports.Int("traces", count),
			ports.Int("bytes", len(payload)),
		)
		if w.emitter != nil {
			w.emitter.OnSendError(err, count)
		}
		return
	}

	w.metrics.RecordResponse(resp.StatusCode)
	if resp.StatusCode/100 != 2 {
		w.logger.Error("trace payload lost: collector rejected payload",
			ports.Int("status", resp.StatusCode),
			ports.Int("traces", count),
			ports.String("body", string(resp.Body)),
		)
		if w.emitter != nil {
			w.emitter.OnSendError(fmt.Errorf("collector status %d", resp.StatusCode), count)
		}
		return
	}

	w.logger.Debug("sent payload",
		ports.Int("traces", count),
		ports.Int("bytes", len(payload)),
		ports.Duration("duration", time.Since(start)),
	)
	if w.emitter != nil {
		w.emitter.OnSendSuccess(count, len(payload), time.Since(start))
	}
	w.applyRates(resp.Body)
}

// applyRates feeds the collector's rate table to the sampler. A malformed
// body is counted and logged, never fatal.
func (w *Writer) applyRates(body []byte) {
	if len(body) == 0 {
		return
	}
	var out struct {
		RateByService map[string]float64 `json:"rate_by_service"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		w.metrics.RecordResponseParseError()
		w.logger.Warn("unparseable rate table in collector response", ports.Err(err))
		return
	}
	if out.RateByService == nil {
		return
	}
	w.sampler.Update(out.RateByService)
}

// resolve installs the encoder for the discovered version, replays the
// pending queue in arrival order and performs the owed flush. It runs as one
// critical section, so appends arriving after resolution encode after every
// replayed trace.
func (w *Writer) resolve(version domain.ProtocolVersion) {
	w.mu.Lock()
	if w.closed || w.version.Resolved() {
		w.mu.Unlock()
		return
	}

	w.version = version
	w.enc = w.newEncoder(version)
	w.buf = newEncodeBuffer(w.cfg.BufferSize, w.cfg.HeaderReserve)
	w.enc.Init()

	pending := w.pending
	w.pending = nil
	replayed := 0
	for i, trace := range pending {
		if err := w.encodeLocked(trace); err != nil {
			w.fatal = err
			w.metrics.RecordDropped(dropPayloadError, len(pending)-i)
			w.logger.Error("encoder failure during replay", ports.Err(err),
				ports.Int("dropped", len(pending)-i))
			break
		}
		replayed++
	}

	if w.flushPending {
		w.flushPending = false
		w.flushLocked()
	}
	w.mu.Unlock()

	// Emit outside of lock
	w.logger.Info("collector protocol resolved",
		ports.String("protocol", version.String()),
		ports.Int("replayed", replayed),
	)
	if w.emitter != nil {
		w.emitter.OnProtocolResolved(version)
	}
}

// dropPending discards everything queued behind an unresolved protocol. This
// is the documented response to an ambiguous probe: queued traces are lost,
// not retried.
func (w *Writer) dropPending(cause error) {
	w.mu.Lock()
	n := len(w.pending)
	hadFlush := w.flushPending
	w.pending = nil
	w.flushPending = false
	w.mu.Unlock()

	if n == 0 && !hadFlush {
		return
	}
	w.metrics.RecordDropped(dropNegotiation, n)
	w.logger.Warn("negotiation ambiguous, dropping queued traces",
		ports.Int("traces", n),
		ports.Bool("flush_pending", hadFlush),
		ports.Err(cause),
	)
}

// Stop flushes what it can and waits for in-flight sends. The caller must
// cancel the Start context first so the negotiation loop can exit. Stopping
// an unresolved writer drops whatever is queued.
func (w *Writer) Stop(timeout time.Duration) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		if w.version.Resolved() {
			w.flushLocked()
		} else if n := len(w.pending); n > 0 || w.flushPending {
			w.metrics.RecordDropped(dropShutdown, n)
			w.logger.Warn("stopping before protocol resolution, dropping queued traces",
				ports.Int("traces", n))
			w.pending = nil
			w.flushPending = false
		}
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		w.logger.Warn("shutdown timeout waiting for in-flight sends",
			ports.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}

// Protocol returns the resolved wire protocol, or ProtocolUnresolved while
// negotiation is still running.
func (w *Writer) Protocol() domain.ProtocolVersion {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.version
}

// Closed reports whether Stop has been called. A closed writer rejects all
// appends; callers that want to keep exporting must build a new writer.
func (w *Writer) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Negotiation returns the probe loop state. Pinned writers are Resolved from
// construction.
func (w *Writer) Negotiation() NegotiationState {
	if w.neg == nil {
		return NegotiationResolved
	}
	return w.neg.State()
}

// Stats is a point-in-time snapshot for status output.
type Stats struct {
	Protocol       domain.ProtocolVersion
	Negotiation    NegotiationState
	PendingTraces  int
	BufferedTraces int
	BufferedBytes  int
	FlushPending   bool
}

// Stats snapshots the writer.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Stats{
		Protocol:      w.version,
		Negotiation:   NegotiationResolved,
		PendingTraces: len(w.pending),
		FlushPending:  w.flushPending,
	}
	if w.neg != nil {
		s.Negotiation = w.neg.State()
	}
	if w.buf != nil {
		s.BufferedTraces = w.buf.itemCount
		s.BufferedBytes = w.buf.writeOff
	}
	return s
}

// headers assembles the identity and bookkeeping headers for one request.
// Unknown identity values are omitted rather than sent empty.
func (w *Writer) headers(traceCount int) map[string]string {
	h := make(map[string]string, 8+len(w.cfg.ExtraHeaders))
	for k, v := range w.cfg.ExtraHeaders {
		h[k] = v
	}
	h["Content-Type"] = encode.ContentType
	h[TraceCountHeader] = strconv.Itoa(traceCount)
	setIfKnown(h, "X-Tracer-Version", w.cfg.TracerVersion)
	setIfKnown(h, "X-Tracer-Lang", "go")
	setIfKnown(h, "X-Tracer-Lang-Version", strings.TrimPrefix(runtime.Version(), "go"))
	setIfKnown(h, "X-Tracer-Lang-Interpreter", runtime.Compiler+"-"+runtime.GOARCH+"-"+runtime.GOOS)
	setIfKnown(h, "X-Tracer-Runtime-ID", w.cfg.RuntimeID)
	setIfKnown(h, "X-Agent-Hostname", w.cfg.Hostname)
	return h
}

func setIfKnown(h map[string]string, key, value string) {
	if value != "" {
		h[key] = value
	}
}
