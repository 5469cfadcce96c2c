package app

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/traceship/internal/domain"
	"github.com/bft-labs/traceship/internal/ports"
	"github.com/bft-labs/traceship/pkg/sampler"
)

// stubEncoder writes each trace as its first span's resource plus a newline,
// so payload content and ordering are directly readable in assertions.
type stubEncoder struct {
	version domain.ProtocolVersion
	inits   int
	fail    error
}

func (e *stubEncoder) Encode(buf []byte, off int, trace domain.Trace) (int, error) {
	if e.fail != nil {
		return off, e.fail
	}
	line := []byte(trace[0].Resource + "\n")
	if off+len(line) > len(buf) {
		return off, domain.ErrBufferFull
	}
	copy(buf[off:], line)
	return off + len(line), nil
}

func (e *stubEncoder) MakePayload(data []byte) ([]byte, error) { return data, nil }

func (e *stubEncoder) Init() { e.inits++ }

func (e *stubEncoder) Version() domain.ProtocolVersion { return e.version }

func stubEncoders(v domain.ProtocolVersion) ports.Encoder {
	return &stubEncoder{version: v}
}

// countingReporter tallies startup diagnostic reports.
type countingReporter struct {
	mu    sync.Mutex
	calls int
	last  error
}

func (r *countingReporter) ReportStartup(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = err
}

func (r *countingReporter) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func trace(resource string) domain.Trace {
	return domain.Trace{{
		Service:  "test-service",
		Name:     "test.op",
		Resource: resource,
		TraceID:  1,
		SpanID:   2,
		Start:    1700000000000000000,
		Duration: 1000,
	}}
}

func testConfig(protocol string) Config {
	return Config{
		Protocol:        protocol,
		ProbeRetryDelay: time.Millisecond,
	}
}

func newTestWriter(t *testing.T, cfg Config, tr ports.Transport, opts ...func(*writerDeps)) *Writer {
	t.Helper()
	deps := &writerDeps{encoders: stubEncoders}
	for _, opt := range opts {
		opt(deps)
	}
	w, err := NewWriter(cfg, tr, deps.encoders, deps.sampler, deps.metrics, deps.reporter, &mockLogger{}, nil)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	return w
}

type writerDeps struct {
	encoders EncoderFactory
	sampler  ports.Sampler
	metrics  ports.Metrics
	reporter ports.StartupReporter
}

func withMetrics(m ports.Metrics) func(*writerDeps) {
	return func(d *writerDeps) { d.metrics = m }
}

func withSampler(s ports.Sampler) func(*writerDeps) {
	return func(d *writerDeps) { d.sampler = s }
}

func withReporter(r ports.StartupReporter) func(*writerDeps) {
	return func(d *writerDeps) { d.reporter = r }
}

func withEncoders(f EncoderFactory) func(*writerDeps) {
	return func(d *writerDeps) { d.encoders = f }
}

func waitRequest(t *testing.T, tr *fakeTransport) ports.Request {
	t.Helper()
	select {
	case req := <-tr.sent:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a request")
		return ports.Request{}
	}
}

func expectNoRequest(t *testing.T, tr *fakeTransport, wait time.Duration) {
	t.Helper()
	select {
	case req := <-tr.sent:
		t.Fatalf("unexpected request to %s (%d body bytes)", req.Path, len(req.Body))
	case <-time.After(wait):
	}
}

func waitProtocol(t *testing.T, w *Writer, want domain.ProtocolVersion) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Protocol() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("protocol = %v, want %v", w.Protocol(), want)
}

// payloadBody strips the container-length prefix and returns the stub
// encoder's line-per-trace content.
func payloadBody(t *testing.T, req ports.Request) (string, int) {
	t.Helper()
	if len(req.Body) < domain.ContainerHeaderSize {
		t.Fatalf("payload too short: %d bytes", len(req.Body))
	}
	if req.Body[0] != 0xdd {
		t.Fatalf("container header byte = %#x, want 0xdd", req.Body[0])
	}
	count := int(binary.BigEndian.Uint32(req.Body[1:5]))
	return string(req.Body[domain.ContainerHeaderSize:]), count
}

func TestWriter_QueuesWhileUnresolved(t *testing.T) {
	tr := newFakeTransport()
	w := newTestWriter(t, testConfig(""), tr)

	if err := w.Append(trace("a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Append(trace("b")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()

	stats := w.Stats()
	if stats.PendingTraces != 2 {
		t.Errorf("pending = %d, want 2", stats.PendingTraces)
	}
	if stats.BufferedTraces != 0 {
		t.Errorf("buffered = %d, want 0", stats.BufferedTraces)
	}
	if !stats.FlushPending {
		t.Error("flush should be pending while unresolved")
	}
	// Nothing goes on the wire before resolution.
	expectNoRequest(t, tr, 20*time.Millisecond)
}

func TestWriter_ResolveReplaysQueueInOrder(t *testing.T) {
	tr := newFakeTransport(fakeOutcome{status: http.StatusOK})
	w := newTestWriter(t, testConfig(""), tr)

	// Queued before the protocol is known, flush owed.
	if err := w.Append(trace("first")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Append(trace("second")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// First request is the probe.
	probe := waitRequest(t, tr)
	if len(probe.Body) != 3 {
		t.Fatalf("probe body = %d bytes, want 3", len(probe.Body))
	}
	waitProtocol(t, w, domain.ProtocolCompact)

	// The owed flush replays the queue in arrival order.
	payload := waitRequest(t, tr)
	body, count := payloadBody(t, payload)
	if body != "first\nsecond\n" {
		t.Errorf("payload = %q, want %q", body, "first\nsecond\n")
	}
	if count != 2 {
		t.Errorf("container count = %d, want 2", count)
	}
	if got := payload.Headers[TraceCountHeader]; got != "2" {
		t.Errorf("trace count header = %q, want \"2\"", got)
	}
	if payload.Path != "/v2/traces" {
		t.Errorf("path = %s, want /v2/traces", payload.Path)
	}

	// Appends after resolution encode directly.
	if err := w.Append(trace("third")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	payload = waitRequest(t, tr)
	body, count = payloadBody(t, payload)
	if body != "third\n" || count != 1 {
		t.Errorf("payload = %q (count %d), want %q (count 1)", body, count, "third\n")
	}

	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_AmbiguousProbeDropsQueue(t *testing.T) {
	tr := newFakeTransport(
		fakeOutcome{status: http.StatusInternalServerError},
		fakeOutcome{status: http.StatusNotFound},
	)
	metrics := newCountingMetrics()
	w := newTestWriter(t, testConfig(""), tr, withMetrics(metrics))

	if err := w.Append(trace("doomed")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	waitProtocol(t, w, domain.ProtocolLegacy)

	if got := metrics.Dropped("negotiation_ambiguous"); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
	stats := w.Stats()
	if stats.PendingTraces != 0 {
		t.Errorf("pending = %d, want 0", stats.PendingTraces)
	}
	if stats.FlushPending {
		t.Error("flush flag should be cleared with the dropped queue")
	}

	// Drain the two probes; no payload may follow, the queue is gone.
	waitRequest(t, tr)
	waitRequest(t, tr)
	expectNoRequest(t, tr, 20*time.Millisecond)

	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_PinnedProtocolSkipsProbing(t *testing.T) {
	tests := []struct {
		protocol string
		want     domain.ProtocolVersion
		wantPath string
	}{
		{"v1", domain.ProtocolLegacy, "/v1/traces"},
		{"v1.0", domain.ProtocolLegacy, "/v1/traces"},
		{"v2", domain.ProtocolCompact, "/v2/traces"},
		{"v3-beta", domain.ProtocolCompact, "/v2/traces"},
	}

	for _, tt := range tests {
		t.Run(tt.protocol, func(t *testing.T) {
			tr := newFakeTransport()
			w := newTestWriter(t, testConfig(tt.protocol), tr)

			if w.Protocol() != tt.want {
				t.Fatalf("Protocol() = %v, want %v", w.Protocol(), tt.want)
			}
			if w.Negotiation() != NegotiationResolved {
				t.Errorf("Negotiation() = %v, want NegotiationResolved", w.Negotiation())
			}

			// Start must not probe when the protocol is pinned.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			w.Start(ctx)

			if err := w.Append(trace("pinned")); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			w.Flush()

			req := waitRequest(t, tr)
			if req.Path != tt.wantPath {
				t.Errorf("path = %s, want %s", req.Path, tt.wantPath)
			}
			if got := req.Headers[TraceCountHeader]; got != "1" {
				t.Errorf("trace count header = %q, want \"1\"", got)
			}
			expectNoRequest(t, tr, 10*time.Millisecond)

			if err := w.Stop(time.Second); err != nil {
				t.Errorf("Stop() error = %v", err)
			}
		})
	}
}

func TestWriter_OversizedTraceDroppedNotFatal(t *testing.T) {
	tr := newFakeTransport()
	metrics := newCountingMetrics()
	cfg := testConfig("v2")
	cfg.BufferSize = domain.ContainerHeaderSize + 8
	w := newTestWriter(t, cfg, tr, withMetrics(metrics))

	// Too large for the remaining capacity: dropped, no error.
	if err := w.Append(trace("this-resource-does-not-fit")); err != nil {
		t.Fatalf("Append() oversized error = %v, want nil", err)
	}
	if got := metrics.Dropped("buffer_full"); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
	if got := w.Stats().BufferedTraces; got != 0 {
		t.Errorf("buffered = %d, want 0", got)
	}

	// A smaller trace still fits afterwards.
	if err := w.Append(trace("ok")); err != nil {
		t.Fatalf("Append() small error = %v", err)
	}
	if got := w.Stats().BufferedTraces; got != 1 {
		t.Errorf("buffered = %d, want 1", got)
	}

	w.Flush()
	body, count := payloadBody(t, waitRequest(t, tr))
	if body != "ok\n" || count != 1 {
		t.Errorf("payload = %q (count %d), want %q (count 1)", body, count, "ok\n")
	}

	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_FatalEncoderErrorPoisons(t *testing.T) {
	tr := newFakeTransport()
	corrupt := errors.New("encoder state corrupt")
	w := newTestWriter(t, testConfig("v2"), tr, withEncoders(func(v domain.ProtocolVersion) ports.Encoder {
		return &stubEncoder{version: v, fail: corrupt}
	}))

	err := w.Append(trace("a"))
	if !errors.Is(err, corrupt) {
		t.Fatalf("Append() error = %v, want wrapped %v", err, corrupt)
	}

	// The writer stays poisoned.
	err2 := w.Append(trace("b"))
	if !errors.Is(err2, corrupt) {
		t.Errorf("second Append() error = %v, want wrapped %v", err2, corrupt)
	}
}

func TestWriter_SendFailureIsNonFatal(t *testing.T) {
	tr := newFakeTransport(fakeOutcome{err: errors.New("collector down")})
	metrics := newCountingMetrics()
	w := newTestWriter(t, testConfig("v1"), tr, withMetrics(metrics))

	if err := w.Append(trace("lost")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	waitRequest(t, tr)

	// The failed send costs the payload, nothing else.
	if err := w.Append(trace("next")); err != nil {
		t.Errorf("Append() after failed send = %v, want nil", err)
	}
	w.Flush()
	body, _ := payloadBody(t, waitRequest(t, tr))
	if body != "next\n" {
		t.Errorf("payload = %q, want %q (failed payload must not be retried)", body, "next\n")
	}

	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	metrics.mu.Lock()
	kinds := metrics.transportErrors["other"]
	metrics.mu.Unlock()
	if kinds != 1 {
		t.Errorf("transport errors = %d, want 1", kinds)
	}
}

func TestWriter_RejectedPayloadIsLost(t *testing.T) {
	tr := newFakeTransport(
		fakeOutcome{status: http.StatusTooManyRequests, body: []byte("slow down")},
		fakeOutcome{status: http.StatusOK},
	)
	w := newTestWriter(t, testConfig("v1"), tr)

	if err := w.Append(trace("rejected")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	waitRequest(t, tr)

	if err := w.Append(trace("after")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	body, _ := payloadBody(t, waitRequest(t, tr))
	if body != "after\n" {
		t.Errorf("payload = %q, want %q", body, "after\n")
	}

	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_AppliesRateTableFromResponse(t *testing.T) {
	rates := sampler.New()
	tr := newFakeTransport(fakeOutcome{
		status: http.StatusOK,
		body:   []byte(`{"rate_by_service":{"service:web,env:prod":0.25}}`),
	})
	w := newTestWriter(t, testConfig("v1"), tr, withSampler(rates))

	if err := w.Append(trace("sampled")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	waitRequest(t, tr)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rates.Rate("web", "prod") == 0.25 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if got := rates.Rate("web", "prod"); got != 0.25 {
		t.Errorf("rate = %v, want 0.25", got)
	}

	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_MalformedRateTableIsNonFatal(t *testing.T) {
	tr := newFakeTransport(fakeOutcome{status: http.StatusOK, body: []byte("not json")})
	metrics := newCountingMetrics()
	w := newTestWriter(t, testConfig("v1"), tr, withMetrics(metrics))

	if err := w.Append(trace("a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	waitRequest(t, tr)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if metrics.ParseErrors() == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if got := metrics.ParseErrors(); got != 1 {
		t.Errorf("parse errors = %d, want 1", got)
	}

	// Still functional.
	if err := w.Append(trace("b")); err != nil {
		t.Errorf("Append() after parse error = %v", err)
	}
	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_StartupReportFiresExactlyOnce(t *testing.T) {
	tr := newFakeTransport()
	reporter := &countingReporter{}
	w := newTestWriter(t, testConfig("v1"), tr, withReporter(reporter))

	for _, r := range []string{"one", "two"} {
		if err := w.Append(trace(r)); err != nil {
			t.Fatalf("Append(%s) error = %v", r, err)
		}
		w.Flush()
		waitRequest(t, tr)
	}
	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}

	if got := reporter.Calls(); got != 1 {
		t.Errorf("startup reports = %d, want exactly 1", got)
	}
}

func TestWriter_ProbeFiresStartupReport(t *testing.T) {
	tr := newFakeTransport(fakeOutcome{status: http.StatusOK})
	reporter := &countingReporter{}
	w := newTestWriter(t, testConfig(""), tr, withReporter(reporter))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	waitProtocol(t, w, domain.ProtocolCompact)

	// The probe was the first transport call, so it is the one that reports.
	if got := reporter.Calls(); got != 1 {
		t.Errorf("startup reports = %d, want 1", got)
	}

	if err := w.Append(trace("a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if got := reporter.Calls(); got != 1 {
		t.Errorf("startup reports after payload send = %d, want still 1", got)
	}
}

func TestWriter_EmptyFlushSendsNothing(t *testing.T) {
	tr := newFakeTransport()
	w := newTestWriter(t, testConfig("v2"), tr)

	w.Flush()
	expectNoRequest(t, tr, 20*time.Millisecond)
}

func TestWriter_IdentityHeaders(t *testing.T) {
	tr := newFakeTransport()
	cfg := testConfig("v2")
	cfg.TracerVersion = "1.4.0"
	cfg.Hostname = "node-7"
	cfg.RuntimeID = "f3a1"
	cfg.ExtraHeaders = map[string]string{"X-Team": "platform"}
	w := newTestWriter(t, cfg, tr)

	if err := w.Append(trace("a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	req := waitRequest(t, tr)

	want := map[string]string{
		"Content-Type":        "application/msgpack",
		"X-Tracer-Version":    "1.4.0",
		"X-Tracer-Lang":       "go",
		"X-Tracer-Runtime-ID": "f3a1",
		"X-Agent-Hostname":    "node-7",
		"X-Team":              "platform",
		TraceCountHeader:      "1",
	}
	for k, v := range want {
		if got := req.Headers[k]; got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
	if req.Headers["X-Tracer-Lang-Version"] == "" {
		t.Error("X-Tracer-Lang-Version should be set from the runtime")
	}
	if strings.HasPrefix(req.Headers["X-Tracer-Lang-Version"], "go") {
		t.Errorf("X-Tracer-Lang-Version = %q, want the bare version number", req.Headers["X-Tracer-Lang-Version"])
	}

	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_UnknownIdentityHeadersOmitted(t *testing.T) {
	tr := newFakeTransport()
	w := newTestWriter(t, testConfig("v2"), tr)

	if err := w.Append(trace("a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	req := waitRequest(t, tr)

	for _, k := range []string{"X-Tracer-Version", "X-Tracer-Runtime-ID", "X-Agent-Hostname"} {
		if _, ok := req.Headers[k]; ok {
			t.Errorf("header %s should be omitted when unknown", k)
		}
	}

	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_StopFlushesBufferedTraces(t *testing.T) {
	tr := newFakeTransport()
	w := newTestWriter(t, testConfig("v1"), tr)

	if err := w.Append(trace("final")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Stop(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	body, count := payloadBody(t, waitRequest(t, tr))
	if body != "final\n" || count != 1 {
		t.Errorf("payload = %q (count %d), want %q (count 1)", body, count, "final\n")
	}

	if err := w.Append(trace("late")); !errors.Is(err, domain.ErrWriterClosed) {
		t.Errorf("Append() after Stop = %v, want ErrWriterClosed", err)
	}
}

func TestWriter_StopWhileUnresolvedDropsQueue(t *testing.T) {
	tr := newFakeTransport()
	metrics := newCountingMetrics()
	w := newTestWriter(t, testConfig(""), tr, withMetrics(metrics))

	if err := w.Append(trace("a")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := w.Append(trace("b")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := w.Stop(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := metrics.Dropped("shutdown"); got != 2 {
		t.Errorf("dropped at shutdown = %d, want 2", got)
	}
	expectNoRequest(t, tr, 20*time.Millisecond)
}

func TestWriter_FlushAfterStopIsNoop(t *testing.T) {
	tr := newFakeTransport()
	w := newTestWriter(t, testConfig("v1"), tr)

	if err := w.Stop(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	w.Flush()
	expectNoRequest(t, tr, 20*time.Millisecond)
}

func TestWriter_ProbeRetriesUntilResolution(t *testing.T) {
	tr := newFakeTransport(
		fakeOutcome{status: http.StatusServiceUnavailable},
		fakeOutcome{err: errors.New("refused")},
		fakeOutcome{status: http.StatusOK},
	)
	w := newTestWriter(t, testConfig(""), tr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	waitProtocol(t, w, domain.ProtocolCompact)

	if got := len(tr.Requests()); got != 3 {
		t.Errorf("probe count = %d, want 3", got)
	}
	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_RealEncodersWireFormat(t *testing.T) {
	// Default encoder factory, legacy protocol: the payload must be the
	// container header followed by msgpack span maps.
	tr := newFakeTransport()
	w, err := NewWriter(testConfig("v1"), tr, nil, nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	if err := w.Append(trace("GET /users")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	req := waitRequest(t, tr)

	if req.Method != http.MethodPut {
		t.Errorf("method = %s, want PUT", req.Method)
	}
	if req.Path != "/v1/traces" {
		t.Errorf("path = %s, want /v1/traces", req.Path)
	}
	if got := req.Headers["Content-Type"]; got != "application/msgpack" {
		t.Errorf("content type = %q, want application/msgpack", got)
	}
	if got := req.Headers[TraceCountHeader]; got != "1" {
		t.Errorf("trace count header = %q, want \"1\"", got)
	}
	if req.Body[0] != 0xdd {
		t.Errorf("container header byte = %#x, want 0xdd", req.Body[0])
	}
	if got := binary.BigEndian.Uint32(req.Body[1:5]); got != 1 {
		t.Errorf("container count = %d, want 1", got)
	}
	if len(req.Body) <= domain.ContainerHeaderSize {
		t.Error("payload carries no span bytes")
	}

	if got := w.Stats().BufferedTraces; got != 0 {
		t.Errorf("buffered after flush = %d, want 0", got)
	}
	if err := w.Stop(time.Second); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_ConcurrentAppendAndFlush(t *testing.T) {
	tr := newFakeTransport()
	w := newTestWriter(t, testConfig("v2"), tr)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = w.Append(trace("concurrent"))
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				w.Flush()
			}
		}()
	}
	wg.Wait()
	if err := w.Stop(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// Every appended trace is accounted for across the flushed payloads.
	total := 0
	for _, req := range tr.Requests() {
		_, count := payloadBody(t, req)
		total += count
	}
	if total != 8*50 {
		t.Errorf("total traces across payloads = %d, want %d", total, 8*50)
	}
}

// recordingEmitter captures writer events.
type recordingEmitter struct {
	mu        sync.Mutex
	resolved  []domain.ProtocolVersion
	successes int
	failures  int
}

func (e *recordingEmitter) OnProtocolResolved(version domain.ProtocolVersion) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolved = append(e.resolved, version)
}

func (e *recordingEmitter) OnSendSuccess(traces, bytes int, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.successes++
}

func (e *recordingEmitter) OnSendError(err error, traces int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures++
}

func (e *recordingEmitter) snapshot() (resolved []domain.ProtocolVersion, successes, failures int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.ProtocolVersion{}, e.resolved...), e.successes, e.failures
}

func TestWriter_EmitsSendEvents(t *testing.T) {
	tr := newFakeTransport(
		fakeOutcome{status: http.StatusOK},
		fakeOutcome{err: errors.New("unreachable")},
	)
	emitter := &recordingEmitter{}
	w, err := NewWriter(testConfig("v2"), tr, stubEncoders, nil, nil, nil, &mockLogger{}, emitter)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	// Pinned protocols resolve at construction.
	if resolved, _, _ := emitter.snapshot(); len(resolved) != 1 || resolved[0] != domain.ProtocolCompact {
		t.Errorf("resolved events = %v, want one ProtocolCompact", resolved)
	}

	if err := w.Append(trace("good")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	if err := w.Append(trace("bad")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	w.Flush()
	if err := w.Stop(time.Second); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	_, successes, failures := emitter.snapshot()
	if successes != 1 {
		t.Errorf("success events = %d, want 1", successes)
	}
	if failures != 1 {
		t.Errorf("failure events = %d, want 1", failures)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"explicit sizes", Config{BufferSize: 1 << 20}, false},
		{"buffer below reserve", Config{BufferSize: 3}, true},
		{"wrong header reserve", Config{HeaderReserve: 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewWriter_RequiresTransport(t *testing.T) {
	_, err := NewWriter(testConfig("v1"), nil, nil, nil, nil, nil, nil, nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("NewWriter(nil transport) error = %v, want ErrInvalidConfig", err)
	}
}
