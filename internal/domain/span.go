package domain

// Span represents a single timed operation recorded by a tracer.
// Field names mirror the collector's wire vocabulary; JSON tags exist for
// replay files and diagnostics output, not for the wire (the wire is msgpack).
type Span struct {
	// Service is the name of the service that produced the span
	Service string `json:"service"`

	// Name is the operation name (e.g., "http.request")
	Name string `json:"name"`

	// Resource is the resource being operated on (e.g., "GET /users/:id")
	Resource string `json:"resource"`

	// Type is the span type hint (e.g., "web", "db"); may be empty
	Type string `json:"type,omitempty"`

	// TraceID identifies the trace this span belongs to
	TraceID uint64 `json:"trace_id"`

	// SpanID identifies this span within the trace
	SpanID uint64 `json:"span_id"`

	// ParentID is the span ID of the parent, or zero for a root span
	ParentID uint64 `json:"parent_id,omitempty"`

	// Start is the span start time in unix nanoseconds
	Start int64 `json:"start"`

	// Duration is the span duration in nanoseconds
	Duration int64 `json:"duration"`

	// Error is non-zero if the span carries an error
	Error int32 `json:"error,omitempty"`

	// Meta holds string tags
	Meta map[string]string `json:"meta,omitempty"`

	// Metrics holds numeric tags
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Trace is an ordered group of spans sharing a trace ID.
// It is the unit the writer accepts, queues, encodes and ships.
type Trace []Span
