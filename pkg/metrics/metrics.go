package metrics

// Client records writer health and throughput counters. Implementations must
// be safe for concurrent use; the writer calls them from its mutator path and
// from async send goroutines.
type Client interface {
	// RecordRequest counts a transport dispatch (probe or payload send).
	RecordRequest()

	// RecordResponse counts a received response by status code.
	RecordResponse(statusCode int)

	// RecordTransportError counts a failed transport call by error kind.
	RecordTransportError(kind string)

	// RecordFlush counts a successful payload hand-off with its trace count
	// and encoded size.
	RecordFlush(traces int, bytes int)

	// RecordDropped counts traces dropped by reason.
	RecordDropped(reason string, traces int)

	// RecordResponseParseError counts a collector response body that could
	// not be parsed as a rate table.
	RecordResponseParseError()

	// RecordProbe counts a negotiation probe by outcome.
	RecordProbe(outcome string)
}

// NoopClient implements Client by discarding every record.
type NoopClient struct{}

// NewNoop creates a no-op metrics client.
func NewNoop() *NoopClient {
	return &NoopClient{}
}

// RecordRequest discards the record.
func (NoopClient) RecordRequest() {}

// RecordResponse discards the record.
func (NoopClient) RecordResponse(statusCode int) {}

// RecordTransportError discards the record.
func (NoopClient) RecordTransportError(kind string) {}

// RecordFlush discards the record.
func (NoopClient) RecordFlush(traces, bytes int) {}

// RecordDropped discards the record.
func (NoopClient) RecordDropped(reason string, traces int) {}

// RecordResponseParseError discards the record.
func (NoopClient) RecordResponseParseError() {}

// RecordProbe discards the record.
func (NoopClient) RecordProbe(outcome string) {}
