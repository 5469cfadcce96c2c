package encode

import (
	"github.com/tinylib/msgp/msgp"

	"github.com/bft-labs/traceship/internal/domain"
)

// LegacyEncoder serializes traces for the v1 protocol: each trace is an array
// of spans and each span a string-keyed msgpack map. Zero-valued optional
// fields (type, parent_id, error, empty meta/metrics) are omitted from the
// map to keep payloads small.
//
// The encoder is stateless; Init and MakePayload are no-ops beyond the
// interface contract.
type LegacyEncoder struct{}

// NewLegacy creates a legacy (v1) encoder.
func NewLegacy() *LegacyEncoder {
	return &LegacyEncoder{}
}

// Version reports the protocol this encoder serializes for.
func (*LegacyEncoder) Version() domain.ProtocolVersion {
	return domain.ProtocolLegacy
}

// Init is a no-op; the legacy encoder keeps no per-buffer state.
func (*LegacyEncoder) Init() {}

// MakePayload returns data unchanged. For the legacy protocol the buffer
// contents, container prefix included, are the complete wire payload.
func (*LegacyEncoder) MakePayload(data []byte) ([]byte, error) {
	return data, nil
}

// Encode appends one trace to buf at off and returns the new offset.
// Returns off unchanged and domain.ErrBufferFull if the trace does not fit.
func (*LegacyEncoder) Encode(buf []byte, off int, trace domain.Trace) (int, error) {
	out := buf[:off]
	out = msgp.AppendArrayHeader(out, uint32(len(trace)))
	for i := range trace {
		out = appendLegacySpan(out, &trace[i])
	}
	if len(out) > len(buf) {
		return off, domain.ErrBufferFull
	}
	return len(out), nil
}

func appendLegacySpan(out []byte, s *domain.Span) []byte {
	fields := uint32(7)
	if s.Type != "" {
		fields++
	}
	if s.ParentID != 0 {
		fields++
	}
	if s.Error != 0 {
		fields++
	}
	if len(s.Meta) > 0 {
		fields++
	}
	if len(s.Metrics) > 0 {
		fields++
	}

	out = msgp.AppendMapHeader(out, fields)
	out = msgp.AppendString(out, "service")
	out = msgp.AppendString(out, s.Service)
	out = msgp.AppendString(out, "name")
	out = msgp.AppendString(out, s.Name)
	out = msgp.AppendString(out, "resource")
	out = msgp.AppendString(out, s.Resource)
	out = msgp.AppendString(out, "trace_id")
	out = msgp.AppendUint64(out, s.TraceID)
	out = msgp.AppendString(out, "span_id")
	out = msgp.AppendUint64(out, s.SpanID)
	out = msgp.AppendString(out, "start")
	out = msgp.AppendInt64(out, s.Start)
	out = msgp.AppendString(out, "duration")
	out = msgp.AppendInt64(out, s.Duration)

	if s.Type != "" {
		out = msgp.AppendString(out, "type")
		out = msgp.AppendString(out, s.Type)
	}
	if s.ParentID != 0 {
		out = msgp.AppendString(out, "parent_id")
		out = msgp.AppendUint64(out, s.ParentID)
	}
	if s.Error != 0 {
		out = msgp.AppendString(out, "error")
		out = msgp.AppendInt32(out, s.Error)
	}
	if len(s.Meta) > 0 {
		out = msgp.AppendString(out, "meta")
		out = msgp.AppendMapHeader(out, uint32(len(s.Meta)))
		for k, v := range s.Meta {
			out = msgp.AppendString(out, k)
			out = msgp.AppendString(out, v)
		}
	}
	if len(s.Metrics) > 0 {
		out = msgp.AppendString(out, "metrics")
		out = msgp.AppendMapHeader(out, uint32(len(s.Metrics)))
		for k, v := range s.Metrics {
			out = msgp.AppendString(out, k)
			out = msgp.AppendFloat64(out, v)
		}
	}
	return out
}
