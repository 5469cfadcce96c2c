package encode

import (
	"github.com/tinylib/msgp/msgp"

	"github.com/bft-labs/traceship/internal/domain"
)

// compactOverhead is the fixed cost of the compact payload envelope: the
// outer two-element array byte plus the string table's array32 header.
const compactOverhead = 1 + domain.ContainerHeaderSize

// CompactEncoder serializes traces for the v2 protocol. All strings are
// interned into a per-payload string table and spans become fixed twelve
// element arrays of table indices and numbers.
//
// The table is encoder state tied to one buffer generation: Init clears it,
// and a trace that overflows the buffer rolls back the strings it interned so
// the table never references a dropped trace.
type CompactEncoder struct {
	table *stringTable
}

// NewCompact creates a compact (v2) encoder with an empty string table.
func NewCompact() *CompactEncoder {
	return &CompactEncoder{table: newStringTable()}
}

// Version reports the protocol this encoder serializes for.
func (*CompactEncoder) Version() domain.ProtocolVersion {
	return domain.ProtocolCompact
}

// Init discards the string table for a fresh buffer generation.
func (e *CompactEncoder) Init() {
	e.table = newStringTable()
}

// Encode appends one trace to buf at off and returns the new offset. The
// capacity check covers the string-table bytes as well, since table and
// traces ship in the same payload. Returns off unchanged and
// domain.ErrBufferFull if the payload would exceed the buffer capacity.
func (e *CompactEncoder) Encode(buf []byte, off int, trace domain.Trace) (int, error) {
	count, size := e.table.mark()

	out := buf[:off]
	out = msgp.AppendArrayHeader(out, uint32(len(trace)))
	for i := range trace {
		out = e.appendCompactSpan(out, &trace[i])
	}

	if len(out)+e.table.size()+compactOverhead > len(buf) {
		e.table.rollback(count, size)
		return off, domain.ErrBufferFull
	}
	return len(out), nil
}

// MakePayload assembles the final wire payload: an outer two-element array
// holding the string table and the finalized trace container.
func (e *CompactEncoder) MakePayload(data []byte) ([]byte, error) {
	var hdr [domain.ContainerHeaderSize]byte
	domain.PutContainerHeader(hdr[:], e.table.len())

	out := make([]byte, 0, 1+len(hdr)+e.table.size()+len(data))
	out = append(out, 0x92)
	out = append(out, hdr[:]...)
	out = append(out, e.table.bytes...)
	out = append(out, data...)
	return out, nil
}

func (e *CompactEncoder) appendCompactSpan(out []byte, s *domain.Span) []byte {
	out = msgp.AppendArrayHeader(out, 12)
	out = msgp.AppendUint32(out, e.table.intern(s.Service))
	out = msgp.AppendUint32(out, e.table.intern(s.Name))
	out = msgp.AppendUint32(out, e.table.intern(s.Resource))
	out = msgp.AppendUint64(out, s.TraceID)
	out = msgp.AppendUint64(out, s.SpanID)
	out = msgp.AppendUint64(out, s.ParentID)
	out = msgp.AppendInt64(out, s.Start)
	out = msgp.AppendInt64(out, s.Duration)
	out = msgp.AppendInt32(out, s.Error)
	out = msgp.AppendMapHeader(out, uint32(len(s.Meta)))
	for k, v := range s.Meta {
		out = msgp.AppendUint32(out, e.table.intern(k))
		out = msgp.AppendUint32(out, e.table.intern(v))
	}
	out = msgp.AppendMapHeader(out, uint32(len(s.Metrics)))
	for k, v := range s.Metrics {
		out = msgp.AppendUint32(out, e.table.intern(k))
		out = msgp.AppendFloat64(out, v)
	}
	out = msgp.AppendUint32(out, e.table.intern(s.Type))
	return out
}

// stringTable interns strings for one compact payload. Index 0 is always the
// empty string so zero-valued span fields cost one byte.
type stringTable struct {
	strings []string
	indices map[string]uint32
	bytes   []byte
}

func newStringTable() *stringTable {
	t := &stringTable{indices: make(map[string]uint32, 64)}
	t.intern("")
	return t
}

func (t *stringTable) intern(s string) uint32 {
	if idx, ok := t.indices[s]; ok {
		return idx
	}
	idx := uint32(len(t.strings))
	t.strings = append(t.strings, s)
	t.indices[s] = idx
	t.bytes = msgp.AppendString(t.bytes, s)
	return idx
}

// mark snapshots the table so a failed encode can roll back.
func (t *stringTable) mark() (count uint32, size int) {
	return uint32(len(t.strings)), len(t.bytes)
}

// rollback drops every string interned after the snapshot.
func (t *stringTable) rollback(count uint32, size int) {
	for _, s := range t.strings[count:] {
		delete(t.indices, s)
	}
	t.strings = t.strings[:count]
	t.bytes = t.bytes[:size]
}

func (t *stringTable) len() int  { return len(t.strings) }
func (t *stringTable) size() int { return len(t.bytes) }
