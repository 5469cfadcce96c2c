package ports

import "github.com/bft-labs/traceship/internal/domain"

// Encoder serializes traces for one collector protocol version into a caller
// owned buffer. Implementations own the wire byte layout; the writer only
// tracks offsets and counts.
//
// An Encoder may keep per-buffer state (the compact protocol interns strings).
// Init resets that state and must be called whenever the buffer it encodes
// into is reset or replaced.
type Encoder interface {
	// Encode appends one trace to buf starting at off and returns the new
	// write offset. buf's capacity is the hard payload limit: if encoding
	// would exceed it, Encode returns off unchanged and
	// domain.ErrBufferFull, and any partial bytes past off are dead. Any
	// other error means the encoder state is corrupt and the writer must
	// not continue with it.
	Encode(buf []byte, off int, trace domain.Trace) (int, error)

	// MakePayload wraps the finalized buffer contents (container-length
	// prefix included) into the final wire payload. The legacy protocol
	// returns data unchanged; the compact protocol prepends its string
	// table. The returned slice may alias data.
	MakePayload(data []byte) ([]byte, error)

	// Init clears per-buffer encoder state for a fresh buffer generation.
	Init()

	// Version reports the protocol this encoder serializes for.
	Version() domain.ProtocolVersion
}
