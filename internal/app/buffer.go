package app

import "github.com/bft-labs/traceship/internal/domain"

// encodeBuffer is the bounded byte region one payload is assembled in. The
// first headerReserve bytes are reserved for the container-length prefix,
// which is written at flush time once the final trace count is known.
//
// itemCount only moves on successful encodes; a failed encode may leave
// partial bytes past writeOff, which the next successful encode overwrites.
type encodeBuffer struct {
	data          []byte
	writeOff      int
	itemCount     int
	headerReserve int
}

func newEncodeBuffer(size, headerReserve int) *encodeBuffer {
	b := &encodeBuffer{
		data:          make([]byte, size),
		headerReserve: headerReserve,
	}
	b.reset()
	return b
}

// reset rewinds the buffer for reuse without reallocating. Flushes never call
// this; they replace the buffer so the sent payload owns its bytes.
func (b *encodeBuffer) reset() {
	b.writeOff = b.headerReserve
	b.itemCount = 0
}

// finalize patches the container-length prefix into the reserved header and
// returns the payload region with its trace count.
func (b *encodeBuffer) finalize() ([]byte, int) {
	domain.PutContainerHeader(b.data[:b.headerReserve], b.itemCount)
	return b.data[:b.writeOff], b.itemCount
}

func (b *encodeBuffer) empty() bool {
	return b.itemCount == 0
}
