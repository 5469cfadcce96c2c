package encode

import (
	"github.com/bft-labs/traceship/internal/domain"
	"github.com/bft-labs/traceship/internal/ports"
)

// ContentType is the MIME type of every encoded payload, probe included.
const ContentType = "application/msgpack"

// ForVersion returns a fresh encoder for a resolved protocol version, or nil
// for an unresolved one. Each writer owns its encoder; encoders are not safe
// for concurrent use.
func ForVersion(v domain.ProtocolVersion) ports.Encoder {
	switch v {
	case domain.ProtocolLegacy:
		return NewLegacy()
	case domain.ProtocolCompact:
		return NewCompact()
	default:
		return nil
	}
}
