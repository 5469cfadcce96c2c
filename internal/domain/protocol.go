package domain

import (
	"encoding/binary"
	"strings"
)

// ProtocolVersion identifies which collector wire protocol payloads are
// encoded for. The version is unknown at startup unless pinned by
// configuration; negotiation resolves it exactly once per writer.
type ProtocolVersion int

const (
	// ProtocolUnresolved means the collector protocol has not been
	// discovered yet. No encoding may happen in this state.
	ProtocolUnresolved ProtocolVersion = iota

	// ProtocolLegacy is the v1 protocol: self-describing msgpack maps.
	ProtocolLegacy

	// ProtocolCompact is the v2 protocol: string-table compact encoding.
	ProtocolCompact
)

// legacyPrefix matches explicit protocol strings that pin the legacy wire
// format (e.g., "v1", "v1.0").
const legacyPrefix = "v1"

// String returns the short protocol name used in paths, logs and status files.
func (v ProtocolVersion) String() string {
	switch v {
	case ProtocolLegacy:
		return "v1"
	case ProtocolCompact:
		return "v2"
	default:
		return "unresolved"
	}
}

// TracePath returns the collector route payloads of this version are sent to.
func (v ProtocolVersion) TracePath() string {
	switch v {
	case ProtocolLegacy:
		return "/v1/traces"
	case ProtocolCompact:
		return "/v2/traces"
	default:
		return ""
	}
}

// Resolved reports whether the version names a concrete wire protocol.
func (v ProtocolVersion) Resolved() bool {
	return v == ProtocolLegacy || v == ProtocolCompact
}

// ParseProtocol maps an explicit protocol string from configuration to a
// version. The match is by prefix: anything starting with "v1" pins legacy,
// any other non-empty value pins compact. Empty means negotiate.
func ParseProtocol(s string) ProtocolVersion {
	if s == "" {
		return ProtocolUnresolved
	}
	if strings.HasPrefix(s, legacyPrefix) {
		return ProtocolLegacy
	}
	return ProtocolCompact
}

// ContainerHeaderSize is the number of bytes reserved at the front of an
// encode buffer for the container-length prefix.
const ContainerHeaderSize = 5

// PutContainerHeader writes the container-length prefix for n items into the
// first ContainerHeaderSize bytes of b. The prefix is a msgpack array32
// header, always in the wide encoding so the reservation size never varies
// with the count.
func PutContainerHeader(b []byte, n int) {
	b[0] = 0xdd
	binary.BigEndian.PutUint32(b[1:ContainerHeaderSize], uint32(n))
}

// ProbePayload returns the minimal compact payload used to probe the
// collector: a two-element msgpack array holding an empty string table and an
// empty trace list. The bytes are fixed; a copy is returned so callers may
// hand it to a transport that takes ownership.
func ProbePayload() []byte {
	return []byte{0x92, 0x90, 0x90}
}
