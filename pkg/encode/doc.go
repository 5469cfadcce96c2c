// Package encode serializes traces into the collector's msgpack wire formats.
//
// Two protocol versions exist. The legacy (v1) format encodes every span as a
// self-describing map with string keys. The compact (v2) format interns all
// strings into a per-payload string table and encodes spans as fixed-width
// arrays of table indices and numbers, which roughly halves payload size for
// realistic traces.
//
// Both encoders append into a caller-owned fixed-capacity buffer and report
// overflow instead of growing it, so the writer can drop a single oversized
// trace without losing the batch already encoded.
//
// # Container headers
//
// Trace containers and the compact string table always use the wide msgpack
// array32 header (0xdd + big-endian count), never the short forms, so the
// count can be patched into a fixed five-byte reservation after the fact.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package encode
