// Package sampler holds the sampling-rate table pushed by the collector.
//
// Collectors answer successful trace submissions with a body of the form
//
//	{"rate_by_service": {"service:web,env:prod": 0.5, "service:,env:": 1}}
//
// The writer forwards each table to a sampler; applications query it to make
// head-based sampling decisions. The zero key "service:,env:" is the
// collector's catch-all default. No sampling decision logic lives in this
// repository; the table is state, not policy.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package sampler
