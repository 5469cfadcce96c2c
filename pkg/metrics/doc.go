// Package metrics defines the health and throughput counters a writer emits
// and provides implementations: a prometheus adapter and a no-op client.
//
// The writer records every transport dispatch, response status, classified
// transport failure, flush, dropped trace and negotiation probe. Counters are
// cheap by design: the writer calls them on the hot path.
//
// # Usage
//
// Register prometheus counters and pass the client to the exporter:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewPrometheus(reg)
//
// Use the no-op client when counters are not wanted:
//
//	m := metrics.NewNoop()
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package metrics
