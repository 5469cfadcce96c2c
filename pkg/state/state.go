package state

import "time"

// RunStatus is the persistent record of one exporter run. It is saved after
// protocol resolution and on shutdown so operators and a restarting exporter
// can see what the last run negotiated and delivered.
type RunStatus struct {
	// Protocol is the negotiated collector protocol ("v1" or "v2"), or
	// "unresolved" when the run ended before negotiation finished.
	Protocol string `json:"protocol"`

	// ResolvedAt is when negotiation finished. Zero when unresolved.
	ResolvedAt time.Time `json:"resolved_at,omitempty"`

	// TracesSent counts traces handed to the collector in accepted payloads.
	TracesSent uint64 `json:"traces_sent"`

	// TracesDropped counts traces lost to overflow, ambiguous negotiation or
	// shutdown.
	TracesDropped uint64 `json:"traces_dropped"`

	// PayloadsSent counts accepted payload deliveries.
	PayloadsSent uint64 `json:"payloads_sent"`

	// BytesSent counts payload bytes in accepted deliveries.
	BytesSent uint64 `json:"bytes_sent"`

	// LastFlushAt is the time of the most recent payload hand-off.
	LastFlushAt time.Time `json:"last_flush_at,omitempty"`

	// LastError is the most recent send or probe failure, empty when the run
	// was clean.
	LastError string `json:"last_error,omitempty"`

	// LastErrorAt is when LastError happened.
	LastErrorAt time.Time `json:"last_error_at,omitempty"`

	// StartedAt and StoppedAt bound the run.
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
}

// IsEmpty returns true if the status has not been initialized.
func (s RunStatus) IsEmpty() bool {
	return s.StartedAt.IsZero()
}

// RecordSend updates the status after an accepted payload delivery.
func (s *RunStatus) RecordSend(traces, bytes int) {
	s.TracesSent += uint64(traces)
	s.BytesSent += uint64(bytes)
	s.PayloadsSent++
	s.LastFlushAt = time.Now()
}

// RecordDrop updates the status after traces are lost.
func (s *RunStatus) RecordDrop(traces int) {
	s.TracesDropped += uint64(traces)
}

// RecordError remembers the most recent failure.
func (s *RunStatus) RecordError(err error) {
	if err == nil {
		return
	}
	s.LastError = err.Error()
	s.LastErrorAt = time.Now()
}

// RecordResolution remembers the negotiated protocol.
func (s *RunStatus) RecordResolution(protocol string) {
	s.Protocol = protocol
	s.ResolvedAt = time.Now()
}
