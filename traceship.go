// Package traceship provides a trace exporter that negotiates its wire
// protocol with the collector on first contact.
//
// Example usage:
//
//	cfg := traceship.Config{CollectorURL: "http://localhost:8126"}
//	exp, err := traceship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := exp.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Stop()
//
//	exp.Export(trace)
//
// This package re-exports the essentials. The full API, including options,
// plugins, event handlers and version compatibility checks, lives in
// pkg/traceship.
package traceship

import (
	exporter "github.com/bft-labs/traceship/pkg/traceship"
)

// Config holds the exporter configuration.
// CollectorURL is required; every other field has a sensible default.
type Config = exporter.Config

// Exporter ships traces to a collector. Construct one with New, start it,
// and feed it traces with Export.
type Exporter = exporter.Exporter

// Option customizes an Exporter. Option constructors live in pkg/traceship.
type Option = exporter.Option

// Span is a single timed operation; Trace is an ordered group of spans
// sharing a trace ID.
type (
	Span  = exporter.Span
	Trace = exporter.Trace
)

// New creates an Exporter with the given configuration.
func New(cfg Config, opts ...Option) (*Exporter, error) {
	return exporter.New(cfg, opts...)
}

// Version is the traceship module version.
const Version = exporter.Version
