// Package traceship provides an embeddable trace exporter with collector
// protocol negotiation.
//
// Traceship ships finished traces to a collector over HTTP, discovering
// whether the collector speaks the legacy (v1) or compact (v2) wire protocol
// before encoding a single byte. It can be used as a standalone CLI
// application or embedded as a library in other Go programs.
//
// # Basic Usage
//
// To embed traceship in your application:
//
//	cfg := traceship.Config{
//	    CollectorURL: "http://localhost:8126",
//	}
//
//	exp, err := traceship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := exp.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	exp.Export(trace)
//
//	// ... run until shutdown signal ...
//
//	if err := exp.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Protocol Negotiation
//
// With Config.Protocol empty, the exporter probes the collector with an empty
// payload and resolves the protocol from the response: the compact protocol
// when the collector accepts it, the legacy protocol when it does not exist
// there. Traces exported before resolution are queued and replayed in order
// once the protocol is known. Pinning Config.Protocol ("v1" or "v2") skips
// probing entirely.
//
// # Configuration
//
// Create a [Config] with at minimum CollectorURL. All other fields have
// sensible defaults set via [Config.SetDefaults].
//
// # Event Handling
//
// To receive notifications about exporter operations, implement [EventHandler]
// and pass it via [WithEventHandler]:
//
//	handler := &myEventHandler{}
//	exp, err := traceship.New(cfg, traceship.WithEventHandler(handler))
//
// Events are called synchronously from the export goroutines. Implementations
// should return quickly to avoid blocking sends.
//
// # Dependency Injection
//
// For testing, you can inject custom implementations of external dependencies:
//
//	exp, err := traceship.New(cfg,
//	    traceship.WithHTTPClient(mockClient),
//	    traceship.WithLogger(customLogger),
//	)
//
// # Lifecycle States
//
// An Exporter instance can be in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed]. Use
// [Exporter.Status] to query the current state.
//
// # Plugins
//
// Traceship supports optional plugins for extended functionality:
//
//	import "github.com/bft-labs/traceship/plugins/configwatcher"
//	import "github.com/bft-labs/traceship/plugins/metricsserver"
//
//	srv := metricsserver.New(metricsserver.DefaultConfig())
//	exp, err := traceship.New(cfg,
//	    traceship.WithMetrics(srv.Metrics()),
//	    traceship.WithPlugin(srv),
//	    configwatcher.WithConfigFile("/etc/traceship/config.toml"),
//	)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules and [CompatibilityMatrix]
// to check minimum compatible versions. See version.go for details.
package traceship
