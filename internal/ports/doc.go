// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [Encoder]: Encodes traces into a bounded buffer for one wire protocol
//   - [Transport]: Delivers requests to the collector and returns raw responses
//   - [Sampler]: Receives sampling-rate updates extracted from collector responses
//   - [Metrics]: Health and throughput counters
//   - [StartupReporter]: One-time diagnostics hook fired on the first transport call
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Concrete implementations live in pkg/encode, pkg/transport, pkg/sampler,
// pkg/metrics and internal/adapters.
//
// This separation enables:
//   - Testing application logic with mock implementations
//   - Swapping infrastructure without changing business logic
//   - Clear boundaries and dependency direction
package ports
