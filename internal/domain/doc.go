// Package domain contains the core domain entities and value objects for traceship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Span]: A single timed operation with identity, timing and tags
//   - [Trace]: An ordered group of spans sharing a trace ID, the unit of export
//   - [ProtocolVersion]: The collector wire protocol a payload is encoded for
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
