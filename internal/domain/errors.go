package domain

import "errors"

// Domain errors represent error conditions in the traceship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrBufferFull is returned by encoders when appending a trace would
	// exceed the encode buffer capacity. It is non-fatal: the writer drops
	// the trace and keeps the buffer state unchanged.
	ErrBufferFull = errors.New("traceship: encode buffer full")

	// ErrUnresolvedProtocol is returned when an operation requires a
	// resolved collector protocol before negotiation has finished.
	ErrUnresolvedProtocol = errors.New("traceship: collector protocol not resolved")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("traceship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("traceship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("traceship: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("traceship: invalid configuration")

	// ErrWriterClosed is returned when traces are appended after Stop().
	ErrWriterClosed = errors.New("traceship: writer closed")
)
