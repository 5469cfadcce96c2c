package traceship

import "github.com/bft-labs/traceship/internal/domain"

// Sentinel errors returned by Exporter operations, re-exported so callers can
// match them with errors.Is without reaching into internal packages.
var (
	// ErrAlreadyRunning is returned by Start when the exporter is running.
	ErrAlreadyRunning = domain.ErrAlreadyRunning

	// ErrNotRunning is returned by Stop when the exporter is not running.
	ErrNotRunning = domain.ErrNotRunning

	// ErrShutdownTimeout is returned by Stop when in-flight work does not
	// finish within the shutdown timeout.
	ErrShutdownTimeout = domain.ErrShutdownTimeout

	// ErrInvalidConfig is returned by New for unusable configuration.
	ErrInvalidConfig = domain.ErrInvalidConfig

	// ErrWriterClosed is returned by Export after the exporter stopped.
	ErrWriterClosed = domain.ErrWriterClosed
)
