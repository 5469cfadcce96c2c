package ports

import "github.com/bft-labs/traceship/pkg/log"

// Logger and Field alias the pkg/log contract so application code can take a
// logger without importing the public module path directly.
type (
	Logger = log.Logger
	Field  = log.Field
)

// Re-exported field constructors.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Uint64   = log.Uint64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
