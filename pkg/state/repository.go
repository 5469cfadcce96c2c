package state

import "context"

// Repository handles run status persistence.
// Implementations persist status to disk (or other storage) atomically.
type Repository interface {
	// Load retrieves the last saved status.
	// Returns an empty status and nil error if none exists.
	// Returns an error only for actual read failures.
	Load(ctx context.Context) (RunStatus, error)

	// Save persists the current status atomically.
	// The implementation should use atomic writes (e.g., write to temp file, then rename)
	// to prevent corruption on crash.
	Save(ctx context.Context, status RunStatus) error
}
