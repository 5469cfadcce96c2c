package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
)

const statusFileName = "status.json"

// FileRepository implements Repository using a JSON file.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a new FileRepository for the given directory.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Load retrieves the last saved status from disk.
// Returns an empty status and nil error if no status file exists.
func (r *FileRepository) Load(ctx context.Context) (RunStatus, error) {
	path := filepath.Join(r.dir, statusFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunStatus{}, nil
		}
		return RunStatus{}, err
	}

	var status RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return RunStatus{}, err
	}

	return status, nil
}

// Save persists the current status atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *FileRepository) Save(ctx context.Context, status RunStatus) error {
	// Ensure directory exists
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := filepath.Join(r.dir, statusFileName)
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, statusFileName)
}
