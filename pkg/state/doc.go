// Package state provides persistence for exporter run status.
//
// This package manages loading and saving of a small status document that
// records what the exporter learned and did during a run: the negotiated
// collector protocol, send and drop counters, and the last error seen. Tools
// read it to answer "what happened last run" without scraping logs, and a
// restarting exporter may use the recorded protocol as a hint.
//
// # Usage
//
// Create a file-based repository:
//
//	repo := state.NewFileRepository("/path/to/state/dir")
//
//	// Load the previous run's status
//	s, err := repo.Load(ctx)
//	if err != nil {
//	    return err
//	}
//
//	// ... do work ...
//
//	// Save updated status
//	if err := repo.Save(ctx, s); err != nil {
//	    return err
//	}
//
// Saves are atomic (temp file plus rename), so a crash never leaves a
// half-written status file behind.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package state
