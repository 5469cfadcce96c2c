// Package replay reads recorded traces from JSON Lines files.
//
// A replay file holds one trace per line, each line a JSON array of spans.
// Files ending in .gz are decompressed on the fly. Lines that do not parse
// are skipped and counted rather than aborting the run, so a partially
// corrupt recording still replays everything readable.
//
// # Usage
//
//	r, err := replay.Open("traces.jsonl.gz", logger)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	for {
//	    trace, err := r.Next(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    exporter.Export(trace)
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package replay
