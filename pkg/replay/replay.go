package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/traceship/internal/domain"
	"github.com/bft-labs/traceship/pkg/log"
)

// Span and Trace alias the exporter's trace model so replay files can be fed
// straight into an exporter.
type (
	Span  = domain.Span
	Trace = domain.Trace
)

// Reader iterates traces recorded as JSON lines.
type Reader struct {
	f       *os.File
	zr      *gzip.Reader
	reader  *bufio.Reader
	path    string
	line    int
	skipped int
	logger  log.Logger
}

// Open opens a replay file. Paths ending in .gz are read through a gzip
// decompressor.
func Open(path string, logger log.Logger) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, path: path, logger: logger}
	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		r.zr = zr
		src = zr
	}
	r.reader = bufio.NewReaderSize(src, 64*1024)
	return r, nil
}

// Next returns the next recorded trace. It returns io.EOF once the file is
// exhausted. Unparseable and empty lines are skipped, not errors.
func (r *Reader) Next(ctx context.Context) (Trace, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line, err := r.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if len(line) == 0 {
			return nil, io.EOF
		}
		r.line++
		atEnd := errors.Is(err, io.EOF) // a final line may arrive without its newline

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if atEnd {
				return nil, io.EOF
			}
			continue
		}

		var trace Trace
		if jerr := json.Unmarshal(trimmed, &trace); jerr != nil || len(trace) == 0 {
			r.skipped++
			r.logger.Warn("skipping unreadable replay line",
				log.String("file", r.path),
				log.Int("line", r.line),
			)
			if atEnd {
				return nil, io.EOF
			}
			continue
		}
		return trace, nil
	}
}

// Skipped returns how many lines were discarded as unreadable.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Close releases the underlying file and decompressor.
func (r *Reader) Close() error {
	var errs []error
	if r.zr != nil {
		if err := r.zr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.f != nil {
		if err := r.f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
