package replay

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/traceship/pkg/log"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...log.Field) {}
func (nopLogger) Info(msg string, fields ...log.Field)  {}
func (nopLogger) Warn(msg string, fields ...log.Field)  {}
func (nopLogger) Error(msg string, fields ...log.Field) {}

const sampleLines = `[{"service":"web","name":"http.request","resource":"GET /","trace_id":1,"span_id":1,"start":100,"duration":5}]
[{"service":"db","name":"query","resource":"SELECT 1","trace_id":2,"span_id":3,"start":200,"duration":9}]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func readAll(t *testing.T, r *Reader) []Trace {
	t.Helper()
	var traces []Trace
	for {
		trace, err := r.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return traces
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		traces = append(traces, trace)
	}
}

func TestReader_PlainFile(t *testing.T) {
	path := writeFile(t, "traces.jsonl", sampleLines)

	r, err := Open(path, nopLogger{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	traces := readAll(t, r)
	if len(traces) != 2 {
		t.Fatalf("got %d traces, want 2", len(traces))
	}
	if traces[0][0].Service != "web" {
		t.Errorf("first service = %q, want web", traces[0][0].Service)
	}
	if traces[1][0].Resource != "SELECT 1" {
		t.Errorf("second resource = %q, want SELECT 1", traces[1][0].Resource)
	}
	if r.Skipped() != 0 {
		t.Errorf("skipped = %d, want 0", r.Skipped())
	}
}

func TestReader_GzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(sampleLines)); err != nil {
		t.Fatalf("gzip write error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close error = %v", err)
	}

	r, err := Open(path, nopLogger{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	traces := readAll(t, r)
	if len(traces) != 2 {
		t.Errorf("got %d traces from gzip file, want 2", len(traces))
	}
}

func TestReader_SkipsBadLines(t *testing.T) {
	content := `[{"service":"a","name":"n","resource":"r","trace_id":1,"span_id":1,"start":1,"duration":1}]
this is not json
[]

[{"service":"b","name":"n","resource":"r","trace_id":2,"span_id":2,"start":2,"duration":2}]
`
	path := writeFile(t, "mixed.jsonl", content)

	r, err := Open(path, nopLogger{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	traces := readAll(t, r)
	if len(traces) != 2 {
		t.Fatalf("got %d traces, want 2", len(traces))
	}
	if traces[1][0].Service != "b" {
		t.Errorf("second trace service = %q, want b", traces[1][0].Service)
	}
	// The garbage line and the empty array count; the blank line does not.
	if r.Skipped() != 2 {
		t.Errorf("skipped = %d, want 2", r.Skipped())
	}
}

func TestReader_FinalLineWithoutNewline(t *testing.T) {
	content := `[{"service":"a","name":"n","resource":"r","trace_id":1,"span_id":1,"start":1,"duration":1}]`
	path := writeFile(t, "nonewline.jsonl", content)

	r, err := Open(path, nopLogger{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	traces := readAll(t, r)
	if len(traces) != 1 {
		t.Errorf("got %d traces, want 1", len(traces))
	}
}

func TestReader_ContextCancel(t *testing.T) {
	path := writeFile(t, "traces.jsonl", sampleLines)

	r, err := Open(path, nopLogger{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() with canceled context = %v, want context.Canceled", err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.jsonl"), nopLogger{}); err == nil {
		t.Error("Open() of missing file should return an error")
	}
}

func TestOpen_BadGzipHeader(t *testing.T) {
	path := writeFile(t, "broken.jsonl.gz", "not gzip at all")

	if _, err := Open(path, nopLogger{}); err == nil {
		t.Error("Open() of corrupt gzip file should return an error")
	}
}
