package transport

import (
	"context"
	"net/http"
)

// Request describes one call to the collector. The destination is transport
// construction state, not per-request data.
type Request struct {
	// Method is the HTTP method, normally PUT.
	Method string

	// Path is the collector route, e.g. "/v2/traces".
	Path string

	// Headers are set verbatim on the request; empty values are skipped.
	Headers map[string]string

	// Body is the encoded payload. The transport takes ownership.
	Body []byte
}

// Response is the collector's answer to a delivered request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the response body. For non-2xx statuses it is truncated to a
	// small diagnostic window.
	Body []byte
}

// Client delivers requests to a collector.
//
// A non-nil error means the request never produced an HTTP response
// (connection refused, timeout, DNS failure). Responses are returned with a
// nil error for every status code; interpreting the status is the caller's
// job.
type Client interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// HTTPClient abstracts HTTP request execution for testing and custom
// transports. The standard *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}
