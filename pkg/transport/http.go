package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// errorBodyLimit caps how much of a non-2xx response body is kept for
// diagnostics.
const errorBodyLimit = 1 << 10

// DefaultTimeout bounds a whole request/response cycle when the caller does
// not configure one.
const DefaultTimeout = 10 * time.Second

// Config configures an HTTP transport.
type Config struct {
	// Destination is the collector endpoint (see ParseDestination).
	Destination string

	// Timeout bounds each request; DefaultTimeout when zero.
	Timeout time.Duration

	// Client overrides the underlying HTTP client. When set, Destination
	// only contributes the base URL and Lookup is ignored.
	Client HTTPClient

	// Lookup overrides DNS resolution for TCP destinations.
	Lookup LookupFunc
}

// HTTPTransport implements Client over a single collector destination.
// The destination can be swapped at runtime with SetDestination; in-flight
// requests finish against the endpoint they started with.
type HTTPTransport struct {
	client  HTTPClient
	baseURL atomic.Value // string
}

// New creates an HTTP transport for the configured destination.
func New(cfg Config) (*HTTPTransport, error) {
	dest, err := ParseDestination(cfg.Destination)
	if err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{
			Timeout:   timeout,
			Transport: roundTripperFor(dest, cfg.Lookup),
		}
	}

	t := &HTTPTransport{client: client}
	t.baseURL.Store(dest.BaseURL)
	return t, nil
}

// roundTripperFor builds the dialer wiring for a destination: unix sockets
// dial the socket path directly, TCP destinations optionally resolve through
// the caller's lookup function.
func roundTripperFor(dest Destination, lookup LookupFunc) http.RoundTripper {
	dialer := &net.Dialer{}
	tr := &http.Transport{
		MaxIdleConns:    4,
		IdleConnTimeout: 90 * time.Second,
	}

	switch {
	case dest.Network == "unix":
		tr.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", dest.Socket)
		}
	case lookup != nil:
		tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := lookup(ctx, host)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", host, err)
			}
			var dialErr error
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
				if err == nil {
					return conn, nil
				}
				dialErr = err
			}
			if dialErr == nil {
				dialErr = fmt.Errorf("resolve %s: no addresses", host)
			}
			return nil, dialErr
		}
	}
	return tr
}

// SetDestination points subsequent requests at a new collector endpoint.
// Only the base URL changes; the dialer wiring is fixed at construction, so
// swapping between TCP and unix destinations requires a new transport.
func (t *HTTPTransport) SetDestination(raw string) error {
	dest, err := ParseDestination(raw)
	if err != nil {
		return err
	}
	t.baseURL.Store(dest.BaseURL)
	return nil
}

// Send delivers one request and returns the raw response. Every received
// status code is a successful send; errors mean no response was produced.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (*Response, error) {
	url := t.baseURL.Load().(string) + req.Path

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.ContentLength = int64(len(req.Body))
	for k, v := range req.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if resp.StatusCode/100 != 2 {
		reader = io.LimitReader(resp.Body, errorBodyLimit)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
