package transport

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// LookupFunc overrides DNS resolution for TCP destinations. It receives the
// hostname from the destination URL and returns candidate addresses in the
// order they should be tried.
type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

// Destination is a parsed collector endpoint.
type Destination struct {
	// Network is "tcp" or "unix".
	Network string

	// BaseURL is the URL requests are built against. For unix sockets it is
	// a placeholder host; the dialer ignores it.
	BaseURL string

	// Socket is the filesystem path for unix destinations.
	Socket string
}

// ParseDestination parses a collector endpoint string. Supported forms:
//
//	http://host:port
//	https://host:port
//	unix:///path/to/collector.sock
//
// A bare absolute path is treated as a unix socket.
func ParseDestination(raw string) (Destination, error) {
	if raw == "" {
		return Destination{}, fmt.Errorf("empty destination")
	}
	if strings.HasPrefix(raw, "/") {
		return Destination{Network: "unix", BaseURL: "http://localhost", Socket: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Destination{}, fmt.Errorf("parse destination: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return Destination{}, fmt.Errorf("destination %q has no host", raw)
		}
		return Destination{
			Network: "tcp",
			BaseURL: strings.TrimSuffix(raw, "/"),
		}, nil
	case "unix":
		if u.Path == "" {
			return Destination{}, fmt.Errorf("destination %q has no socket path", raw)
		}
		return Destination{Network: "unix", BaseURL: "http://localhost", Socket: u.Path}, nil
	default:
		return Destination{}, fmt.Errorf("unsupported destination scheme %q", u.Scheme)
	}
}
