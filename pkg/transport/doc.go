// Package transport delivers encoded trace payloads to a collector over HTTP.
//
// A transport is bound to one destination: a TCP endpoint
// ("http://host:port", "https://host:port") or a unix domain socket
// ("unix:///var/run/collector.sock"). Requests carry the method, route and
// headers chosen by the caller; the transport never interprets status codes,
// because protocol negotiation treats 404 as an answer rather than a failure.
//
// # Usage
//
// Create a transport and send a request:
//
//	tr, err := transport.New(transport.Config{
//	    Destination: "http://localhost:8126",
//	    Timeout:     10 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//
//	resp, err := tr.Send(ctx, transport.Request{
//	    Method: http.MethodPut,
//	    Path:   "/v2/traces",
//	    Body:   payload,
//	})
//
// # Custom Transports
//
// Implement the Client interface to send to alternative destinations
// (e.g., a message queue or a local file for debugging).
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package transport
