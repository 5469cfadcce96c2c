package ports

import "github.com/bft-labs/traceship/pkg/transport"

// Transport, Request and Response alias the pkg/transport contract so the
// application layer names ports without importing the public module path.
//
// A transport error means the request never produced an HTTP response.
// Responses come back with a nil error for every status code; interpreting
// the status is the writer's job, because negotiation treats 404 as an
// answer, not a failure.
type (
	Transport = transport.Client
	Request   = transport.Request
	Response  = transport.Response
)
