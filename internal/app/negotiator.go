package app

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bft-labs/traceship/internal/domain"
	"github.com/bft-labs/traceship/internal/ports"
)

// NegotiationState tracks protocol discovery progress.
type NegotiationState int32

const (
	// NegotiationUnresolved means no probe has been issued yet.
	NegotiationUnresolved NegotiationState = iota

	// NegotiationProbing means a probe is in flight or waiting to retry.
	NegotiationProbing

	// NegotiationResolved means the collector protocol is known.
	NegotiationResolved
)

// String returns a human-readable representation of the state.
func (s NegotiationState) String() string {
	switch s {
	case NegotiationUnresolved:
		return "Unresolved"
	case NegotiationProbing:
		return "Probing"
	case NegotiationResolved:
		return "Resolved"
	default:
		return "Unknown"
	}
}

// Negotiator discovers which wire protocol the collector speaks by sending a
// minimal compact payload to the compact route and reading the verdict from
// the status code:
//
//	200 - the collector accepted the compact payload
//	404 - the compact route does not exist, the collector is legacy
//
// Every other outcome is ambiguous: the onAmbiguous callback fires (the
// writer uses it to discard its pending queue) and the probe repeats after a
// fixed delay, indefinitely, until the context is canceled. There is no
// implicit default version and no backoff growth.
type Negotiator struct {
	transport ports.Transport
	delay     time.Duration
	headers   func(traceCount int) map[string]string
	first     *startupOnce
	logger    ports.Logger
	metrics   ports.Metrics

	onAmbiguous func(cause error)
	onResolved  func(domain.ProtocolVersion)

	state atomic.Int32
}

// State returns the current negotiation state.
func (n *Negotiator) State() NegotiationState {
	return NegotiationState(n.state.Load())
}

// Run probes until the protocol resolves or ctx is canceled. It invokes
// onResolved exactly once, from this goroutine, on success.
func (n *Negotiator) Run(ctx context.Context) {
	for {
		n.state.Store(int32(NegotiationProbing))

		version, err := n.probe(ctx)
		if version.Resolved() {
			n.state.Store(int32(NegotiationResolved))
			n.onResolved(version)
			return
		}

		// A probe killed by cancellation is shutdown, not ambiguity; the
		// writer's Stop path accounts for whatever is still queued.
		if ctx.Err() != nil {
			n.state.Store(int32(NegotiationUnresolved))
			return
		}
		n.onAmbiguous(err)

		select {
		case <-ctx.Done():
			n.state.Store(int32(NegotiationUnresolved))
			return
		case <-time.After(n.delay):
		}
	}
}

// probe issues one discovery request. It returns ProtocolUnresolved with a
// cause for every ambiguous outcome.
func (n *Negotiator) probe(ctx context.Context) (domain.ProtocolVersion, error) {
	req := ports.Request{
		Method:  http.MethodPut,
		Path:    domain.ProtocolCompact.TracePath(),
		Headers: n.headers(0),
		Body:    domain.ProbePayload(),
	}

	n.metrics.RecordRequest()
	resp, err := n.transport.Send(ctx, req)
	n.first.report(err)
	if err != nil {
		n.metrics.RecordTransportError(errorKind(err))
		n.metrics.RecordProbe(probeAmbiguous)
		n.logger.Warn("protocol probe failed", ports.Err(err))
		return domain.ProtocolUnresolved, err
	}

	n.metrics.RecordResponse(resp.StatusCode)
	switch resp.StatusCode {
	case http.StatusOK:
		n.metrics.RecordProbe(probeCompact)
		return domain.ProtocolCompact, nil
	case http.StatusNotFound:
		n.metrics.RecordProbe(probeLegacy)
		return domain.ProtocolLegacy, nil
	default:
		n.metrics.RecordProbe(probeAmbiguous)
		n.logger.Warn("protocol probe ambiguous", ports.Int("status", resp.StatusCode))
		return domain.ProtocolUnresolved, fmt.Errorf("probe status %d", resp.StatusCode)
	}
}

// Probe outcome labels for metrics.
const (
	probeCompact   = "compact"
	probeLegacy    = "legacy"
	probeAmbiguous = "ambiguous"
)
