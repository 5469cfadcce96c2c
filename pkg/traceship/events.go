package traceship

import "time"

// EventHandler receives notifications about exporter operations.
// Handlers are called synchronously from exporter goroutines and should
// return quickly to avoid blocking export work.
type EventHandler interface {
	// OnStateChange is called when the exporter lifecycle state changes.
	OnStateChange(event StateChangeEvent)

	// OnProtocolResolved is called once the collector protocol is known.
	OnProtocolResolved(event ProtocolResolvedEvent)

	// OnSendSuccess is called after the collector accepts a payload.
	OnSendSuccess(event SendSuccessEvent)

	// OnSendError is called when a payload is lost to a transport failure or
	// a collector rejection. The payload is not retried.
	OnSendError(event SendErrorEvent)
}

// StateChangeEvent describes a lifecycle state transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ProtocolResolvedEvent describes the outcome of protocol negotiation.
type ProtocolResolvedEvent struct {
	// Protocol is the resolved protocol name ("v1" or "v2").
	Protocol string
}

// SendSuccessEvent describes an accepted payload delivery.
type SendSuccessEvent struct {
	Traces   int
	Bytes    int
	Duration time.Duration
}

// SendErrorEvent describes a lost payload.
type SendErrorEvent struct {
	Error  error
	Traces int
}

// BaseEventHandler provides no-op implementations of all EventHandler
// methods. Embed it to implement only the events you care about.
type BaseEventHandler struct{}

// OnStateChange does nothing.
func (BaseEventHandler) OnStateChange(event StateChangeEvent) {}

// OnProtocolResolved does nothing.
func (BaseEventHandler) OnProtocolResolved(event ProtocolResolvedEvent) {}

// OnSendSuccess does nothing.
func (BaseEventHandler) OnSendSuccess(event SendSuccessEvent) {}

// OnSendError does nothing.
func (BaseEventHandler) OnSendError(event SendErrorEvent) {}
