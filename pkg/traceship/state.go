package traceship

import "github.com/bft-labs/traceship/internal/app"

// State represents the lifecycle state of an Exporter.
type State int

const (
	// StateStopped means the exporter is not running.
	StateStopped State = iota

	// StateStarting means Start() was called and setup is in progress.
	StateStarting

	// StateRunning means the exporter is exporting traces.
	StateRunning

	// StateStopping means Stop() was called and shutdown is in progress.
	StateStopping

	// StateCrashed means the exporter hit an unrecoverable error.
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// CanStart reports whether Start() is valid from this state.
func (s State) CanStart() bool {
	return s == StateStopped || s == StateCrashed
}

// CanStop reports whether Stop() is valid from this state.
func (s State) CanStop() bool {
	return s == StateRunning || s == StateStarting
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

// Stats is a point-in-time snapshot of the exporter's buffers.
type Stats struct {
	// Protocol is the resolved wire protocol name, "unresolved" while
	// negotiation is still in progress.
	Protocol string

	// Negotiating is true while the collector protocol is still unknown.
	Negotiating bool

	// PendingTraces counts traces queued ahead of protocol resolution.
	PendingTraces int

	// BufferedTraces counts traces encoded into the current buffer.
	BufferedTraces int

	// BufferedBytes is the encoded size of the current buffer.
	BufferedBytes int

	// FlushPending is true when a flush was requested before resolution and
	// will run as soon as the protocol is known.
	FlushPending bool
}

func convertStats(s app.Stats) Stats {
	return Stats{
		Protocol:       s.Protocol.String(),
		Negotiating:    s.Negotiation != app.NegotiationResolved,
		PendingTraces:  s.PendingTraces,
		BufferedTraces: s.BufferedTraces,
		BufferedBytes:  s.BufferedBytes,
		FlushPending:   s.FlushPending,
	}
}
