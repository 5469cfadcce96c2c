package traceship

import (
	"github.com/bft-labs/traceship/pkg/encode"
	"github.com/bft-labs/traceship/pkg/log"
	"github.com/bft-labs/traceship/pkg/metrics"
	"github.com/bft-labs/traceship/pkg/replay"
	"github.com/bft-labs/traceship/pkg/sampler"
	"github.com/bft-labs/traceship/pkg/state"
	"github.com/bft-labs/traceship/pkg/transport"
)

// Version information for the traceship module.
const (
	// Version is the current version of the traceship module. It is also the
	// tracer version reported to the collector on every request.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)

// ModuleVersions returns the current version of every sub-module, keyed by
// module name. Useful for diagnostics and support reports.
func ModuleVersions() map[string]string {
	return map[string]string{
		"traceship": Version,
		"encode":    encode.Version,
		"transport": transport.Version,
		"sampler":   sampler.Version,
		"metrics":   metrics.Version,
		"state":     state.Version,
		"replay":    replay.Version,
		"log":       log.Version,
	}
}

// CompatibilityMatrix returns the minimum compatible version of every
// sub-module, keyed by module name.
func CompatibilityMatrix() map[string]string {
	return map[string]string{
		"traceship": MinCompatibleVersion,
		"encode":    encode.MinCompatibleVersion,
		"transport": transport.MinCompatibleVersion,
		"sampler":   sampler.MinCompatibleVersion,
		"metrics":   metrics.MinCompatibleVersion,
		"state":     state.MinCompatibleVersion,
		"replay":    replay.MinCompatibleVersion,
		"log":       log.MinCompatibleVersion,
	}
}
