package ports

import "github.com/bft-labs/traceship/pkg/metrics"

// Metrics aliases the pkg/metrics client contract. The writer records every
// transport dispatch, response status, classified failure, flush, dropped
// trace and negotiation probe through it.
type Metrics = metrics.Client
