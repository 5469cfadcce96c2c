package ports

// Sampler receives sampling-rate tables extracted from collector responses.
// The writer only forwards updates; sampling decisions happen elsewhere.
type Sampler interface {
	// Update replaces the sampler's rate table. Keys are collector service
	// keys (e.g. "service:web,env:prod"), values are rates in [0, 1].
	Update(rates map[string]float64)
}
