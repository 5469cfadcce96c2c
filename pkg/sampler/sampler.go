package sampler

import "sync"

// DefaultRateKey is the catch-all entry collectors include for services
// without a specific rate.
const DefaultRateKey = "service:,env:"

// Key builds the collector's service key for a service/env pair.
func Key(service, env string) string {
	return "service:" + service + ",env:" + env
}

// RateByService is a thread-safe sampling-rate table keyed by collector
// service keys. A zero value is usable and reports rate 1 for everything.
type RateByService struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// New creates an empty rate table.
func New() *RateByService {
	return &RateByService{}
}

// Update replaces the table with the rates from the latest collector
// response. The map is copied; the caller keeps ownership of its argument.
func (r *RateByService) Update(rates map[string]float64) {
	cp := make(map[string]float64, len(rates))
	for k, v := range rates {
		cp[k] = clamp(v)
	}

	r.mu.Lock()
	r.rates = cp
	r.mu.Unlock()
}

// Rate returns the sampling rate for a service/env pair, falling back to the
// collector's catch-all entry and finally to 1 (keep everything).
func (r *RateByService) Rate(service, env string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rate, ok := r.rates[Key(service, env)]; ok {
		return rate
	}
	if rate, ok := r.rates[DefaultRateKey]; ok {
		return rate
	}
	return 1
}

// Rates returns a copy of the current table, for status output.
func (r *RateByService) Rates() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp := make(map[string]float64, len(r.rates))
	for k, v := range r.rates {
		cp[k] = v
	}
	return cp
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
