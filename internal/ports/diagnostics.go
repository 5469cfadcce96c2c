package ports

// StartupReporter receives the outcome of the very first transport call a
// writer makes, probe or payload send alike. The writer guarantees exactly
// one invocation per writer lifetime.
type StartupReporter interface {
	// ReportStartup is called once with the first call's error, nil on
	// success. Implementations typically emit a one-time diagnostics
	// record describing collector connectivity.
	ReportStartup(err error)
}
