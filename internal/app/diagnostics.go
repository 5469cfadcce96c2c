package app

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"

	"github.com/bft-labs/traceship/internal/ports"
)

// startupOnce fires the startup-diagnostics report on the very first
// transport call a writer makes, probe or payload send alike, and never
// again.
type startupOnce struct {
	once     sync.Once
	reporter ports.StartupReporter
}

func (s *startupOnce) report(err error) {
	if s.reporter == nil {
		return
	}
	s.once.Do(func() {
		s.reporter.ReportStartup(err)
	})
}

// errorKind classifies a transport failure for metrics labels.
func errorKind(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection_refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "connection_reset"
	case errors.Is(err, syscall.EPIPE):
		return "broken_pipe"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "other"
}
