package scan

import (
	"time"

	"scandemo/internal/metrics"
	"scandemo/internal/notify"
	"scandemo/internal/simulation"
)

// Option configures a Service.
type Option func(*Service)

// WithPhases replaces the default phase sequence.
func WithPhases(phases []simulation.Phase) Option {
	return func(s *Service) { s.phases = phases }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDSource replaces the scan ID generator.
func WithIDSource(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithMetrics records scan counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier sends toasts to n.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}
