package queryengine

import (
	"github.com/go9sky/tuckview/tabledata"
)

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithLogger sets the logger for the Engine.
//
// Debug level: path selection and row counts (development use)
// Info level: completed queries with durations (production-safe)
// Warn level: recovered path failures that triggered a fallback
// Error level: failures that degraded the result.
func WithLogger(logger tabledata.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger for the Engine.
// When both loggers are configured, the contextual logger wins so that
// trace correlation is preserved.
func WithContextualLogger(logger tabledata.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine. The collector
// receives per-query durations and counters labeled by execution path.
func WithMetrics(collector tabledata.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metrics = collector
		return nil
	}
}
