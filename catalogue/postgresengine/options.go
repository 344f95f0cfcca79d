package postgresengine

import (
	"time"

	"github.com/campuslib/library-catalogue-go/catalogue"
)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine) error

// WithTableNames overrides the table names used by the Engine. Empty names
// are rejected.
func WithTableNames(tables TableNames) Option {
	return func(e *Engine) error {
		if tables.Books == "" || tables.BorrowRecords == "" || tables.Users == "" {
			return catalogue.ErrEmptyTableName
		}

		e.tables = tables

		return nil
	}
}

// WithLogger sets the logger for the Engine.
//
// Debug level: SQL queries with execution timing (development use)
// Info level: operation outcomes with durations (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: failures that cause operation failures.
func WithLogger(logger catalogue.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger for the Engine. Messages
// carry the same levels as WithLogger and include the request context, so a
// correlating backend can attach request or trace identifiers.
func WithContextualLogger(logger catalogue.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine. The collector
// receives lending operation durations and outcome counters.
func WithMetrics(collector catalogue.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metrics = collector
		return nil
	}
}

// WithClock overrides the time source used for borrow, due, and return
// timestamps. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) error {
		e.now = now
		return nil
	}
}
