package audit

import (
	"context"
	"time"
)

// Option configures Logger behavior during initialization.
type Option func(*Logger)

// Context extractors populate events from the request context. A failed
// extraction leaves the field empty.

func WithUserIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) {
		l.userIDExtractor = fn
	}
}

func WithRequestIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) {
		l.requestIDExtractor = fn
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}
