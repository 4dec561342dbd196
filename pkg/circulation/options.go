package circulation

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/circulation/pkg/audit"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the source of default transaction dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocker serializes attempts per loan id. Without it the engine relies
// on the store's revision check alone.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithAudit records every committed and failed attempt to an audit trail.
func WithAudit(a *audit.Logger) Option {
	return func(e *Engine) { e.audit = a }
}

// WithTable replaces the default transition table. Build it with NewRules
// and statemachine.NewBuilder to reuse the stock guards.
func WithTable(m *Machine) Option {
	return func(e *Engine) { e.machine = m }
}

// WithItemAssignment toggles attaching a returned item to pending
// document-level requests. Enabled by default.
func WithItemAssignment(enabled bool) Option {
	return func(e *Engine) { e.assignItems = enabled }
}
