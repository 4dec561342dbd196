package audit

import "context"

// NewAsyncLogger creates a Logger whose events are written in batches by an
// AsyncWriter. The returned function flushes pending events and stops it.
func NewAsyncLogger(bw BatchWriter, async AsyncOptions, opts ...Option) (*Logger, func(context.Context) error) {
	writer, closeFn := NewAsyncWriter(bw, async)
	return NewLogger(writer, opts...), closeFn
}
