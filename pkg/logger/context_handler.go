package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor pulls one attribute out of a context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

type loanKey struct{}

// ContextWithLoan tags ctx with the loan being worked on. Loggers built with
// LoanExtractor add loan_id to every record logged under it.
func ContextWithLoan(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, loanKey{}, id)
}

// LoanFromContext returns the id set by ContextWithLoan.
func LoanFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(loanKey{}).(string)
	return id, ok
}

// LoanExtractor reads the loan set by ContextWithLoan.
func LoanExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := LoanFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return LoanID(id), true
	}
}

// contextHandler adds extracted attributes to each record. An extracted
// attribute is dropped when the record already carries the same key, so
// callers that log loan_id explicitly do not get it twice.
type contextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

func newContextHandler(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	var clean []ContextExtractor
	for _, ex := range extractors {
		if ex != nil {
			clean = append(clean, ex)
		}
	}
	if len(clean) == 0 {
		return next
	}
	return &contextHandler{next: next, extractors: clean}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	present := make(map[string]struct{}, rec.NumAttrs())
	rec.Attrs(func(a slog.Attr) bool {
		present[a.Key] = struct{}{}
		return true
	})

	for _, ex := range h.extractors {
		attr, ok := ex(ctx)
		if !ok || attr.Key == "" {
			continue
		}
		if _, dup := present[attr.Key]; dup {
			continue
		}
		present[attr.Key] = struct{}{}
		rec.AddAttrs(attr)
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
