package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// LoanID records the loan identifier under the key "loan_id".
// If id is empty, it returns an empty Attr.
func LoanID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("loan_id", id)
}

// ItemPID records the item identifier under the key "item_pid".
func ItemPID(pid string) slog.Attr {
	if pid == "" {
		return slog.Attr{}
	}
	return slog.String("item_pid", pid)
}

// DocumentPID records the document identifier under the key "document_pid".
func DocumentPID(pid string) slog.Attr {
	if pid == "" {
		return slog.Attr{}
	}
	return slog.String("document_pid", pid)
}

// State records a loan state under the key "state".
func State(name string) slog.Attr {
	return slog.String("state", name)
}

// Transition records source and destination states as a group.
func Transition(from, to string) slog.Attr {
	return Group("transition", slog.String("from", from), slog.String("to", to))
}

// Trigger records the trigger name under the key "trigger".
// Automatic resolutions are logged as "auto".
func Trigger(name string) slog.Attr {
	if name == "" {
		name = "auto"
	}
	return slog.String("trigger", name)
}

// Reason records a rejection reason under the key "reason".
func Reason(reason string) slog.Attr {
	if reason == "" {
		return slog.Attr{}
	}
	return slog.String("reason", reason)
}

// Revision records a loan revision under the key "revision".
func Revision(rev int64) slog.Attr {
	return slog.Int64("revision", rev)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
