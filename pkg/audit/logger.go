package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// contextExtractor extracts string values from context.
// It returns (value, found) where found indicates if extraction succeeded.
type contextExtractor func(context.Context) (string, bool)

// Logger records audit events to a Writer.
type Logger struct {
	writer             Writer
	userIDExtractor    contextExtractor
	requestIDExtractor contextExtractor
	now                func() time.Time
}

// NewLogger creates a new audit logger. It panics on a nil writer.
func NewLogger(writer Writer, opts ...Option) *Logger {
	if writer == nil {
		panic("audit: writer cannot be nil")
	}

	l := &Logger{
		writer: writer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records a successful action.
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	event := l.newEvent(ctx, action, ResultSuccess)
	for _, opt := range opts {
		opt(&event)
	}
	if err := event.Validate(); err != nil {
		return err
	}
	return l.writer.Store(ctx, event)
}

// LogError records a failed action together with its error.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	event := l.newEvent(ctx, action, ResultError)
	if err != nil {
		event.Error = err.Error()
	}
	for _, opt := range opts {
		opt(&event)
	}
	if err := event.Validate(); err != nil {
		return err
	}
	return l.writer.Store(ctx, event)
}

func (l *Logger) newEvent(ctx context.Context, action string, result Result) Event {
	event := Event{
		ID:        uuid.New().String(),
		Action:    action,
		Result:    result,
		CreatedAt: l.now(),
	}
	if l.userIDExtractor != nil {
		if userID, ok := l.userIDExtractor(ctx); ok {
			event.UserID = userID
		}
	}
	if l.requestIDExtractor != nil {
		if requestID, ok := l.requestIDExtractor(ctx); ok {
			event.RequestID = requestID
		}
	}
	return event
}
