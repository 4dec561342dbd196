package audit

import (
	"context"
	"fmt"
	"time"
)

// Result represents the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Event is a single audit trail entry.
type Event struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID string         `json:"resource_id,omitempty"`
	Result     Result         `json:"result"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate checks if the event has all required fields.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// Writer persists audit events.
type Writer interface {
	Store(ctx context.Context, event Event) error
}

// BatchWriter persists many events in one atomic operation.
type BatchWriter interface {
	StoreBatch(ctx context.Context, events []Event) error
}
