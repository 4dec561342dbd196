package audit

// ResourceLoan is the resource type recorded for loan events.
const ResourceLoan = "loan"

func WithResource(resource, id string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = id
	}
}

// WithLoan marks the event as concerning the given loan.
func WithLoan(id string) EventOption {
	return WithResource(ResourceLoan, id)
}

// WithMetadata sets a single metadata key. Later calls win.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithTransition records the source state and, when known, the destination.
func WithTransition(from, to string) EventOption {
	return func(e *Event) {
		WithMetadata("from", from)(e)
		if to != "" {
			WithMetadata("to", to)(e)
		}
	}
}

// WithRejection marks a business refusal. The attempt was valid but the loan
// did not qualify, which is recorded as a failure rather than an error.
func WithRejection(reason string) EventOption {
	return func(e *Event) {
		e.Result = ResultFailure
		if reason != "" {
			WithMetadata("reason", reason)(e)
		}
	}
}

func WithResult(result Result) EventOption {
	return func(e *Event) {
		e.Result = result
	}
}
