// Package metrics exports Prometheus metrics for loan transitions.
//
// Collector implements circulation.Observer; pass it to the engine with
// circulation.WithObserver. It exposes
//
//	circulation_attempts_total{from,trigger,outcome}
//	circulation_transitions_total{from,to,trigger}
//	circulation_attempt_duration_seconds{trigger,outcome}
//
// Automatic attempts carry trigger="auto".
package metrics
