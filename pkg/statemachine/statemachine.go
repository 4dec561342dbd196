package statemachine

import (
	"context"
)

// State represents a node of the transition graph.
type State interface {
	Name() string
}

// Trigger names an explicit external action. A nil Trigger marks an automatic transition.
type Trigger interface {
	Name() string
}

// Subject is the value a machine moves between states. Clone must return a deep
// enough copy that guards and effects can mutate it without touching the original.
type Subject[T any] interface {
	Clone() T
	CurrentState() State
	EnterState(State)
}

// Guard vetoes a transition. Returning an error built with Reject lets resolution
// fall through to the next candidate; any other error aborts the attempt.
type Guard[T any] func(ctx context.Context, subject T, input any) error

// Effect mutates the working copy of the subject once all guards passed.
// Rejections returned by effects fall through like guard rejections.
type Effect[T any] func(ctx context.Context, subject T, input any) error

// Transition is a single guarded edge of the graph.
type Transition[T any] struct {
	From    State
	To      State
	Trigger Trigger    // nil for automatic transitions
	Guards  []Guard[T] // All must pass for transition to proceed
	Effects []Effect[T]
}

// Automatic reports whether the transition is taken without an explicit trigger.
func (t Transition[T]) Automatic() bool {
	return t.Trigger == nil
}

func (t Transition[T]) String() string {
	trigger := "<auto>"
	if t.Trigger != nil {
		trigger = t.Trigger.Name()
	}
	return t.From.Name() + " -> " + t.To.Name() + " on " + trigger
}

// Outcome is the result of a successful resolution.
type Outcome[T any] struct {
	Subject    T
	Transition Transition[T]
	// Rejections holds the reasons of candidates that were skipped before the winner.
	Rejections []string
}

// StringState provides a simple string-based state implementation for basic use cases.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// StringTrigger provides a simple string-based trigger implementation for basic use cases.
type StringTrigger string

func (t StringTrigger) Name() string {
	return string(t)
}
