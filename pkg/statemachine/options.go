package statemachine

import (
	"fmt"
)

// Option configures a machine during construction.
type Option[T Subject[T]] func(*Machine[T]) error

// TransitionOption configures a single transition with guards and effects.
type TransitionOption[T any] func(*transitionConfig[T])

// TransitionDef defines a transition between states.
type TransitionDef[T any] struct {
	From    State
	To      State
	Trigger Trigger
	Guards  []Guard[T]
	Effects []Effect[T]
}

type transitionConfig[T any] struct {
	guards  []Guard[T]
	effects []Effect[T]
}

// New creates a machine with the given initial state and options. The result is
// immutable: hosts customise behaviour by building their own machine.
func New[T Subject[T]](initialState State, opts ...Option[T]) (*Machine[T], error) {
	if initialState == nil {
		return nil, fmt.Errorf("initial state cannot be nil")
	}

	m := newMachine[T](initialState)

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// MustNew works like New but panics when an option fails to apply.
func MustNew[T Subject[T]](initialState State, opts ...Option[T]) *Machine[T] {
	m, err := New(initialState, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

// WithStates declares states that have no transitions of their own yet.
func WithStates[T Subject[T]](states ...State) Option[T] {
	return func(m *Machine[T]) error {
		m.declare(states...)
		return nil
	}
}

// WithTerminal marks states as terminal. Adding a transition leaving a terminal
// state afterwards fails.
func WithTerminal[T Subject[T]](states ...State) Option[T] {
	return func(m *Machine[T]) error {
		return m.markTerminal(states...)
	}
}

// WithTransition appends a transition. A nil trigger makes it automatic.
func WithTransition[T Subject[T]](from, to State, trigger Trigger, opts ...TransitionOption[T]) Option[T] {
	return func(m *Machine[T]) error {
		cfg := &transitionConfig[T]{}
		for _, opt := range opts {
			opt(cfg)
		}

		return m.addTransition(Transition[T]{
			From:    from,
			To:      to,
			Trigger: trigger,
			Guards:  cfg.guards,
			Effects: cfg.effects,
		})
	}
}

// WithTransitions appends multiple transitions at once, preserving order.
func WithTransitions[T Subject[T]](transitions []TransitionDef[T]) Option[T] {
	return func(m *Machine[T]) error {
		for i, t := range transitions {
			err := m.addTransition(Transition[T]{
				From:    t.From,
				To:      t.To,
				Trigger: t.Trigger,
				Guards:  t.Guards,
				Effects: t.Effects,
			})
			if err != nil {
				// Handle nil states/triggers safely in error message
				fromName := "<nil>"
				toName := "<nil>"
				triggerName := "<auto>"

				if t.From != nil {
					fromName = t.From.Name()
				}
				if t.To != nil {
					toName = t.To.Name()
				}
				if t.Trigger != nil {
					triggerName = t.Trigger.Name()
				}

				return fmt.Errorf("failed to add transition[%d] %s->%s on %s: %w",
					i, fromName, toName, triggerName, err)
			}
		}
		return nil
	}
}

// WithGuard adds a single guard to a transition.
func WithGuard[T any](guard Guard[T]) TransitionOption[T] {
	return func(cfg *transitionConfig[T]) {
		if guard != nil {
			cfg.guards = append(cfg.guards, guard)
		}
	}
}

// WithGuards adds multiple guards to a transition.
func WithGuards[T any](guards ...Guard[T]) TransitionOption[T] {
	return func(cfg *transitionConfig[T]) {
		for _, guard := range guards {
			if guard != nil {
				cfg.guards = append(cfg.guards, guard)
			}
		}
	}
}

// WithEffect adds a single effect to a transition.
func WithEffect[T any](effect Effect[T]) TransitionOption[T] {
	return func(cfg *transitionConfig[T]) {
		if effect != nil {
			cfg.effects = append(cfg.effects, effect)
		}
	}
}

// WithEffects adds multiple effects to a transition.
func WithEffects[T any](effects ...Effect[T]) TransitionOption[T] {
	return func(cfg *transitionConfig[T]) {
		for _, effect := range effects {
			if effect != nil {
				cfg.effects = append(cfg.effects, effect)
			}
		}
	}
}
