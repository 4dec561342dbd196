package statemachine

import "errors"

// Builder provides a fluent API for building machines. Errors are collected and
// reported by Build.
type Builder[T Subject[T]] struct {
	machine        *Machine[T]
	currentFrom    State
	currentTrigger Trigger
	currentTo      State
	guards         []Guard[T]
	effects        []Effect[T]
	errs           []error
}

// NewBuilder creates a new machine builder.
func NewBuilder[T Subject[T]](initialState State) *Builder[T] {
	b := &Builder[T]{}
	if initialState == nil {
		b.errs = append(b.errs, errors.New("initial state cannot be nil"))
		return b
	}
	b.machine = newMachine[T](initialState)
	return b
}

// From sets the starting state for a transition.
func (b *Builder[T]) From(state State) *Builder[T] {
	b.reset()
	b.currentFrom = state
	return b
}

// On sets the trigger of the current transition. Skip it for automatic transitions.
func (b *Builder[T]) On(trigger Trigger) *Builder[T] {
	b.currentTrigger = trigger
	return b
}

// To sets the target state for a transition.
func (b *Builder[T]) To(state State) *Builder[T] {
	b.currentTo = state
	return b
}

// Guard adds guard functions to the current transition.
func (b *Builder[T]) Guard(guards ...Guard[T]) *Builder[T] {
	for _, g := range guards {
		if g != nil {
			b.guards = append(b.guards, g)
		}
	}
	return b
}

// Effect adds effect functions to the current transition.
func (b *Builder[T]) Effect(effects ...Effect[T]) *Builder[T] {
	for _, e := range effects {
		if e != nil {
			b.effects = append(b.effects, e)
		}
	}
	return b
}

// Add finalizes the current transition and appends it to the table.
func (b *Builder[T]) Add() *Builder[T] {
	if b.machine != nil {
		err := b.machine.addTransition(Transition[T]{
			From:    b.currentFrom,
			To:      b.currentTo,
			Trigger: b.currentTrigger,
			Guards:  b.guards,
			Effects: b.effects,
		})
		if err != nil {
			b.errs = append(b.errs, err)
		}
	}
	b.reset()
	return b
}

// Terminal marks states as terminal.
func (b *Builder[T]) Terminal(states ...State) *Builder[T] {
	if b.machine != nil {
		if err := b.machine.markTerminal(states...); err != nil {
			b.errs = append(b.errs, err)
		}
	}
	return b
}

// Build returns the constructed machine or the joined errors collected so far.
func (b *Builder[T]) Build() (*Machine[T], error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return b.machine, nil
}

// reset clears the current transition configuration.
func (b *Builder[T]) reset() {
	b.currentFrom = nil
	b.currentTrigger = nil
	b.currentTo = nil
	b.guards = nil
	b.effects = nil
}
