package statemachine

import (
	"context"
	"fmt"
)

// Machine is an immutable transition table together with the ordered
// first-match resolution algorithm. Candidates are kept per source state in the
// order they were added; that order is the priority used during resolution.
//
// A Machine holds no per-subject state, so a single instance is safe for
// concurrent use by any number of goroutines.
type Machine[T Subject[T]] struct {
	initial     State
	states      map[string]State
	order       []State
	terminal    map[string]struct{}
	transitions map[string][]Transition[T]
}

func newMachine[T Subject[T]](initial State) *Machine[T] {
	m := &Machine[T]{
		initial:     initial,
		states:      make(map[string]State),
		terminal:    make(map[string]struct{}),
		transitions: make(map[string][]Transition[T]),
	}
	m.declare(initial)
	return m
}

func (m *Machine[T]) declare(states ...State) {
	for _, s := range states {
		if s == nil {
			continue
		}
		if _, ok := m.states[s.Name()]; ok {
			continue
		}
		m.states[s.Name()] = s
		m.order = append(m.order, s)
	}
}

func (m *Machine[T]) addTransition(t Transition[T]) error {
	if t.From == nil || t.To == nil {
		return ErrInvalidDefinition
	}
	if _, ok := m.terminal[t.From.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrTerminalState, t.From.Name())
	}

	m.declare(t.From, t.To)
	// Multiple transitions allowed for same from/trigger to support guard-based branching
	m.transitions[t.From.Name()] = append(m.transitions[t.From.Name()], t)
	return nil
}

func (m *Machine[T]) markTerminal(states ...State) error {
	for _, s := range states {
		if s == nil {
			return ErrInvalidDefinition
		}
		if len(m.transitions[s.Name()]) > 0 {
			return fmt.Errorf("%w: %s", ErrTerminalState, s.Name())
		}
		m.declare(s)
		m.terminal[s.Name()] = struct{}{}
	}
	return nil
}

// Initial returns the state new subjects start in.
func (m *Machine[T]) Initial() State {
	return m.initial
}

// States returns every declared state in declaration order.
func (m *Machine[T]) States() []State {
	out := make([]State, len(m.order))
	copy(out, m.order)
	return out
}

// Has reports whether the state is part of the table.
func (m *Machine[T]) Has(state State) bool {
	if state == nil {
		return false
	}
	_, ok := m.states[state.Name()]
	return ok
}

// IsTerminal reports whether the state has no outgoing transitions.
func (m *Machine[T]) IsTerminal(state State) bool {
	if state == nil {
		return false
	}
	if _, ok := m.terminal[state.Name()]; ok {
		return true
	}
	return len(m.transitions[state.Name()]) == 0
}

// Transitions returns a copy of the ordered candidates leaving the state.
func (m *Machine[T]) Transitions(from State) []Transition[T] {
	if from == nil {
		return nil
	}
	src := m.transitions[from.Name()]
	out := make([]Transition[T], len(src))
	copy(out, src)
	return out
}

// Triggers returns the distinct triggers defined for the state, in table order.
func (m *Machine[T]) Triggers(from State) []Trigger {
	if from == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []Trigger
	for _, t := range m.transitions[from.Name()] {
		if t.Trigger == nil {
			continue
		}
		if _, ok := seen[t.Trigger.Name()]; ok {
			continue
		}
		seen[t.Trigger.Name()] = struct{}{}
		out = append(out, t.Trigger)
	}
	return out
}

// candidates selects the edges leaving from that match the trigger. A nil
// trigger selects automatic edges only.
func (m *Machine[T]) candidates(from State, trigger Trigger) []Transition[T] {
	var out []Transition[T]
	for _, t := range m.transitions[from.Name()] {
		switch {
		case trigger == nil && t.Trigger == nil:
			out = append(out, t)
		case trigger != nil && t.Trigger != nil && t.Trigger.Name() == trigger.Name():
			out = append(out, t)
		}
	}
	return out
}

// Fire resolves the next transition for subject. Each candidate is evaluated on
// a fresh clone of the subject: guards first, then effects. The first candidate
// whose guards and effects all succeed wins and its working copy, already moved
// to the destination state, is returned in the Outcome. The subject passed in is
// never modified.
//
// Rejections make resolution fall through to the next candidate. Any other
// error aborts the attempt and is returned wrapped.
func (m *Machine[T]) Fire(ctx context.Context, subject T, trigger Trigger, input any) (Outcome[T], error) {
	var zero Outcome[T]

	from := subject.CurrentState()
	if !m.Has(from) {
		name := "<nil>"
		if from != nil {
			name = from.Name()
		}
		return zero, fmt.Errorf("%w: %s", ErrUnknownState, name)
	}

	candidates := m.candidates(from, trigger)
	if len(candidates) == 0 {
		if trigger == nil {
			return zero, NewErrNoAutomaticTransition(from.Name(), nil)
		}
		return zero, NewErrNoTransitionAvailable(from.Name(), trigger.Name())
	}

	var reasons []string
	for _, t := range candidates {
		work := subject.Clone()

		rejected, err := m.evaluate(ctx, t, work, input)
		if err != nil {
			return zero, err
		}
		if rejected != "" {
			reasons = append(reasons, rejected)
			continue
		}

		work.EnterState(t.To)
		return Outcome[T]{Subject: work, Transition: t, Rejections: reasons}, nil
	}

	if trigger == nil {
		return zero, NewErrNoAutomaticTransition(from.Name(), reasons)
	}
	return zero, NewErrTransitionRejected(from.Name(), trigger.Name(), reasons)
}

// CanFire reports whether Fire would succeed for the trigger right now.
func (m *Machine[T]) CanFire(ctx context.Context, subject T, trigger Trigger, input any) bool {
	_, err := m.Fire(ctx, subject, trigger, input)
	return err == nil
}

// evaluate runs guards and effects of t against work. It returns a non-empty
// reason when the candidate was rejected.
func (m *Machine[T]) evaluate(ctx context.Context, t Transition[T], work T, input any) (string, error) {
	for _, guard := range t.Guards {
		if guard == nil {
			continue
		}
		if err := guard(ctx, work, input); err != nil {
			if IsRejection(err) {
				return rejectionReason(t, err), nil
			}
			return "", fmt.Errorf("guard failed on %s: %w", t, err)
		}
	}

	for _, effect := range t.Effects {
		if effect == nil {
			continue
		}
		if err := effect(ctx, work, input); err != nil {
			if IsRejection(err) {
				return rejectionReason(t, err), nil
			}
			return "", fmt.Errorf("effect failed on %s: %w", t, err)
		}
	}

	return "", nil
}

func rejectionReason[T any](t Transition[T], err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "transition to '" + t.To.Name() + "' rejected"
}
