package circulation

import (
	"slices"

	"github.com/dmitrymomot/circulation/pkg/statemachine"
)

// State is a loan lifecycle state.
type State string

const (
	StateCreated                State = "CREATED"
	StatePending                State = "PENDING"
	StateItemAtDesk             State = "ITEM_AT_DESK"
	StateItemInTransitForPickup State = "ITEM_IN_TRANSIT_FOR_PICKUP"
	StateItemOnLoan             State = "ITEM_ON_LOAN"
	StateItemInTransitToHouse   State = "ITEM_IN_TRANSIT_TO_HOUSE"
	StateItemReturned           State = "ITEM_RETURNED"
	StateCancelled              State = "CANCELLED"
)

// State groups used by availability and queue lookups.
var (
	// RequestStates are states in which a loan is an outstanding request.
	RequestStates = []State{StatePending}

	// ActiveStates are states in which the item is held for or by a patron.
	// An item with a loan in one of these states is not available.
	ActiveStates = []State{
		StateItemAtDesk,
		StateItemOnLoan,
		StateItemInTransitForPickup,
		StateItemInTransitToHouse,
	}

	// CompletedStates are states of loans that ended normally.
	CompletedStates = []State{StateItemReturned}

	// CancelledStates are states of loans that were called off.
	CancelledStates = []State{StateCancelled}
)

// AllStates returns every state in lifecycle order.
func AllStates() []State {
	return []State{
		StateCreated,
		StatePending,
		StateItemAtDesk,
		StateItemInTransitForPickup,
		StateItemOnLoan,
		StateItemInTransitToHouse,
		StateItemReturned,
		StateCancelled,
	}
}

// Name implements statemachine.State.
func (s State) Name() string { return string(s) }

func (s State) String() string { return string(s) }

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	return slices.Contains(AllStates(), s)
}

// IsTerminal reports whether s has no outgoing transitions.
func (s State) IsTerminal() bool {
	return s == StateItemReturned || s == StateCancelled
}

func (s State) IsActive() bool  { return slices.Contains(ActiveStates, s) }
func (s State) IsRequest() bool { return slices.Contains(RequestStates, s) }

// ParseState converts a stored state name back into a State.
func ParseState(name string) (State, error) {
	s := State(name)
	if !s.Valid() {
		return "", ErrUnknownState
	}
	return s, nil
}

// Trigger names an explicit action a caller can invoke on a loan.
// The empty trigger asks for automatic progression.
type Trigger string

const (
	TriggerRequest  Trigger = "request"
	TriggerCheckout Trigger = "checkout"
	TriggerExtend   Trigger = "extend"
	TriggerCancel   Trigger = "cancel"

	// TriggerAuto is the zero trigger: resolve an automatic transition.
	TriggerAuto Trigger = ""
)

// Name implements statemachine.Trigger.
func (t Trigger) Name() string { return string(t) }

func (t Trigger) String() string {
	if t == TriggerAuto {
		return "auto"
	}
	return string(t)
}

// machineTrigger maps the empty trigger to the nil trigger the machine uses
// for automatic edges.
func (t Trigger) machineTrigger() statemachine.Trigger {
	if t == TriggerAuto {
		return nil
	}
	return t
}

func stateOf(s statemachine.State) State {
	if s == nil {
		return ""
	}
	if st, ok := s.(State); ok {
		return st
	}
	return State(s.Name())
}

func triggerOf(t statemachine.Trigger) Trigger {
	if t == nil {
		return TriggerAuto
	}
	if tr, ok := t.(Trigger); ok {
		return tr
	}
	return Trigger(t.Name())
}
