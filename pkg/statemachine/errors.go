package statemachine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDefinition = errors.New("invalid transition: from and to cannot be nil")
	ErrUnknownState      = errors.New("state is not declared in the transition table")
	ErrTerminalState     = errors.New("terminal state cannot have outgoing transitions")
	ErrNilSubject        = errors.New("subject cannot be nil")
)

// Rejection is a recoverable guard or effect failure. Resolution continues with
// the next candidate transition.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

// Reject builds a Rejection with the given reason.
func Reject(reason string) error {
	return &Rejection{Reason: reason}
}

// Rejectf builds a Rejection with a formatted reason.
func Rejectf(format string, args ...any) error {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// ErrNoTransitionAvailable indicates the trigger is not defined for the current state.
type ErrNoTransitionAvailable struct {
	StateName   string
	TriggerName string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for trigger '%s'", e.StateName, e.TriggerName)
}

func NewErrNoTransitionAvailable(stateName, triggerName string) *ErrNoTransitionAvailable {
	return &ErrNoTransitionAvailable{
		StateName:   stateName,
		TriggerName: triggerName,
	}
}

// ErrTransitionRejected indicates every candidate for an explicit trigger was rejected.
type ErrTransitionRejected struct {
	StateName   string
	TriggerName string
	Reasons     []string
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("transition from state '%s' for trigger '%s' was rejected: %s",
		e.StateName, e.TriggerName, e.Reason())
}

// Reason returns the reason reported by the last rejected candidate.
func (e *ErrTransitionRejected) Reason() string {
	return lastReason(e.Reasons)
}

func NewErrTransitionRejected(stateName, triggerName string, reasons []string) *ErrTransitionRejected {
	return &ErrTransitionRejected{
		StateName:   stateName,
		TriggerName: triggerName,
		Reasons:     reasons,
	}
}

// ErrNoAutomaticTransition indicates the state is a rest point: it either has no
// automatic edges or none of them currently passes.
type ErrNoAutomaticTransition struct {
	StateName string
	Reasons   []string
}

func (e *ErrNoAutomaticTransition) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("no automatic transition defined from state '%s'", e.StateName)
	}
	return fmt.Sprintf("no automatic transition applies from state '%s': %s", e.StateName, e.Reason())
}

// Reason returns the reason reported by the last rejected candidate, if any.
func (e *ErrNoAutomaticTransition) Reason() string {
	return lastReason(e.Reasons)
}

func NewErrNoAutomaticTransition(stateName string, reasons []string) *ErrNoAutomaticTransition {
	return &ErrNoAutomaticTransition{
		StateName: stateName,
		Reasons:   reasons,
	}
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}

func IsNoAutomaticTransitionError(err error) bool {
	var e *ErrNoAutomaticTransition
	return errors.As(err, &e)
}

func lastReason(reasons []string) string {
	for i := len(reasons) - 1; i >= 0; i-- {
		if r := strings.TrimSpace(reasons[i]); r != "" {
			return r
		}
	}
	return ""
}
