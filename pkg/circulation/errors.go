package circulation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition: the trigger is not defined for the loan's state.
	ErrInvalidTransition = errors.New("circulation: invalid transition")

	// ErrNoAutomaticTransition: no trigger was given and no automatic edge
	// applies. The loan stays where it is.
	ErrNoAutomaticTransition = errors.New("circulation: no automatic transition")

	// ErrTransitionConditionsNotMet: edges existed for the trigger but every
	// guard failed.
	ErrTransitionConditionsNotMet = errors.New("circulation: transition conditions not met")

	// ErrPersistenceConflict: the loan changed since it was read. Re-read and
	// resolve again.
	ErrPersistenceConflict = errors.New("circulation: persistence conflict")

	// ErrConfiguration: a required policy or validator is missing or malformed.
	ErrConfiguration = errors.New("circulation: configuration error")

	ErrUnknownState = errors.New("circulation: unknown state")
	ErrLoanNotFound = errors.New("circulation: loan not found")
	ErrNilLoan      = errors.New("circulation: nil loan")
	ErrInvalidLoan  = errors.New("circulation: invalid loan")
	ErrLookupFailed = errors.New("circulation: lookup failed")
)

// TransitionError describes a failed transition attempt. It unwraps to Kind,
// one of ErrInvalidTransition, ErrNoAutomaticTransition or
// ErrTransitionConditionsNotMet.
type TransitionError struct {
	Kind    error
	LoanID  string
	State   State
	Trigger Trigger
	// Reasons lists the rejection reason of every candidate edge in table order.
	Reasons []string
}

func (e *TransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: loan %q in state %s, trigger %s", e.Kind, e.LoanID, e.State, e.Trigger)
	if r := e.Reason(); r != "" {
		b.WriteString(": ")
		b.WriteString(r)
	}
	return b.String()
}

func (e *TransitionError) Unwrap() error { return e.Kind }

// Reason returns the most specific failure reason: that of the last
// candidate evaluated.
func (e *TransitionError) Reason() string {
	for i := len(e.Reasons) - 1; i >= 0; i-- {
		if e.Reasons[i] != "" {
			return e.Reasons[i]
		}
	}
	return ""
}

// ConfigurationError names every missing or malformed hook.
type ConfigurationError struct {
	Missing []string
	Err     error
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", ErrConfiguration, strings.Join(parts, "; "))
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

func IsInvalidTransition(err error) bool     { return errors.Is(err, ErrInvalidTransition) }
func IsNoAutomaticTransition(err error) bool { return errors.Is(err, ErrNoAutomaticTransition) }
func IsConditionsNotMet(err error) bool      { return errors.Is(err, ErrTransitionConditionsNotMet) }
func IsPersistenceConflict(err error) bool   { return errors.Is(err, ErrPersistenceConflict) }
func IsConfigurationError(err error) bool    { return errors.Is(err, ErrConfiguration) }

// mergeConfigErrors folds several validation results into one ConfigurationError.
func mergeConfigErrors(errs ...error) error {
	var out ConfigurationError
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			out.Missing = append(out.Missing, ce.Missing...)
			if ce.Err != nil {
				out.Err = errors.Join(out.Err, ce.Err)
			}
			continue
		}
		out.Err = errors.Join(out.Err, err)
	}
	if len(out.Missing) == 0 && out.Err == nil {
		return nil
	}
	return &out
}
