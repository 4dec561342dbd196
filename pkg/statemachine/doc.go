// Package statemachine provides a generic, ordered, guard-driven transition
// table for finite-state machines whose subjects live outside the machine.
//
// A Machine holds no current state of its own. Callers hand it a subject that
// knows its state (see Subject) and, optionally, a Trigger. The machine then:
//  1. Selects the candidate transitions leaving the subject's state
//  2. Keeps those matching the trigger, or only automatic ones when the trigger is nil
//  3. Evaluates each candidate on a fresh clone of the subject, guards first, then effects
//  4. Returns the first clone that made it through, moved to the destination state
//
// Table order is priority: hosts override or augment behaviour by building a
// machine whose transitions are appended in the order they want them tried.
//
// # Usage
//
//	const (
//	    Draft    = statemachine.StringState("draft")
//	    InReview = statemachine.StringState("in_review")
//	    Submit   = statemachine.StringTrigger("submit")
//	)
//
//	machine := statemachine.MustNew[*Doc](Draft,
//	    statemachine.WithTransition[*Doc](Draft, InReview, Submit),
//	)
//
//	out, err := machine.Fire(ctx, doc, Submit, nil)
//
// # Guards and Effects
//
// Guards veto a transition by returning a Rejection:
//
//	isOwner := func(ctx context.Context, d *Doc, input any) error {
//	    if d.Owner != input {
//	        return statemachine.Reject("only the owner can submit")
//	    }
//	    return nil
//	}
//
// Effects mutate the working clone after all guards passed. They may also
// reject, in which case the clone is discarded and the next candidate is tried.
// Errors that are not rejections abort resolution immediately.
//
// # Error Handling
//
//	if statemachine.IsNoTransitionAvailableError(err) { /* trigger not defined */ }
//	if statemachine.IsTransitionRejectedError(err)    { /* every candidate rejected */ }
//	if statemachine.IsNoAutomaticTransitionError(err) { /* rest point */ }
//
// # Concurrency
//
// A built Machine is read-only and can be shared. Serialising attempts on the
// same subject is the caller's job.
package statemachine
