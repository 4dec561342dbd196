package circulation

import (
	"slices"

	"github.com/dmitrymomot/circulation/pkg/statemachine"
)

// Machine is the transition table the engine resolves against.
type Machine = statemachine.Machine[*Loan]

// DefaultTable builds the stock circulation table. Candidate order within a
// state is resolution priority; the location-based automatic pairs are
// mutually exclusive, so their order does not matter.
//
// Every edge into an active state from CREATED or PENDING checks that the
// item is free, and the PENDING ones also that the loan heads the queue.
func DefaultTable(r *Rules) (*Machine, error) {
	checkout := []Guard{
		r.TransactionContext(true),
		r.SameItem(),
		r.ItemExists(),
		r.ItemCanCirculate(),
		r.PatronExists(),
		r.DocumentExists(),
		r.ItemAvailableForCheckout(),
	}
	queuedCheckout := append(slices.Clone(checkout), r.FirstInQueue())
	queued := []Guard{r.TransactionContext(false), r.ItemAttached(), r.ItemAvailableForCheckout(), r.FirstInQueue()}

	return statemachine.NewBuilder[*Loan](StateCreated).
		From(StateCreated).On(TriggerRequest).To(StatePending).
		Guard(r.TransactionContext(true), r.PatronExists(), r.DocumentExists(), r.RequestTarget()).
		Effect(r.AssignAvailableItem(), r.DefaultPickupLocation(), r.CheckPickupConsistency(), r.StampRequest()).
		Add().
		From(StateCreated).On(TriggerCheckout).To(StateItemOnLoan).
		Guard(checkout...).
		Effect(r.DefaultPickupLocation(), r.ApplyLoanPeriod()).
		Add().
		From(StatePending).To(StateItemAtDesk).
		Guard(queued...).Guard(r.ItemAtPickup(StateItemAtDesk)).
		Add().
		From(StatePending).To(StateItemInTransitForPickup).
		Guard(queued...).Guard(r.ItemAwayFromPickup(StateItemInTransitForPickup)).
		Effect(r.StartTransit()).
		Add().
		From(StatePending).On(TriggerCheckout).To(StateItemOnLoan).
		Guard(queuedCheckout...).
		Effect(r.DefaultPickupLocation(), r.ApplyLoanPeriod()).
		Add().
		From(StatePending).On(TriggerCancel).To(StateCancelled).
		Guard(r.SameItem()).
		Effect(r.RecordCancellation()).
		Add().
		From(StateItemAtDesk).To(StateItemOnLoan).
		Guard(r.TransactionContext(false), r.ItemAttached(), r.PatronExists(), r.ItemAvailableForCheckout()).
		Effect(r.ApplyLoanPeriod()).
		Add().
		From(StateItemAtDesk).On(TriggerCancel).To(StateCancelled).
		Guard(r.SameItem()).
		Effect(r.RecordCancellation()).
		Add().
		From(StateItemInTransitForPickup).To(StateItemAtDesk).
		Guard(r.ItemAttached(), r.ItemAtPickup(StateItemAtDesk)).
		Add().
		From(StateItemInTransitForPickup).On(TriggerCancel).To(StateCancelled).
		Guard(r.SameItem()).
		Effect(r.RecordCancellation()).
		Add().
		From(StateItemOnLoan).To(StateItemReturned).
		Guard(r.SameItem(), r.CheckinScan(), r.TransactionContext(false), r.ItemAtHome()).
		Effect(r.CloseLoanPeriod(), r.RecordArrival()).
		Add().
		From(StateItemOnLoan).To(StateItemInTransitToHouse).
		Guard(r.SameItem(), r.CheckinScan(), r.TransactionContext(false), r.ItemAwayFromHome()).
		Effect(r.CloseLoanPeriod(), r.StartTransit()).
		Add().
		From(StateItemOnLoan).On(TriggerExtend).To(StateItemOnLoan).
		Guard(r.SameItem(), r.TransactionContext(false), r.ExtensionAllowed(), r.NoPendingRequests()).
		Effect(r.ExtendLoan()).
		Add().
		From(StateItemOnLoan).On(TriggerCancel).To(StateCancelled).
		Guard(r.SameItem()).
		Effect(r.RecordCancellation()).
		Add().
		From(StateItemInTransitToHouse).To(StateItemReturned).
		Guard(r.SameItem(), r.TransactionContext(false), r.ItemAtHome()).
		Effect(r.RecordArrival()).
		Add().
		From(StateItemInTransitToHouse).On(TriggerCancel).To(StateCancelled).
		Guard(r.SameItem()).
		Effect(r.RecordCancellation()).
		Add().
		Terminal(StateItemReturned, StateCancelled).
		Build()
}
