package circulation

import (
	"context"
	"time"

	"github.com/dmitrymomot/circulation/pkg/statemachine"
)

// AssignAvailableItem attaches an available item to a document-level request
// when the host provides AvailableItemByDocument.
func (r *Rules) AssignAvailableItem() Effect {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.ItemPID != "" || l.DocumentPID == "" || r.v.AvailableItemByDocument == nil {
			return nil
		}
		item, ok, err := r.v.AvailableItemByDocument(ctx, l.DocumentPID)
		if err != nil {
			return lookupFailed("available item by document", err)
		}
		if ok {
			l.ItemPID = item
		}
		return nil
	}
}

// DefaultPickupLocation uses the item's location when no pickup location was given.
func (r *Rules) DefaultPickupLocation() Effect {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.PickupLocationPID != "" || l.ItemPID == "" {
			return nil
		}
		loc, err := r.v.ItemLocation(ctx, l.ItemPID)
		if err != nil {
			return lookupFailed("item location", err)
		}
		l.PickupLocationPID = loc
		return nil
	}
}

// CheckPickupConsistency lets the host veto the pickup, item and transaction
// locations of a new request. Document-level requests without an item skip it.
func (r *Rules) CheckPickupConsistency() Effect {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.ItemPID == "" {
			return nil
		}
		loc, err := r.v.ItemLocation(ctx, l.ItemPID)
		if err != nil {
			return lookupFailed("item location", err)
		}
		l.ItemLocationPID = loc

		ok, err := r.v.ValidatePickupTransactionLocations(ctx, l, StatePending)
		if err != nil {
			return lookupFailed("validate pickup transaction locations", err)
		}
		if !ok {
			return statemachine.Rejectf("Pickup location '%s' is not consistent with the item and transaction locations.", l.PickupLocationPID)
		}
		return nil
	}
}

func (r *Rules) StampRequest() Effect {
	return func(_ context.Context, l *Loan, _ any) error {
		l.RequestDate = l.TransactionDate
		return nil
	}
}

// ApplyLoanPeriod settles the loan period. Missing dates come from the
// default policy: no dates at all take the default period, a start alone
// keeps the default length, an end alone starts at the transaction date.
func (r *Rules) ApplyLoanPeriod() Effect {
	return func(_ context.Context, l *Loan, _ any) error {
		start, end := l.StartDate, l.EndDate
		switch {
		case start.IsZero() && end.IsZero():
			start, end = r.p.Checkout.DurationDefault(l)
		case end.IsZero():
			ds, de := r.p.Checkout.DurationDefault(l)
			end = start.Add(de.Sub(ds))
		case start.IsZero():
			start = l.TransactionDate
		}

		if end.Before(start) || !r.p.Checkout.DurationValidate(l, start, end) {
			return statemachine.Rejectf("The loan duration from '%s' to '%s' is not valid.",
				start.Format(time.RFC3339), end.Format(time.RFC3339))
		}
		l.StartDate, l.EndDate = start, end
		return nil
	}
}

// ExtendLoan moves the end date per the extension policy and counts the extension.
func (r *Rules) ExtendLoan() Effect {
	return func(_ context.Context, l *Loan, _ any) error {
		from := l.TransactionDate
		if r.p.Extension.FromEndDate {
			from = l.EndDate
		}
		end := r.p.Extension.DurationDefault(l, from)
		if end.Before(l.StartDate) || !r.p.Checkout.DurationValidate(l, l.StartDate, end) {
			return statemachine.Rejectf("The loan duration from '%s' to '%s' is not valid.",
				l.StartDate.Format(time.RFC3339), end.Format(time.RFC3339))
		}
		l.EndDate = end
		l.ExtensionCount++
		return nil
	}
}

func (r *Rules) StartTransit() Effect {
	return func(_ context.Context, l *Loan, _ any) error {
		l.TransitDate = l.TransactionDate
		return nil
	}
}

// CloseLoanPeriod ends the loan at check-in time.
func (r *Rules) CloseLoanPeriod() Effect {
	return func(_ context.Context, l *Loan, _ any) error {
		end := l.TransactionDate
		if end.Before(l.StartDate) {
			end = l.StartDate
		}
		l.EndDate = end
		return nil
	}
}

// RecordArrival notes the location where the item was checked in.
func (r *Rules) RecordArrival() Effect {
	return func(_ context.Context, l *Loan, _ any) error {
		l.ItemLocationPID = l.TransactionLocationPID
		return nil
	}
}

func (r *Rules) RecordCancellation() Effect {
	return func(_ context.Context, l *Loan, input any) error {
		if reason := payloadFrom(input).CancelReason; reason != "" {
			l.CancelReason = reason
		}
		return nil
	}
}

