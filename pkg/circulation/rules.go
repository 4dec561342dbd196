package circulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/circulation/pkg/statemachine"
)

type (
	Guard  = statemachine.Guard[*Loan]
	Effect = statemachine.Effect[*Loan]
)

// Rules builds the guards and effects of the default table from a validator
// and policy bundle. Hosts composing their own table reuse them.
type Rules struct {
	v Validators
	p Policies
}

func NewRules(v Validators, p Policies) *Rules {
	return &Rules{v: v, p: p}
}

func lookupFailed(name string, err error) error {
	return errors.Join(ErrLookupFailed, fmt.Errorf("%s: %w", name, err))
}

// TransactionContext validates the transaction location and user. With
// required set, both must be present.
func (r *Rules) TransactionContext(required bool) Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.TransactionLocationPID == "" {
			if required {
				return statemachine.Reject("Transaction location is required.")
			}
		} else {
			ok, err := r.v.ValidateTransactionLocation(ctx, l.TransactionLocationPID)
			if err != nil {
				return lookupFailed("validate transaction location", err)
			}
			if !ok {
				return statemachine.Rejectf("Transaction location '%s' is not valid.", l.TransactionLocationPID)
			}
		}

		if l.TransactionUserPID == "" {
			if required {
				return statemachine.Reject("Transaction user is required.")
			}
			return nil
		}
		ok, err := r.v.ValidateTransactionUser(ctx, l.TransactionUserPID)
		if err != nil {
			return lookupFailed("validate transaction user", err)
		}
		if !ok {
			return statemachine.Rejectf("Transaction user '%s' is not valid.", l.TransactionUserPID)
		}
		return nil
	}
}

// SameItem rejects an attempt naming an item other than the loan's own.
func (r *Rules) SameItem() Guard {
	return func(ctx context.Context, l *Loan, input any) error {
		item := payloadFrom(input).ItemPID
		if item == "" {
			return nil
		}
		found, err := r.v.ItemExists(ctx, item)
		if err != nil {
			return lookupFailed("item exists", err)
		}
		if !found {
			return statemachine.Rejectf("Item '%s' not found in the system.", item)
		}
		if l.ItemPID != "" && l.ItemPID != item {
			return statemachine.Rejectf("Cannot change item '%s' while performing an action on this loan.", item)
		}
		return nil
	}
}

func (r *Rules) ItemAttached() Guard {
	return func(_ context.Context, l *Loan, _ any) error {
		if l.ItemPID == "" {
			return statemachine.Rejectf("No item assigned to loan '%s'.", l.ID)
		}
		return nil
	}
}

func (r *Rules) ItemExists() Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.ItemPID == "" {
			return statemachine.Rejectf("No item assigned to loan '%s'.", l.ID)
		}
		return r.itemExists(ctx, l.ItemPID)
	}
}

func (r *Rules) itemExists(ctx context.Context, item string) error {
	found, err := r.v.ItemExists(ctx, item)
	if err != nil {
		return lookupFailed("item exists", err)
	}
	if !found {
		return statemachine.Rejectf("Item '%s' not found in the system.", item)
	}
	return nil
}

func (r *Rules) ItemCanCirculate() Guard {
	return func(_ context.Context, l *Loan, _ any) error {
		if !r.p.Checkout.ItemCanCirculate(l.ItemPID) {
			return statemachine.Rejectf("Item '%s' cannot circulate.", l.ItemPID)
		}
		return nil
	}
}

func (r *Rules) PatronExists() Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.PatronPID == "" {
			return statemachine.Rejectf("Patron not set for loan '%s'.", l.ID)
		}
		found, err := r.v.PatronExists(ctx, l.PatronPID)
		if err != nil {
			return lookupFailed("patron exists", err)
		}
		if !found {
			return statemachine.Rejectf("Patron '%s' not found in the system.", l.PatronPID)
		}
		return nil
	}
}

func (r *Rules) DocumentExists() Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.DocumentPID == "" {
			return statemachine.Rejectf("Document not set for loan '%s'.", l.ID)
		}
		found, err := r.v.DocumentExists(ctx, l.DocumentPID)
		if err != nil {
			return lookupFailed("document exists", err)
		}
		if !found {
			return statemachine.Rejectf("Document '%s' not found in the system.", l.DocumentPID)
		}
		return nil
	}
}

// RequestTarget checks what is being requested. An item-level request needs
// an existing item that circulates; a document-level request carries only
// the document. Both must pass the request policy.
func (r *Rules) RequestTarget() Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.ItemPID != "" {
			if err := r.itemExists(ctx, l.ItemPID); err != nil {
				return err
			}
			if !r.p.Checkout.ItemCanCirculate(l.ItemPID) {
				return statemachine.Rejectf("Item '%s' cannot circulate.", l.ItemPID)
			}
			if !r.p.Request.CanBeRequested(l) {
				return statemachine.Rejectf("Cannot create a request for the item '%s'.", l.ItemPID)
			}
			return nil
		}
		if l.DocumentPID == "" {
			return statemachine.Reject("A request needs an item or a document.")
		}
		if !r.p.Request.CanBeRequested(l) {
			return statemachine.Rejectf("Cannot create a request for the document '%s'.", l.DocumentPID)
		}
		return nil
	}
}

func (r *Rules) ItemAvailableForCheckout() Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		ok, err := r.v.IsItemAvailableForCheckout(ctx, l.ItemPID, l.ID)
		if err != nil {
			return lookupFailed("is item available for checkout", err)
		}
		if !ok {
			return statemachine.Rejectf("Item '%s' is not available for checkout.", l.ItemPID)
		}
		return nil
	}
}

// competing returns the pending loans that want the same item as l: those on
// the same document with that item or with no item yet.
func (r *Rules) competing(ctx context.Context, l *Loan) ([]*Loan, error) {
	if l.DocumentPID == "" {
		return nil, nil
	}
	pending, err := r.v.PendingLoansByDocument(ctx, l.DocumentPID)
	if err != nil {
		return nil, lookupFailed("pending loans by document", err)
	}
	out := make([]*Loan, 0, len(pending))
	for _, other := range pending {
		if other == nil || other.ID == l.ID || other.State != StatePending {
			continue
		}
		if other.ItemPID != "" && other.ItemPID != l.ItemPID {
			continue
		}
		out = append(out, other)
	}
	return out, nil
}

// FirstInQueue admits only the earliest pending request for the item.
func (r *Rules) FirstInQueue() Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		others, err := r.competing(ctx, l)
		if err != nil {
			return err
		}
		for _, other := range others {
			if other.requestedBefore(l) {
				return statemachine.Rejectf("Loan '%s' was requested earlier for item '%s'.", other.ID, l.ItemPID)
			}
		}
		return nil
	}
}

// NoPendingRequests makes an extension yield to outstanding requests.
func (r *Rules) NoPendingRequests() Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		others, err := r.competing(ctx, l)
		if err != nil {
			return err
		}
		if len(others) > 0 {
			return statemachine.Rejectf("Item '%s' has pending requests.", l.ItemPID)
		}
		return nil
	}
}

func (r *Rules) ExtensionAllowed() Guard {
	return func(_ context.Context, l *Loan, _ any) error {
		limit := r.p.Extension.MaxCount(l)
		if l.ExtensionCount >= limit {
			return statemachine.Rejectf("Extension limit of %d reached for loan '%s'.", limit, l.ID)
		}
		return nil
	}
}

// ItemAtPickup passes when the item is already at the pickup location and
// the host accepts the locations for dest.
func (r *Rules) ItemAtPickup(dest State) Guard {
	return r.pickup(true, dest)
}

// ItemAwayFromPickup passes when the item must travel to the pickup location.
func (r *Rules) ItemAwayFromPickup(dest State) Guard {
	return r.pickup(false, dest)
}

func (r *Rules) pickup(atDesk bool, dest State) Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.PickupLocationPID == "" {
			return statemachine.Rejectf("No pickup location set for loan '%s'.", l.ID)
		}
		loc, err := r.v.ItemLocation(ctx, l.ItemPID)
		if err != nil {
			return lookupFailed("item location", err)
		}
		l.ItemLocationPID = loc

		same := loc == l.PickupLocationPID
		if atDesk && !same {
			return statemachine.Rejectf("Item is at '%s', not at pickup location '%s'.", loc, l.PickupLocationPID)
		}
		if !atDesk && same {
			return statemachine.Rejectf("Item is already at pickup location '%s'.", loc)
		}

		ok, err := r.v.ValidatePickupTransactionLocations(ctx, l, dest)
		if err != nil {
			return lookupFailed("validate pickup transaction locations", err)
		}
		if !ok {
			return statemachine.Rejectf("Locations of loan '%s' do not allow transition to '%s'.", l.ID, dest)
		}
		return nil
	}
}

// CheckinScan requires the attempt to carry the location where the item was
// scanned, so that a bare automatic call never checks a loan in.
func (r *Rules) CheckinScan() Guard {
	return func(_ context.Context, _ *Loan, input any) error {
		if payloadFrom(input).TransactionLocationPID == "" {
			return statemachine.Reject("Check-in requires a transaction location.")
		}
		return nil
	}
}

// ItemAtHome passes when the transaction location is the item's own location.
func (r *Rules) ItemAtHome() Guard {
	return r.home(true)
}

// ItemAwayFromHome passes when the item was scanned away from its own location.
func (r *Rules) ItemAwayFromHome() Guard {
	return r.home(false)
}

func (r *Rules) home(atHome bool) Guard {
	return func(ctx context.Context, l *Loan, _ any) error {
		if l.TransactionLocationPID == "" {
			return statemachine.Reject("Transaction location is required.")
		}
		loc, err := r.v.ItemLocation(ctx, l.ItemPID)
		if err != nil {
			return lookupFailed("item location", err)
		}
		same := loc == l.TransactionLocationPID
		if atHome && !same {
			return statemachine.Rejectf("Item belongs to '%s', not to transaction location '%s'.", loc, l.TransactionLocationPID)
		}
		if !atHome && same {
			return statemachine.Rejectf("Item is already at its home location '%s'.", loc)
		}
		return nil
	}
}
