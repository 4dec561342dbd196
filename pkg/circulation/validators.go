package circulation

import "context"

// Validators are the host lookups the guards consult. They are called fresh
// on every guard evaluation and never cached by the engine.
//
// A lookup returning an error aborts the attempt; the engine reports it
// joined with ErrLookupFailed instead of treating it as a failed guard.
type Validators struct {
	ItemExists     func(ctx context.Context, itemPID string) (bool, error)
	PatronExists   func(ctx context.Context, patronPID string) (bool, error)
	DocumentExists func(ctx context.Context, documentPID string) (bool, error)

	// ItemLocation returns the location holding the item: its shelf location
	// while available or in transit, its owning location while on loan.
	ItemLocation func(ctx context.Context, itemPID string) (string, error)

	ValidateTransactionLocation func(ctx context.Context, locationPID string) (bool, error)
	ValidateTransactionUser     func(ctx context.Context, userPID string) (bool, error)

	// ValidatePickupTransactionLocations is the host's extra check on the
	// item, pickup and transaction locations of a pending loan about to move
	// to dest. The loan's ItemLocationPID is already resolved when it runs.
	ValidatePickupTransactionLocations func(ctx context.Context, loan *Loan, dest State) (bool, error)

	// IsItemAvailableForCheckout reports whether no active loan other than
	// excludingLoanID holds the item.
	IsItemAvailableForCheckout func(ctx context.Context, itemPID, excludingLoanID string) (bool, error)

	// PendingLoansByDocument lists PENDING loans of a document, earliest first.
	PendingLoansByDocument func(ctx context.Context, documentPID string) ([]*Loan, error)

	// AvailableItemByDocument is optional. When set, document-level requests
	// get an available item attached at request time.
	AvailableItemByDocument func(ctx context.Context, documentPID string) (string, bool, error)
}

// Validate reports every missing required lookup as a single *ConfigurationError.
func (v Validators) Validate() error {
	var missing []string
	check := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check(v.ItemExists != nil, "item_exists")
	check(v.PatronExists != nil, "patron_exists")
	check(v.DocumentExists != nil, "document_exists")
	check(v.ItemLocation != nil, "item_location")
	check(v.ValidateTransactionLocation != nil, "validate_transaction_location")
	check(v.ValidateTransactionUser != nil, "validate_transaction_user")
	check(v.ValidatePickupTransactionLocations != nil, "validate_pickup_transaction_locations")
	check(v.IsItemAvailableForCheckout != nil, "is_item_available_for_checkout")
	check(v.PendingLoansByDocument != nil, "pending_loans_by_document")
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
