package catalog

import (
	"context"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

// Availability is the loan-side lookup the catalog cannot answer alone.
type Availability interface {
	IsItemAvailableForCheckout(ctx context.Context, itemPID, excludingLoanID string) (bool, error)
	PendingLoansByDocument(ctx context.Context, documentPID string) ([]*circulation.Loan, error)
}

// Validators combines the catalog with a loan store or index into a complete
// circulation.Validators bundle, including AvailableItemByDocument.
func (c *Catalog) Validators(av Availability) circulation.Validators {
	return circulation.Validators{
		ItemExists:                         c.ItemExists,
		PatronExists:                       c.PatronExists,
		DocumentExists:                     c.DocumentExists,
		ItemLocation:                       c.ItemLocation,
		ValidateTransactionLocation:        c.ValidateTransactionLocation,
		ValidateTransactionUser:            c.ValidateTransactionUser,
		ValidatePickupTransactionLocations: c.ValidatePickupTransactionLocations,
		IsItemAvailableForCheckout:         av.IsItemAvailableForCheckout,
		PendingLoansByDocument:             av.PendingLoansByDocument,
		AvailableItemByDocument: func(ctx context.Context, documentPID string) (string, bool, error) {
			for _, pid := range c.Items(documentPID) {
				if !c.ItemCanCirculate(pid) {
					continue
				}
				ok, err := av.IsItemAvailableForCheckout(ctx, pid, "")
				if err != nil {
					return "", false, err
				}
				if ok {
					return pid, true, nil
				}
			}
			return "", false, nil
		},
	}
}

// ApplyPolicies installs the catalog's circulation and request rules into p.
func (c *Catalog) ApplyPolicies(p *circulation.Policies) {
	p.Checkout.ItemCanCirculate = c.ItemCanCirculate
	p.Request.CanBeRequested = c.CanBeRequested
}
