package circulation

import (
	"context"

	"github.com/dmitrymomot/circulation/pkg/logger"
)

// assignReturnedItem attaches a just-returned item to the pending
// document-level requests of its document that still have no item. Each
// request is saved on its own; a failure is logged and leaves the return
// committed.
func (e *Engine) assignReturnedItem(ctx context.Context, returned *Loan) {
	if returned.ItemPID == "" || returned.DocumentPID == "" {
		return
	}

	pending, err := e.validators.PendingLoansByDocument(ctx, returned.DocumentPID)
	if err != nil {
		e.logger.ErrorContext(ctx, "item assignment skipped",
			logger.LoanID(returned.ID),
			logger.DocumentPID(returned.DocumentPID),
			logger.Error(err),
		)
		return
	}

	for _, p := range pending {
		if p == nil || p.ItemPID != "" || p.State != StatePending {
			continue
		}

		unlock, err := e.lock(ctx, p.ID)
		if err != nil {
			e.logger.WarnContext(ctx, "item assignment skipped", logger.LoanID(p.ID), logger.Error(err))
			continue
		}

		next := p.Clone()
		next.ItemPID = returned.ItemPID
		if next.PickupLocationPID == "" {
			next.PickupLocationPID = returned.ItemLocationPID
		}
		err = e.store.Save(ctx, next)
		unlock()
		if err != nil {
			e.logger.WarnContext(ctx, "item assignment failed",
				logger.LoanID(p.ID),
				logger.ItemPID(returned.ItemPID),
				logger.Error(err),
			)
			continue
		}

		e.logger.InfoContext(ctx, "item assigned to pending request",
			logger.LoanID(p.ID),
			logger.ItemPID(returned.ItemPID),
			logger.Revision(next.Revision),
		)
	}
}
