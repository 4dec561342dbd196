package searchindex

import (
	"context"

	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/logger"
)

// WriteThrough wraps a primary store so every successful save is mirrored
// into the index. The primary store stays the source of truth: index
// failures are logged and never fail the save.
type WriteThrough struct {
	circulation.Store
	index *Index
}

var _ circulation.Store = (*WriteThrough)(nil)

func NewWriteThrough(store circulation.Store, index *Index) *WriteThrough {
	return &WriteThrough{Store: store, index: index}
}

func (w *WriteThrough) Save(ctx context.Context, loan *circulation.Loan) error {
	if err := w.Store.Save(ctx, loan); err != nil {
		return err
	}
	if err := w.index.Put(ctx, loan); err != nil {
		w.index.log.WarnContext(ctx, "failed to index loan",
			logger.LoanID(loan.ID),
			logger.Revision(loan.Revision),
			logger.Error(err),
		)
	}
	return nil
}
