package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

// Store keeps loans in memory. It implements circulation.Store and provides
// the queue and availability lookups used by circulation.Validators.
type Store struct {
	mu    sync.RWMutex
	loans map[string]*circulation.Loan
	order []string
}

var _ circulation.Store = (*Store)(nil)

func New() *Store {
	return &Store{loans: make(map[string]*circulation.Loan)}
}

// Get returns a copy of the stored loan.
func (s *Store) Get(_ context.Context, id string) (*circulation.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", circulation.ErrLoanNotFound, id)
	}
	return loan.Clone(), nil
}

// Save stores a copy of loan if its revision matches, then bumps loan.Revision.
// An active loan is refused while another active loan holds the same item.
func (s *Store) Save(_ context.Context, loan *circulation.Loan) error {
	if loan == nil {
		return circulation.ErrNilLoan
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.loans[loan.ID]
	switch {
	case !ok && loan.Revision != 0:
		return fmt.Errorf("%w: loan %s does not exist at revision %d",
			circulation.ErrPersistenceConflict, loan.ID, loan.Revision)
	case ok && current.Revision != loan.Revision:
		return fmt.Errorf("%w: loan %s is at revision %d, not %d",
			circulation.ErrPersistenceConflict, loan.ID, current.Revision, loan.Revision)
	}
	if holder := s.activeHolder(loan); holder != "" {
		return fmt.Errorf("%w: item %s is held by active loan %s",
			circulation.ErrPersistenceConflict, loan.ItemPID, holder)
	}

	loan.Revision++
	if !ok {
		s.order = append(s.order, loan.ID)
	}
	s.loans[loan.ID] = loan.Clone()
	return nil
}

// activeHolder returns the id of another active loan on loan's item, if loan
// itself is active. The caller holds s.mu.
func (s *Store) activeHolder(loan *circulation.Loan) string {
	if loan.ItemPID == "" || !loan.State.IsActive() {
		return ""
	}
	for _, id := range s.order {
		l := s.loans[id]
		if id != loan.ID && l.ItemPID == loan.ItemPID && l.State.IsActive() {
			return id
		}
	}
	return ""
}

// PendingLoansByDocument lists PENDING loans of the document in queue order.
func (s *Store) PendingLoansByDocument(_ context.Context, documentPID string) ([]*circulation.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*circulation.Loan
	for _, id := range s.order {
		l := s.loans[id]
		if l.DocumentPID == documentPID && l.State.IsRequest() {
			out = append(out, l.Clone())
		}
	}
	slices.SortStableFunc(out, circulation.CompareQueue)
	return out, nil
}

// IsItemAvailableForCheckout reports whether no active loan other than
// excludingLoanID holds the item.
func (s *Store) IsItemAvailableForCheckout(_ context.Context, itemPID, excludingLoanID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, l := range s.loans {
		if id == excludingLoanID {
			continue
		}
		if l.ItemPID == itemPID && l.State.IsActive() {
			return false, nil
		}
	}
	return true, nil
}

// ByState returns the ids of loans currently in one of states, in insertion order.
func (s *Store) ByState(_ context.Context, states ...circulation.State) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, id := range s.order {
		if slices.Contains(states, s.loans[id].State) {
			out = append(out, id)
		}
	}
	return out, nil
}
