package circulation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/memstore"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// library is an in-memory host: catalogue, patrons and item locations.
type library struct {
	mu        sync.Mutex
	store     *memstore.Store
	items     map[string]string // item pid -> location
	patrons   map[string]bool
	documents map[string]bool
	failItems error
}

func newLibrary() *library {
	return &library{
		store:     memstore.New(),
		items:     map[string]string{"I1": "main", "I2": "main", "I3": "branch"},
		patrons:   map[string]bool{"P1": true, "P2": true},
		documents: map[string]bool{"D1": true, "D2": true},
	}
}

func (l *library) moveItem(item, location string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[item] = location
}

func (l *library) validators() circulation.Validators {
	return circulation.Validators{
		ItemExists: func(_ context.Context, pid string) (bool, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.failItems != nil {
				return false, l.failItems
			}
			_, ok := l.items[pid]
			return ok, nil
		},
		PatronExists: func(_ context.Context, pid string) (bool, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			return l.patrons[pid], nil
		},
		DocumentExists: func(_ context.Context, pid string) (bool, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			return l.documents[pid], nil
		},
		ItemLocation: func(_ context.Context, pid string) (string, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			return l.items[pid], nil
		},
		ValidateTransactionLocation: func(_ context.Context, pid string) (bool, error) {
			return pid != "closed-desk", nil
		},
		ValidateTransactionUser: func(_ context.Context, pid string) (bool, error) {
			return pid != "intruder", nil
		},
		ValidatePickupTransactionLocations: func(context.Context, *circulation.Loan, circulation.State) (bool, error) {
			return true, nil
		},
		IsItemAvailableForCheckout: l.store.IsItemAvailableForCheckout,
		PendingLoansByDocument:     l.store.PendingLoansByDocument,
	}
}

// testPolicies lend for two weeks from the transaction date and extend by
// one week from the end date, at most twice.
func testPolicies() circulation.Policies {
	return circulation.Policies{
		Checkout: circulation.CheckoutPolicy{
			DurationDefault: func(l *circulation.Loan) (time.Time, time.Time) {
				return l.TransactionDate, l.TransactionDate.AddDate(0, 0, 14)
			},
			DurationValidate: func(_ *circulation.Loan, start, end time.Time) bool {
				return !end.Before(start) && end.Sub(start) <= 60*24*time.Hour
			},
			ItemCanCirculate: func(string) bool { return true },
		},
		Extension: circulation.ExtensionPolicy{
			FromEndDate: true,
			DurationDefault: func(_ *circulation.Loan, from time.Time) time.Time {
				return from.AddDate(0, 0, 7)
			},
			MaxCount: func(*circulation.Loan) int { return 2 },
		},
		Request: circulation.RequestPolicy{
			CanBeRequested: func(*circulation.Loan) bool { return true },
		},
	}
}

func desk(extra circulation.Payload) circulation.Payload {
	if extra.TransactionLocationPID == "" {
		extra.TransactionLocationPID = "main"
	}
	if extra.TransactionUserPID == "" {
		extra.TransactionUserPID = "librarian"
	}
	return extra
}

func newEngine(t *testing.T, lib *library, opts ...circulation.Option) *circulation.Engine {
	t.Helper()
	opts = append([]circulation.Option{circulation.WithClock(func() time.Time { return day0 })}, opts...)
	e, err := circulation.NewEngine(lib.validators(), testPolicies(), lib.store, opts...)
	require.NoError(t, err)
	return e
}

// createdLoan persists a fresh CREATED loan.
func createdLoan(t *testing.T, lib *library) *circulation.Loan {
	t.Helper()
	loan := circulation.NewLoan()
	require.NoError(t, lib.store.Save(context.Background(), loan))
	return loan
}

// stored reloads a loan from the library store.
func stored(t *testing.T, lib *library, id string) *circulation.Loan {
	t.Helper()
	loan, err := lib.store.Get(context.Background(), id)
	require.NoError(t, err)
	return loan
}

func checkedOut(t *testing.T, lib *library, e *circulation.Engine, item string) *circulation.Loan {
	t.Helper()
	res, err := e.Resolve(context.Background(), createdLoan(t, lib), circulation.TriggerCheckout, desk(circulation.Payload{
		ItemPID:     item,
		PatronPID:   "P1",
		DocumentPID: "D1",
	}))
	require.NoError(t, err)
	require.Equal(t, circulation.StateItemOnLoan, res.To)
	return res.Loan
}

func requested(t *testing.T, lib *library, e *circulation.Engine, p circulation.Payload) *circulation.Loan {
	t.Helper()
	res, err := e.Resolve(context.Background(), createdLoan(t, lib), circulation.TriggerRequest, desk(p))
	require.NoError(t, err)
	require.Equal(t, circulation.StatePending, res.To)
	return res.Loan
}
