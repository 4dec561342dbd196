package circulation

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/circulation/pkg/statemachine"
)

// Loan tracks one circulation transaction of one item to one patron.
//
// State is changed only by the Engine. Revision is bumped by the store on
// every successful save and is used for optimistic concurrency.
type Loan struct {
	ID          string `json:"id" bson:"_id"`
	State       State  `json:"state" bson:"state"`
	ItemPID     string `json:"item_pid,omitempty" bson:"item_pid,omitempty"`
	PatronPID   string `json:"patron_pid,omitempty" bson:"patron_pid,omitempty"`
	DocumentPID string `json:"document_pid,omitempty" bson:"document_pid,omitempty"`

	TransactionDate time.Time `json:"transaction_date,omitzero" bson:"transaction_date,omitempty"`
	StartDate       time.Time `json:"start_date,omitzero" bson:"start_date,omitempty"`
	EndDate         time.Time `json:"end_date,omitzero" bson:"end_date,omitempty"`
	RequestDate     time.Time `json:"request_date,omitzero" bson:"request_date,omitempty"`
	TransitDate     time.Time `json:"transit_date,omitzero" bson:"transit_date,omitempty"`

	TransactionLocationPID string `json:"transaction_location_pid,omitempty" bson:"transaction_location_pid,omitempty"`
	PickupLocationPID      string `json:"pickup_location_pid,omitempty" bson:"pickup_location_pid,omitempty"`
	ItemLocationPID        string `json:"item_location_pid,omitempty" bson:"item_location_pid,omitempty"`
	TransactionUserPID     string `json:"transaction_user_pid,omitempty" bson:"transaction_user_pid,omitempty"`

	ExtensionCount int    `json:"extension_count" bson:"extension_count"`
	CancelReason   string `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	Revision       int64  `json:"revision" bson:"revision"`
}

var _ statemachine.Subject[*Loan] = (*Loan)(nil)

// NewLoan returns an empty loan in the initial state with a fresh identifier.
func NewLoan() *Loan {
	return &Loan{
		ID:    uuid.NewString(),
		State: StateCreated,
	}
}

// Clone returns an independent copy. Loan holds only value fields.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// CurrentState implements statemachine.Subject.
func (l *Loan) CurrentState() statemachine.State { return l.State }

// EnterState implements statemachine.Subject.
func (l *Loan) EnterState(s statemachine.State) { l.State = stateOf(s) }

// Validate checks the data-model invariants that hold in every state.
func (l *Loan) Validate() error {
	if l == nil {
		return ErrNilLoan
	}
	var errs []error
	if l.ID == "" {
		errs = append(errs, errors.New("loan id is empty"))
	}
	if !l.State.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownState, l.State))
	}
	if !l.StartDate.IsZero() && !l.EndDate.IsZero() && l.EndDate.Before(l.StartDate) {
		errs = append(errs, fmt.Errorf("end date %s is before start date %s",
			l.EndDate.Format(time.RFC3339), l.StartDate.Format(time.RFC3339)))
	}
	if l.ExtensionCount < 0 {
		errs = append(errs, errors.New("extension count is negative"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidLoan}, errs...)...)
	}
	return nil
}

// requestedBefore reports whether l was queued ahead of other.
func (l *Loan) requestedBefore(other *Loan) bool {
	return CompareQueue(l, other) < 0
}

// CompareQueue orders loans the way a request queue is served: by request
// date, loans without one last, with the loan id as tie breaker. Stores sort
// their pending lists with it.
func CompareQueue(a, b *Loan) int {
	switch {
	case a.RequestDate.IsZero() && !b.RequestDate.IsZero():
		return 1
	case !a.RequestDate.IsZero() && b.RequestDate.IsZero():
		return -1
	}
	if c := a.RequestDate.Compare(b.RequestDate); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
