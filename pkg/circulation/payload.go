package circulation

import "time"

// Payload carries the caller-supplied fields of a transition attempt.
// Zero values mean "not given".
type Payload struct {
	ItemPID     string
	PatronPID   string
	DocumentPID string

	TransactionDate time.Time
	StartDate       time.Time
	EndDate         time.Time

	TransactionLocationPID string
	PickupLocationPID      string
	TransactionUserPID     string

	CancelReason string
}

// mergeInto copies payload fields onto the working copy of a loan.
//
// Entity references and the loan period fill blanks only; an item given for a
// loan that already has one is checked by the same-item guard instead of
// being overwritten. Transaction context fields describe the current attempt
// and replace the stored ones when given. CancelReason is applied only by the
// cancellation effect.
func (p Payload) mergeInto(l *Loan, now time.Time) {
	if l.ItemPID == "" {
		l.ItemPID = p.ItemPID
	}
	if l.PatronPID == "" {
		l.PatronPID = p.PatronPID
	}
	if l.DocumentPID == "" {
		l.DocumentPID = p.DocumentPID
	}
	if l.StartDate.IsZero() {
		l.StartDate = p.StartDate
	}
	if l.EndDate.IsZero() {
		l.EndDate = p.EndDate
	}

	if p.TransactionLocationPID != "" {
		l.TransactionLocationPID = p.TransactionLocationPID
	}
	if p.PickupLocationPID != "" {
		l.PickupLocationPID = p.PickupLocationPID
	}
	if p.TransactionUserPID != "" {
		l.TransactionUserPID = p.TransactionUserPID
	}

	if !p.TransactionDate.IsZero() {
		l.TransactionDate = p.TransactionDate
	} else {
		l.TransactionDate = now
	}
}

func payloadFrom(input any) Payload {
	switch p := input.(type) {
	case Payload:
		return p
	case *Payload:
		if p != nil {
			return *p
		}
	}
	return Payload{}
}
