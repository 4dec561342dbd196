package pgstore

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

const (
	dialectPostgres = "postgres"

	colID                     = "id"
	colState                  = "state"
	colItemPID                = "item_pid"
	colPatronPID              = "patron_pid"
	colDocumentPID            = "document_pid"
	colTransactionDate        = "transaction_date"
	colStartDate              = "start_date"
	colEndDate                = "end_date"
	colRequestDate            = "request_date"
	colTransitDate            = "transit_date"
	colTransactionLocationPID = "transaction_location_pid"
	colPickupLocationPID      = "pickup_location_pid"
	colItemLocationPID        = "item_location_pid"
	colTransactionUserPID     = "transaction_user_pid"
	colExtensionCount         = "extension_count"
	colCancelReason           = "cancel_reason"
	colRevision               = "revision"
	colCreatedAt              = "created_at"
	colUpdatedAt              = "updated_at"
)

// loanColumns is the select list; scanLoan reads in the same order.
var loanColumns = []any{
	colID, colState, colItemPID, colPatronPID, colDocumentPID,
	colTransactionDate, colStartDate, colEndDate, colRequestDate, colTransitDate,
	colTransactionLocationPID, colPickupLocationPID, colItemLocationPID, colTransactionUserPID,
	colExtensionCount, colCancelReason, colRevision,
}

func builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// loanRecord maps the mutable loan fields to columns. Zero times become NULL.
func loanRecord(l *circulation.Loan) goqu.Record {
	return goqu.Record{
		colState:                  string(l.State),
		colItemPID:                l.ItemPID,
		colPatronPID:              l.PatronPID,
		colDocumentPID:            l.DocumentPID,
		colTransactionDate:        nullTime(l.TransactionDate),
		colStartDate:              nullTime(l.StartDate),
		colEndDate:                nullTime(l.EndDate),
		colRequestDate:            nullTime(l.RequestDate),
		colTransitDate:            nullTime(l.TransitDate),
		colTransactionLocationPID: l.TransactionLocationPID,
		colPickupLocationPID:      l.PickupLocationPID,
		colItemLocationPID:        l.ItemLocationPID,
		colTransactionUserPID:     l.TransactionUserPID,
		colExtensionCount:         l.ExtensionCount,
		colCancelReason:           l.CancelReason,
	}
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func buildSelectByID(table, id string) (string, []any, error) {
	return builder().
		From(table).
		Select(loanColumns...).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
}

// buildInsert creates the first revision of a loan.
func buildInsert(table string, l *circulation.Loan) (string, []any, error) {
	rec := loanRecord(l)
	rec[colID] = l.ID
	rec[colRevision] = l.Revision + 1
	return builder().
		Insert(table).
		Rows(rec).
		Prepared(true).
		ToSQL()
}

// buildUpdate writes l only if the stored revision still equals l.Revision.
func buildUpdate(table string, l *circulation.Loan) (string, []any, error) {
	rec := loanRecord(l)
	rec[colRevision] = goqu.L(`"revision" + 1`)
	rec[colUpdatedAt] = goqu.L("NOW()")
	return builder().
		Update(table).
		Set(rec).
		Where(
			goqu.C(colID).Eq(l.ID),
			goqu.C(colRevision).Eq(l.Revision),
		).
		Prepared(true).
		ToSQL()
}

func buildPendingByDocument(table, documentPID string) (string, []any, error) {
	return builder().
		From(table).
		Select(loanColumns...).
		Where(
			goqu.C(colDocumentPID).Eq(documentPID),
			goqu.C(colState).In(stateNames(circulation.RequestStates)...),
		).
		Order(
			goqu.C(colRequestDate).Asc().NullsLast(),
			goqu.C(colID).Asc(),
		).
		Prepared(true).
		ToSQL()
}

// buildActiveForItem counts active loans on the item other than excludingLoanID.
func buildActiveForItem(table, itemPID, excludingLoanID string) (string, []any, error) {
	where := []exp.Expression{
		goqu.C(colItemPID).Eq(itemPID),
		goqu.C(colState).In(stateNames(circulation.ActiveStates)...),
	}
	if excludingLoanID != "" {
		where = append(where, goqu.C(colID).Neq(excludingLoanID))
	}
	return builder().
		From(table).
		Select(goqu.COUNT(goqu.Star())).
		Where(where...).
		Prepared(true).
		ToSQL()
}

func buildIDsByState(table string, states []circulation.State) (string, []any, error) {
	return builder().
		From(table).
		Select(colID).
		Where(goqu.C(colState).In(stateNames(states)...)).
		Order(goqu.C(colCreatedAt).Asc(), goqu.C(colID).Asc()).
		Prepared(true).
		ToSQL()
}

func stateNames(states []circulation.State) []any {
	out := make([]any, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}

// scanLoan reads one row selected with loanColumns.
func scanLoan(row pgx.Row) (*circulation.Loan, error) {
	var (
		l                                             circulation.Loan
		state                                         string
		txDate, startDate, endDate, reqDate, transitD *time.Time
	)
	err := row.Scan(
		&l.ID, &state, &l.ItemPID, &l.PatronPID, &l.DocumentPID,
		&txDate, &startDate, &endDate, &reqDate, &transitD,
		&l.TransactionLocationPID, &l.PickupLocationPID, &l.ItemLocationPID, &l.TransactionUserPID,
		&l.ExtensionCount, &l.CancelReason, &l.Revision,
	)
	if err != nil {
		return nil, err
	}
	l.State = circulation.State(state)
	l.TransactionDate = deref(txDate)
	l.StartDate = deref(startDate)
	l.EndDate = deref(endDate)
	l.RequestDate = deref(reqDate)
	l.TransitDate = deref(transitD)
	return &l, nil
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func buildProbe(table string) (string, []any, error) {
	return builder().
		From(table).
		Select(goqu.L("1")).
		Limit(1).
		Prepared(true).
		ToSQL()
}
