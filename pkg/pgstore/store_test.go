package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/circulation/pkg/audit"
	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/pg"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	queries []string
	args    [][]any
	tag     pgconn.CommandTag
	execErr error
	row     fakeRow
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.queries = append(db.queries, sql)
	db.args = append(db.args, args)
	return db.tag, db.execErr
}

func (db *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.queries = append(db.queries, sql)
	db.args = append(db.args, args)
	return db.row
}

func sampleLoan() *circulation.Loan {
	return &circulation.Loan{
		ID:          "L1",
		State:       circulation.StateItemOnLoan,
		ItemPID:     "I1",
		PatronPID:   "P1",
		DocumentPID: "D1",
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildUpdate(t *testing.T) {
	t.Parallel()

	loan := sampleLoan()
	loan.Revision = 3

	query, args, err := buildUpdate("loans", loan)
	require.NoError(t, err)

	assert.Contains(t, query, `UPDATE "loans" SET`)
	assert.Contains(t, query, `"revision" + 1`)
	assert.Contains(t, query, `NOW()`)
	assert.Contains(t, query, `"id" = $`)
	assert.Contains(t, query, `"revision" = $`)
	require.GreaterOrEqual(t, len(args), 2)
	assert.Equal(t, []any{"L1", int64(3)}, args[len(args)-2:])
}

func TestBuildInsert(t *testing.T) {
	t.Parallel()

	query, args, err := buildInsert("loans", sampleLoan())
	require.NoError(t, err)

	assert.Contains(t, query, `INSERT INTO "loans"`)
	assert.Contains(t, args, "L1")
	assert.Contains(t, args, int64(1))
	assert.Contains(t, args, string(circulation.StateItemOnLoan))
}

func TestBuildPendingByDocument(t *testing.T) {
	t.Parallel()

	query, args, err := buildPendingByDocument("loans", "D1")
	require.NoError(t, err)

	assert.Contains(t, query, `FROM "loans"`)
	assert.Contains(t, query, `"request_date" ASC NULLS LAST`)
	assert.Contains(t, query, `"id" ASC`)
	assert.Equal(t, []any{"D1", string(circulation.StatePending)}, args)
}

func TestBuildActiveForItem(t *testing.T) {
	t.Parallel()

	t.Run("excluding a loan", func(t *testing.T) {
		t.Parallel()
		query, args, err := buildActiveForItem("loans", "I1", "L1")
		require.NoError(t, err)

		assert.Contains(t, query, `COUNT(*)`)
		assert.Contains(t, query, `"id" != $`)
		assert.Equal(t, "I1", args[0])
		assert.Equal(t, "L1", args[len(args)-1])
		assert.Len(t, args, len(circulation.ActiveStates)+2)
	})

	t.Run("without exclusion", func(t *testing.T) {
		t.Parallel()
		query, args, err := buildActiveForItem("loans", "I1", "")
		require.NoError(t, err)

		assert.NotContains(t, query, `"id" !=`)
		assert.Len(t, args, len(circulation.ActiveStates)+1)
	})
}

func TestBuildIDsByState(t *testing.T) {
	t.Parallel()

	query, args, err := buildIDsByState("loans", []circulation.State{circulation.StatePending, circulation.StateItemInTransitForPickup})
	require.NoError(t, err)

	assert.Contains(t, query, `SELECT "id" FROM "loans"`)
	assert.Equal(t, []any{"PENDING", "ITEM_IN_TRANSIT_FOR_PICKUP"}, args)
}

func TestStore_SaveInsert(t *testing.T) {
	t.Parallel()

	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	store := New(db)

	loan := sampleLoan()
	require.NoError(t, store.Save(t.Context(), loan))
	assert.Equal(t, int64(1), loan.Revision)
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], "INSERT INTO")
}

func TestStore_SaveInsertDuplicate(t *testing.T) {
	t.Parallel()

	db := &fakeDB{execErr: &pgconn.PgError{Code: "23505"}}
	store := New(db)

	loan := sampleLoan()
	err := store.Save(t.Context(), loan)
	require.ErrorIs(t, err, circulation.ErrPersistenceConflict)
	assert.Equal(t, int64(0), loan.Revision)
}

func TestStore_SaveActiveItemTaken(t *testing.T) {
	t.Parallel()

	taken := &pgconn.PgError{Code: "23505", ConstraintName: activeItemIndex}

	t.Run("insert", func(t *testing.T) {
		t.Parallel()
		loan := sampleLoan()

		err := New(&fakeDB{execErr: taken}).Save(t.Context(), loan)
		require.ErrorIs(t, err, circulation.ErrPersistenceConflict)
		assert.ErrorContains(t, err, "item I1 is held by another active loan")
		assert.Equal(t, int64(0), loan.Revision)
	})

	t.Run("update", func(t *testing.T) {
		t.Parallel()
		loan := sampleLoan()
		loan.Revision = 2

		err := New(&fakeDB{execErr: taken}).Save(t.Context(), loan)
		require.ErrorIs(t, err, circulation.ErrPersistenceConflict)
		assert.ErrorContains(t, err, "item I1 is held by another active loan")
		assert.Equal(t, int64(2), loan.Revision)
	})
}

func TestMigrations_UniqueActiveItem(t *testing.T) {
	t.Parallel()

	raw, err := Migrations.ReadFile(MigrationsDir + "/00003_unique_active_item.sql")
	require.NoError(t, err)

	sql := string(raw)
	assert.Contains(t, sql, "CREATE UNIQUE INDEX IF NOT EXISTS "+activeItemIndex)
	for _, st := range circulation.ActiveStates {
		assert.Contains(t, sql, "'"+st.Name()+"'")
	}
}

func TestStore_SaveUpdate(t *testing.T) {
	t.Parallel()

	t.Run("matching revision", func(t *testing.T) {
		t.Parallel()
		db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
		loan := sampleLoan()
		loan.Revision = 2

		require.NoError(t, New(db).Save(t.Context(), loan))
		assert.Equal(t, int64(3), loan.Revision)
		assert.Contains(t, db.queries[0], "UPDATE")
	})

	t.Run("stale revision", func(t *testing.T) {
		t.Parallel()
		db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}
		loan := sampleLoan()
		loan.Revision = 2

		err := New(db).Save(t.Context(), loan)
		require.ErrorIs(t, err, circulation.ErrPersistenceConflict)
		assert.Equal(t, int64(2), loan.Revision)
	})

	t.Run("driver failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("connection reset")
		db := &fakeDB{execErr: boom}
		loan := sampleLoan()
		loan.Revision = 2

		err := New(db).Save(t.Context(), loan)
		require.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, circulation.ErrPersistenceConflict)
	})
}

func TestStore_SaveNil(t *testing.T) {
	t.Parallel()

	err := New(&fakeDB{}).Save(t.Context(), nil)
	assert.ErrorIs(t, err, circulation.ErrNilLoan)
}

func TestStore_GetNotFound(t *testing.T) {
	t.Parallel()

	db := &fakeDB{row: fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}}

	_, err := New(db).Get(t.Context(), "missing")
	assert.ErrorIs(t, err, circulation.ErrLoanNotFound)
}

func TestStore_IsItemAvailableForCheckout(t *testing.T) {
	t.Parallel()

	count := func(n int64) fakeRow {
		return fakeRow{scan: func(dest ...any) error {
			*dest[0].(*int64) = n
			return nil
		}}
	}

	ok, err := New(&fakeDB{row: count(0)}).IsItemAvailableForCheckout(t.Context(), "I1", "L1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = New(&fakeDB{row: count(1)}).IsItemAvailableForCheckout(t.Context(), "I1", "L1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNew_PanicsOnNilDB(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { New(nil) })
}

func TestAuditWriter_StoreBatch(t *testing.T) {
	t.Parallel()

	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 2")}
	w := NewAuditWriter(db)

	events := []audit.Event{
		{ID: "e1", Action: "loan.transition", Resource: "loan", ResourceID: "L1", Result: audit.ResultSuccess,
			Metadata: map[string]any{"to": "ITEM_ON_LOAN"}, CreatedAt: time.Now()},
		{ID: "e2", Action: "loan.transition", Resource: "loan", ResourceID: "L2", Result: audit.ResultFailure,
			CreatedAt: time.Now()},
	}
	require.NoError(t, w.StoreBatch(t.Context(), events))
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], `INSERT INTO "audit_events"`)
	assert.Contains(t, db.args[0], `{"to":"ITEM_ON_LOAN"}`)
	assert.Contains(t, db.args[0], "e1")
	assert.Contains(t, db.args[0], "e2")
}

func TestAuditWriter_StoreBatchEmpty(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	require.NoError(t, NewAuditWriter(db).StoreBatch(t.Context(), nil))
	assert.Empty(t, db.queries)
}

func TestAuditWriter_StorageFailure(t *testing.T) {
	t.Parallel()

	db := &fakeDB{execErr: errors.New("down")}
	err := NewAuditWriter(db).Store(t.Context(), audit.Event{ID: "e1", Action: "a", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, audit.ErrStorageNotAvailable)
}

func TestStore_Ping(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	require.NoError(t, New(db).Ping(context.Background()))
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], `SELECT 1 FROM "loans"`)

	failing := &fakeDB{execErr: errors.New(`relation "loans" does not exist`)}
	err := New(failing).Ping(context.Background())
	assert.ErrorIs(t, err, pg.ErrHealthcheckFailed)
}
