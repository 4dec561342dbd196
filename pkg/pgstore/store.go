package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/logger"
	"github.com/dmitrymomot/circulation/pkg/pg"
)

const defaultLoansTable = "loans"

// activeItemIndex is the partial unique index allowing one active loan per item.
const activeItemIndex = "loans_active_item_unique"

// DB is the subset of *pgxpool.Pool the store needs. A pgx.Tx satisfies it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL circulation.Store with the pending-queue and
// availability lookups used by circulation.Validators.
type Store struct {
	db    DB
	table string
	log   *slog.Logger
}

var _ circulation.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTableName overrides the loans table name.
func WithTableName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = name
		}
	}
}

// WithLogger sets the logger used for query failures and conflicts.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Store backed by db. It panics if db is nil.
func New(db DB, opts ...Option) *Store {
	if db == nil {
		panic("pgstore: db cannot be nil")
	}
	s := &Store{
		db:    db,
		table: defaultLoansTable,
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads a loan by id.
func (s *Store) Get(ctx context.Context, id string) (*circulation.Loan, error) {
	query, args, err := buildSelectByID(s.table, id)
	if err != nil {
		return nil, fmt.Errorf("pgstore: build select: %w", err)
	}

	loan, err := scanLoan(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", circulation.ErrLoanNotFound, id)
		}
		return nil, fmt.Errorf("pgstore: get loan %s: %w", id, err)
	}
	return loan, nil
}

// Save inserts a never-saved loan (Revision 0) or updates it when the stored
// revision still matches. On success loan.Revision is incremented.
func (s *Store) Save(ctx context.Context, loan *circulation.Loan) error {
	if loan == nil {
		return circulation.ErrNilLoan
	}
	if loan.Revision == 0 {
		return s.insert(ctx, loan)
	}
	return s.update(ctx, loan)
}

func (s *Store) insert(ctx context.Context, loan *circulation.Loan) error {
	query, args, err := buildInsert(s.table, loan)
	if err != nil {
		return fmt.Errorf("pgstore: build insert: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return s.duplicate(ctx, loan, err)
		}
		return fmt.Errorf("pgstore: insert loan %s: %w", loan.ID, err)
	}

	loan.Revision++
	return nil
}

func (s *Store) update(ctx context.Context, loan *circulation.Loan) error {
	query, args, err := buildUpdate(s.table, loan)
	if err != nil {
		return fmt.Errorf("pgstore: build update: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return s.duplicate(ctx, loan, err)
		}
		if pg.IsSerializationError(err) {
			return errors.Join(circulation.ErrPersistenceConflict, err)
		}
		return fmt.Errorf("pgstore: update loan %s: %w", loan.ID, err)
	}
	if tag.RowsAffected() == 0 {
		s.log.WarnContext(ctx, "stale loan revision",
			logger.LoanID(loan.ID),
			logger.Revision(loan.Revision),
		)
		return fmt.Errorf("%w: loan %s is not at revision %d",
			circulation.ErrPersistenceConflict, loan.ID, loan.Revision)
	}

	loan.Revision++
	return nil
}

// duplicate maps a unique violation to ErrPersistenceConflict: either the
// loan id is taken or another active loan already holds the item.
func (s *Store) duplicate(ctx context.Context, loan *circulation.Loan, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == activeItemIndex {
		s.log.WarnContext(ctx, "item held by another active loan",
			logger.LoanID(loan.ID),
			logger.ItemPID(loan.ItemPID),
		)
		return fmt.Errorf("%w: item %s is held by another active loan",
			circulation.ErrPersistenceConflict, loan.ItemPID)
	}
	s.log.WarnContext(ctx, "loan already exists", logger.LoanID(loan.ID))
	return fmt.Errorf("%w: loan %s already exists", circulation.ErrPersistenceConflict, loan.ID)
}

// PendingLoansByDocument lists request-state loans of the document, oldest
// request first, ties broken by id.
func (s *Store) PendingLoansByDocument(ctx context.Context, documentPID string) ([]*circulation.Loan, error) {
	query, args, err := buildPendingByDocument(s.table, documentPID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: build pending query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: pending loans of %s: %w", documentPID, err)
	}
	defer rows.Close()

	var out []*circulation.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("pgstore: scan pending loan: %w", err)
		}
		out = append(out, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: pending loans of %s: %w", documentPID, err)
	}
	return out, nil
}

// IsItemAvailableForCheckout reports whether no active loan other than
// excludingLoanID holds the item.
func (s *Store) IsItemAvailableForCheckout(ctx context.Context, itemPID, excludingLoanID string) (bool, error) {
	query, args, err := buildActiveForItem(s.table, itemPID, excludingLoanID)
	if err != nil {
		return false, fmt.Errorf("pgstore: build availability query: %w", err)
	}

	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("pgstore: availability of %s: %w", itemPID, err)
	}
	return n == 0, nil
}

// ByState returns ids of loans in any of states, oldest first.
func (s *Store) ByState(ctx context.Context, states ...circulation.State) ([]string, error) {
	if len(states) == 0 {
		return nil, nil
	}
	query, args, err := buildIDsByState(s.table, states)
	if err != nil {
		return nil, fmt.Errorf("pgstore: build state query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: loans by state: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("pgstore: loans by state: %w", err)
	}
	return ids, nil
}

// Ping runs a trivial read against the loans table. It fails when the
// database is unreachable or the schema has not been migrated.
func (s *Store) Ping(ctx context.Context) error {
	query, args, err := buildProbe(s.table)
	if err != nil {
		return fmt.Errorf("pgstore: build probe: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return errors.Join(pg.ErrHealthcheckFailed, err)
	}
	return nil
}
