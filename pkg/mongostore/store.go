package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/logger"
)

// ErrUnavailable is returned by Ping when the deployment cannot be reached.
var ErrUnavailable = errors.New("mongostore: database unavailable")

// Store keeps one document per loan in a MongoDB collection.
type Store struct {
	coll *mongo.Collection
	log  *slog.Logger
}

var _ circulation.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for conflicts.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a Store over coll. It panics if coll is nil.
func New(coll *mongo.Collection, opts ...Option) *Store {
	if coll == nil {
		panic("mongostore: collection cannot be nil")
	}
	s := &Store{coll: coll, log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the queue, availability and state indexes, and the
// partial unique index that keeps one active loan per item. The latter needs
// MongoDB 6.0 or newer.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes()); err != nil {
		return fmt.Errorf("mongostore: create indexes: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*circulation.Loan, error) {
	var loan circulation.Loan
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&loan); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", circulation.ErrLoanNotFound, id)
		}
		return nil, fmt.Errorf("mongostore: get loan %s: %w", id, err)
	}
	return &loan, nil
}

// Save inserts a loan at Revision 0 and otherwise replaces the document only
// while its stored revision equals loan.Revision.
func (s *Store) Save(ctx context.Context, loan *circulation.Loan) error {
	if loan == nil {
		return circulation.ErrNilLoan
	}

	next := loan.Clone()
	next.Revision++

	if loan.Revision == 0 {
		if _, err := s.coll.InsertOne(ctx, next); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return s.duplicate(ctx, loan, err)
			}
			return fmt.Errorf("mongostore: insert loan %s: %w", loan.ID, err)
		}
		loan.Revision = next.Revision
		return nil
	}

	res, err := s.coll.ReplaceOne(ctx, atRevision(loan.ID, loan.Revision), next)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return s.duplicate(ctx, loan, err)
		}
		return fmt.Errorf("mongostore: replace loan %s: %w", loan.ID, err)
	}
	if res.MatchedCount == 0 {
		s.log.WarnContext(ctx, "stale loan revision", logger.LoanID(loan.ID), logger.Revision(loan.Revision))
		return fmt.Errorf("%w: loan %s is not at revision %d",
			circulation.ErrPersistenceConflict, loan.ID, loan.Revision)
	}

	loan.Revision = next.Revision
	return nil
}

// duplicate reports a unique index violation: the loan id is taken, or
// another active loan already holds the item.
func (s *Store) duplicate(ctx context.Context, loan *circulation.Loan, err error) error {
	s.log.WarnContext(ctx, "loan conflicts with a stored loan",
		logger.LoanID(loan.ID),
		logger.ItemPID(loan.ItemPID),
		logger.Error(err),
	)
	return errors.Join(
		fmt.Errorf("%w: loan %s conflicts with a stored loan", circulation.ErrPersistenceConflict, loan.ID),
		err,
	)
}

// PendingLoansByDocument lists request-state loans of the document in queue
// order. Loans without a request date sort first in MongoDB, so the result is
// re-sorted.
func (s *Store) PendingLoansByDocument(ctx context.Context, documentPID string) ([]*circulation.Loan, error) {
	cur, err := s.coll.Find(ctx, pendingOfDocument(documentPID), queueOrder())
	if err != nil {
		return nil, fmt.Errorf("mongostore: pending loans of %s: %w", documentPID, err)
	}

	var out []*circulation.Loan
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongostore: decode pending loans: %w", err)
	}
	slices.SortStableFunc(out, circulation.CompareQueue)
	return out, nil
}

func (s *Store) IsItemAvailableForCheckout(ctx context.Context, itemPID, excludingLoanID string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, activeOnItem(itemPID, excludingLoanID), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongostore: availability of %s: %w", itemPID, err)
	}
	return n == 0, nil
}

// ByState returns ids of loans in any of states.
func (s *Store) ByState(ctx context.Context, states ...circulation.State) ([]string, error) {
	if len(states) == 0 {
		return nil, nil
	}
	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, inStates(states), opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: loans by state: %w", err)
	}

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongostore: decode loans by state: %w", err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// Ping checks the deployment the collection lives on.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, nil); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}
