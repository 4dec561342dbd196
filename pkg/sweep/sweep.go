package sweep

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/logger"
)

var (
	ErrNilLister   = errors.New("sweep: lister cannot be nil")
	ErrNilResolver = errors.New("sweep: resolver cannot be nil")
	ErrNoStates    = errors.New("sweep: no states to sweep")
)

// DefaultStates are the states whose automatic edges depend on facts that
// change outside the engine, such as an item arriving at its pickup desk.
var DefaultStates = []circulation.State{
	circulation.StatePending,
	circulation.StateItemInTransitForPickup,
}

// Lister returns ids of loans currently in one of the states.
type Lister interface {
	ByState(ctx context.Context, states ...circulation.State) ([]string, error)
}

// Resolver drives one transition of a stored loan.
type Resolver interface {
	ResolveByID(ctx context.Context, id string, trigger circulation.Trigger, payload circulation.Payload) (*circulation.Result, error)
}

// Stats summarises one pass.
type Stats struct {
	Scanned   int
	Advanced  int
	Idle      int
	Conflicts int
	Failed    int
}

// Sweeper periodically resolves automatic transitions for loans at rest in
// the configured states.
type Sweeper struct {
	lister      Lister
	resolver    Resolver
	states      []circulation.State
	interval    time.Duration
	concurrency int
	retries     int
	log         *slog.Logger
}

func New(lister Lister, resolver Resolver, opts ...Option) (*Sweeper, error) {
	if lister == nil {
		return nil, ErrNilLister
	}
	if resolver == nil {
		return nil, ErrNilResolver
	}

	s := &Sweeper{
		lister:      lister,
		resolver:    resolver,
		states:      DefaultStates,
		interval:    time.Minute,
		concurrency: 4,
		retries:     2,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.states) == 0 {
		return nil, ErrNoStates
	}
	return s, nil
}

// Run sweeps immediately, then on every interval tick until ctx ends.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *Sweeper) pass(ctx context.Context) {
	start := time.Now()
	stats, err := s.SweepOnce(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "sweep failed", logger.Error(err))
		return
	}
	s.log.InfoContext(ctx, "sweep finished",
		slog.Int("scanned", stats.Scanned),
		slog.Int("advanced", stats.Advanced),
		slog.Int("idle", stats.Idle),
		slog.Int("conflicts", stats.Conflicts),
		slog.Int("failed", stats.Failed),
		logger.Duration(time.Since(start)),
	)
}

// SweepOnce resolves every loan currently in the sweep states once. Failures
// on single loans are counted and logged; only a listing failure is returned.
func (s *Sweeper) SweepOnce(ctx context.Context) (Stats, error) {
	ids, err := s.lister.ByState(ctx, s.states...)
	if err != nil {
		return Stats{}, err
	}

	var (
		mu    sync.Mutex
		stats = Stats{Scanned: len(ids)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			outcome := s.advance(gctx, id)
			mu.Lock()
			switch outcome {
			case outcomeAdvanced:
				stats.Advanced++
			case outcomeIdle:
				stats.Idle++
			case outcomeConflict:
				stats.Conflicts++
			default:
				stats.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return stats, ctx.Err()
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeAdvanced
	outcomeIdle
	outcomeConflict
)

// advance resolves one loan, reloading and retrying after a persistence conflict.
func (s *Sweeper) advance(ctx context.Context, id string) outcome {
	ctx = logger.ContextWithLoan(ctx, id)
	for attempt := 0; ; attempt++ {
		res, err := s.resolver.ResolveByID(ctx, id, circulation.TriggerAuto, circulation.Payload{})
		switch {
		case err == nil:
			s.log.DebugContext(ctx, "loan advanced", logger.Transition(res.From.Name(), res.To.Name()))
			return outcomeAdvanced
		case circulation.IsNoAutomaticTransition(err):
			return outcomeIdle
		case circulation.IsPersistenceConflict(err):
			if attempt < s.retries {
				continue
			}
			s.log.WarnContext(ctx, "loan kept changing during sweep", logger.Error(err))
			return outcomeConflict
		default:
			s.log.ErrorContext(ctx, "failed to advance loan", logger.Error(err))
			return outcomeFailed
		}
	}
}
