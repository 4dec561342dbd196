package sweep_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/sweep"
)

type listerFunc func(ctx context.Context, states ...circulation.State) ([]string, error)

func (f listerFunc) ByState(ctx context.Context, states ...circulation.State) ([]string, error) {
	return f(ctx, states...)
}

type fakeResolver struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(id string, call int) (*circulation.Result, error)
}

func (r *fakeResolver) ResolveByID(_ context.Context, id string, trigger circulation.Trigger, _ circulation.Payload) (*circulation.Result, error) {
	if trigger != circulation.TriggerAuto {
		return nil, fmt.Errorf("unexpected trigger %s", trigger)
	}
	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[id]++
	call := r.calls[id]
	r.mu.Unlock()
	return r.respond(id, call)
}

func advanced() *circulation.Result {
	return &circulation.Result{From: circulation.StateItemInTransitForPickup, To: circulation.StateItemAtDesk}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	r := &fakeResolver{}
	l := listerFunc(func(context.Context, ...circulation.State) ([]string, error) { return nil, nil })

	_, err := sweep.New(nil, r)
	assert.ErrorIs(t, err, sweep.ErrNilLister)

	_, err = sweep.New(l, nil)
	assert.ErrorIs(t, err, sweep.ErrNilResolver)

	_, err = sweep.New(l, r, sweep.WithStates())
	assert.ErrorIs(t, err, sweep.ErrNoStates)
}

func TestSweepOnce_ClassifiesOutcomes(t *testing.T) {
	t.Parallel()

	var listed []circulation.State
	lister := listerFunc(func(_ context.Context, states ...circulation.State) ([]string, error) {
		listed = states
		return []string{"moved", "resting", "busy", "broken"}, nil
	})
	resolver := &fakeResolver{respond: func(id string, call int) (*circulation.Result, error) {
		switch id {
		case "moved":
			return advanced(), nil
		case "resting":
			return nil, &circulation.TransitionError{Kind: circulation.ErrNoAutomaticTransition, LoanID: id}
		case "busy":
			return nil, fmt.Errorf("%w: stale", circulation.ErrPersistenceConflict)
		default:
			return nil, errors.New("db down")
		}
	}}

	s, err := sweep.New(lister, resolver, sweep.WithConflictRetries(2), sweep.WithConcurrency(2))
	require.NoError(t, err)

	stats, err := s.SweepOnce(t.Context())
	require.NoError(t, err)

	assert.Equal(t, sweep.DefaultStates, listed)
	assert.Equal(t, sweep.Stats{Scanned: 4, Advanced: 1, Idle: 1, Conflicts: 1, Failed: 1}, stats)
	assert.Equal(t, 3, resolver.calls["busy"], "first attempt plus two retries")
	assert.Equal(t, 1, resolver.calls["broken"])
}

func TestSweepOnce_RetriesConflictThenAdvances(t *testing.T) {
	t.Parallel()

	lister := listerFunc(func(context.Context, ...circulation.State) ([]string, error) {
		return []string{"L1"}, nil
	})
	resolver := &fakeResolver{respond: func(_ string, call int) (*circulation.Result, error) {
		if call == 1 {
			return nil, circulation.ErrPersistenceConflict
		}
		return advanced(), nil
	}}

	s, err := sweep.New(lister, resolver)
	require.NoError(t, err)

	stats, err := s.SweepOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Advanced)
	assert.Equal(t, 0, stats.Conflicts)
}

func TestSweepOnce_ListingFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("store down")
	lister := listerFunc(func(context.Context, ...circulation.State) ([]string, error) { return nil, boom })

	s, err := sweep.New(lister, &fakeResolver{})
	require.NoError(t, err)

	_, err = s.SweepOnce(t.Context())
	assert.ErrorIs(t, err, boom)
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		passes int
	)
	lister := listerFunc(func(context.Context, ...circulation.State) ([]string, error) {
		mu.Lock()
		passes++
		mu.Unlock()
		return nil, nil
	})

	s, err := sweep.New(lister, &fakeResolver{}, sweep.WithInterval(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 55*time.Millisecond)
	defer cancel()

	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, passes, 2)
}

func TestConfig_Options(t *testing.T) {
	t.Parallel()

	cfg := sweep.Config{Interval: time.Second, Concurrency: 8, ConflictRetries: 1}
	lister := listerFunc(func(context.Context, ...circulation.State) ([]string, error) { return nil, nil })

	_, err := sweep.New(lister, &fakeResolver{}, cfg.Options()...)
	assert.NoError(t, err)
}
