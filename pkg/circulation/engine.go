package circulation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/circulation/pkg/audit"
	"github.com/dmitrymomot/circulation/pkg/logger"
	"github.com/dmitrymomot/circulation/pkg/statemachine"
)

// Engine resolves and commits loan transitions. It is safe for concurrent use.
type Engine struct {
	machine     *Machine
	rules       *Rules
	validators  Validators
	policies    Policies
	store       Store
	locker      Locker
	observer    Observer
	audit       *audit.Logger
	logger      *slog.Logger
	now         func() time.Time
	assignItems bool
}

// Result describes a committed transition.
type Result struct {
	// Loan is the committed loan, with its new revision.
	Loan      *Loan
	From      State
	To        State
	Trigger   Trigger
	Automatic bool
	// Effects names the loan fields the transition changed.
	Effects []string
	// Rejections holds reasons of candidates skipped before the winner.
	Rejections []string
}

// NewEngine validates the configuration and builds an engine. Every missing
// hook is reported in one *ConfigurationError.
func NewEngine(v Validators, p Policies, store Store, opts ...Option) (*Engine, error) {
	var storeErr error
	if store == nil {
		storeErr = &ConfigurationError{Missing: []string{"store"}}
	}
	if err := mergeConfigErrors(v.Validate(), p.Validate(), storeErr); err != nil {
		return nil, err
	}

	e := &Engine{
		rules:       NewRules(v, p),
		validators:  v,
		policies:    p,
		store:       store,
		logger:      logger.Discard(),
		now:         time.Now,
		assignItems: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.machine == nil {
		m, err := DefaultTable(e.rules)
		if err != nil {
			return nil, &ConfigurationError{Err: err}
		}
		e.machine = m
	}
	for _, s := range e.machine.States() {
		if !stateOf(s).Valid() {
			return nil, &ConfigurationError{Err: fmt.Errorf("%w: %q in transition table", ErrUnknownState, s.Name())}
		}
	}

	return e, nil
}

// MustNewEngine is like NewEngine but panics on configuration errors.
func MustNewEngine(v Validators, p Policies, store Store, opts ...Option) *Engine {
	e, err := NewEngine(v, p, store, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Rules exposes the guards and effects bound to the engine's validators and
// policies, for hosts extending the table.
func (e *Engine) Rules() *Rules { return e.rules }

// Table returns the transition table in use.
func (e *Engine) Table() *Machine { return e.machine }

// Resolve runs one transition attempt on loan. An empty trigger asks for
// automatic progression. The attempt either commits fully through the store
// or leaves no trace; loan itself is never modified.
func (e *Engine) Resolve(ctx context.Context, loan *Loan, trigger Trigger, payload Payload) (*Result, error) {
	if loan == nil {
		return nil, ErrNilLoan
	}
	if !loan.State.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, loan.State)
	}

	unlock, err := e.lock(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return e.attempt(ctx, loan, trigger, payload)
}

// ResolveByID loads the current loan from the store under the per-loan lock
// and resolves it. It is the retry entry point after ErrPersistenceConflict.
func (e *Engine) ResolveByID(ctx context.Context, id string, trigger Trigger, payload Payload) (*Result, error) {
	unlock, err := e.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	loan, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("circulation: load loan %s: %w", id, err)
	}
	if !loan.State.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, loan.State)
	}
	return e.attempt(ctx, loan, trigger, payload)
}

// AvailableTriggers lists the triggers whose transition would currently
// succeed. Guards and effects run on throwaway copies; nothing is saved.
func (e *Engine) AvailableTriggers(ctx context.Context, loan *Loan) ([]Trigger, error) {
	if loan == nil {
		return nil, ErrNilLoan
	}
	if !loan.State.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, loan.State)
	}

	var out []Trigger
	for _, t := range e.machine.Triggers(loan.State) {
		work := loan.Clone()
		Payload{}.mergeInto(work, e.now())
		_, err := e.machine.Fire(ctx, work, t, Payload{})
		switch {
		case err == nil:
			out = append(out, triggerOf(t))
		case statemachine.IsTransitionRejectedError(err), statemachine.IsNoTransitionAvailableError(err):
		default:
			return nil, err
		}
	}
	return out, nil
}

func (e *Engine) lock(ctx context.Context, id string) (func(), error) {
	if e.locker == nil {
		return func() {}, nil
	}
	unlock, err := e.locker.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("circulation: lock loan %s: %w", id, err)
	}
	return unlock, nil
}

// lockItem holds the item for an attempt that may move loan into an active
// state, so two loans never claim the item from the same snapshot. Loans
// already holding their item, or finished with it, take no item lock.
func (e *Engine) lockItem(ctx context.Context, loan *Loan, payload Payload) (func(), error) {
	item := cmp.Or(loan.ItemPID, payload.ItemPID)
	if e.locker == nil || item == "" || loan.State.IsActive() || loan.State.IsTerminal() {
		return func() {}, nil
	}
	unlock, err := e.locker.Lock(ctx, ItemLockKey(item))
	if err != nil {
		return nil, fmt.Errorf("circulation: lock item %s: %w", item, err)
	}
	return unlock, nil
}

// ItemLockKey is the Locker key guarding hand-over of an item.
func ItemLockKey(itemPID string) string { return "item:" + itemPID }

func (e *Engine) attempt(ctx context.Context, loan *Loan, trigger Trigger, payload Payload) (*Result, error) {
	begin := time.Now()
	res, err := e.commit(ctx, loan, trigger, payload)
	e.report(ctx, loan, trigger, res, err, time.Since(begin))
	if err != nil {
		return nil, err
	}

	if res.To == StateItemReturned && e.assignItems {
		e.assignReturnedItem(ctx, res.Loan)
	}
	return res, nil
}

func (e *Engine) commit(ctx context.Context, loan *Loan, trigger Trigger, payload Payload) (*Result, error) {
	unlock, err := e.lockItem(ctx, loan, payload)
	if err != nil {
		return nil, err
	}
	defer unlock()

	work := loan.Clone()
	payload.mergeInto(work, e.now())

	out, err := e.machine.Fire(ctx, work, trigger.machineTrigger(), payload)
	if err != nil {
		return nil, e.translate(loan, trigger, err)
	}

	next := out.Subject
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("circulation: transition %s produced an invalid loan: %w", out.Transition, err)
	}
	if next.ExtensionCount > loan.ExtensionCount {
		if limit := e.policies.Extension.MaxCount(next); next.ExtensionCount > limit {
			return nil, &TransitionError{
				Kind:    ErrTransitionConditionsNotMet,
				LoanID:  loan.ID,
				State:   loan.State,
				Trigger: trigger,
				Reasons: []string{fmt.Sprintf("Extension limit of %d reached for loan '%s'.", limit, loan.ID)},
			}
		}
	}

	if err := e.store.Save(ctx, next); err != nil {
		if errors.Is(err, ErrPersistenceConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("circulation: save loan %s: %w", loan.ID, err)
	}

	return &Result{
		Loan:       next,
		From:       loan.State,
		To:         next.State,
		Trigger:    trigger,
		Automatic:  trigger == TriggerAuto,
		Effects:    changedFields(loan, next),
		Rejections: out.Rejections,
	}, nil
}

// translate maps resolution failures onto the circulation error taxonomy.
// Host lookup and other infrastructure errors pass through unchanged.
func (e *Engine) translate(loan *Loan, trigger Trigger, err error) error {
	te := &TransitionError{LoanID: loan.ID, State: loan.State, Trigger: trigger}

	var (
		noTransition *statemachine.ErrNoTransitionAvailable
		rejected     *statemachine.ErrTransitionRejected
		noAutomatic  *statemachine.ErrNoAutomaticTransition
	)
	switch {
	case errors.As(err, &noTransition):
		te.Kind = ErrInvalidTransition
	case errors.As(err, &rejected):
		te.Kind = ErrTransitionConditionsNotMet
		te.Reasons = rejected.Reasons
	case errors.As(err, &noAutomatic):
		te.Kind = ErrNoAutomaticTransition
		te.Reasons = noAutomatic.Reasons
	case errors.Is(err, statemachine.ErrUnknownState):
		return fmt.Errorf("%w: %q", ErrUnknownState, loan.State)
	default:
		return err
	}
	return te
}

func (e *Engine) report(ctx context.Context, loan *Loan, trigger Trigger, res *Result, err error, took time.Duration) {
	rep := TransitionReport{
		LoanID:   loan.ID,
		From:     loan.State,
		Trigger:  trigger,
		Err:      err,
		Duration: took,
	}
	if res != nil {
		rep.To = res.To
	}

	if e.observer != nil {
		e.observer.ObserveTransition(ctx, rep)
	}
	e.log(ctx, rep, res)
	e.record(ctx, rep, res)
}

func (e *Engine) log(ctx context.Context, rep TransitionReport, res *Result) {
	attrs := []any{
		logger.LoanID(rep.LoanID),
		logger.Trigger(string(rep.Trigger)),
		logger.Duration(rep.Duration),
	}

	var te *TransitionError
	switch {
	case rep.Err == nil:
		e.logger.InfoContext(ctx, "loan transition committed",
			append(attrs,
				logger.Transition(rep.From.Name(), rep.To.Name()),
				logger.Revision(res.Loan.Revision),
			)...)
	case errors.As(rep.Err, &te):
		e.logger.DebugContext(ctx, "loan transition not taken",
			append(attrs, logger.State(rep.From.Name()), logger.Reason(te.Reason()), logger.Error(rep.Err))...)
	case errors.Is(rep.Err, ErrPersistenceConflict):
		e.logger.WarnContext(ctx, "loan changed concurrently",
			append(attrs, logger.State(rep.From.Name()), logger.Error(rep.Err))...)
	default:
		e.logger.ErrorContext(ctx, "loan transition failed",
			append(attrs, logger.State(rep.From.Name()), logger.Error(rep.Err))...)
	}
}

// record writes the attempt to the audit trail. Automatic attempts that
// found nothing to do are routine and not recorded.
func (e *Engine) record(ctx context.Context, rep TransitionReport, res *Result) {
	if e.audit == nil || errors.Is(rep.Err, ErrNoAutomaticTransition) {
		return
	}

	action := "loan." + rep.Trigger.String()
	opts := []audit.EventOption{audit.WithLoan(rep.LoanID)}

	var err error
	if rep.Err == nil {
		opts = append(opts,
			audit.WithTransition(rep.From.Name(), rep.To.Name()),
			audit.WithMetadata("effects", res.Effects),
			audit.WithMetadata("revision", res.Loan.Revision),
		)
		err = e.audit.Log(ctx, action, opts...)
	} else {
		opts = append(opts, audit.WithTransition(rep.From.Name(), ""))
		var te *TransitionError
		if errors.As(rep.Err, &te) {
			opts = append(opts, audit.WithRejection(te.Reason()))
		}
		err = e.audit.LogError(ctx, action, rep.Err, opts...)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "audit record failed", logger.LoanID(rep.LoanID), logger.Error(err))
	}
}
