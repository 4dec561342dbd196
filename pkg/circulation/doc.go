// Package circulation implements the loan transition engine of a library
// circulation desk.
//
// A Loan moves through a fixed set of states:
//
//	CREATED ──request──► PENDING ──auto──► ITEM_AT_DESK ──auto──► ITEM_ON_LOAN
//	   │                   │   └──auto──► ITEM_IN_TRANSIT_FOR_PICKUP ──auto──┘
//	   └──checkout─────────┴──checkout──────────────────────────────► ITEM_ON_LOAN
//
//	ITEM_ON_LOAN ──auto──► ITEM_RETURNED
//	ITEM_ON_LOAN ──auto──► ITEM_IN_TRANSIT_TO_HOUSE ──auto──► ITEM_RETURNED
//	ITEM_ON_LOAN ──extend──► ITEM_ON_LOAN
//	any non-terminal ──cancel──► CANCELLED
//
// Edges are guarded by host-supplied Validators (entity lookups, locations,
// availability) and Policies (loan periods, extension limits, requestability).
// For a given state and trigger the candidate edges are tried in table order
// on a copy of the loan; the first whose guards and effects all pass is
// committed through the Store. An empty trigger asks for an automatic edge.
//
// # Engine
//
//	engine, err := circulation.NewEngine(validators, policies, store,
//	    circulation.WithLogger(log),
//	    circulation.WithLocker(circulation.NewKeyedMutex()),
//	)
//	res, err := engine.Resolve(ctx, loan, circulation.TriggerCheckout, circulation.Payload{
//	    PatronPID:              "patron-1",
//	    TransactionLocationPID: "main-desk",
//	    TransactionUserPID:     "librarian-7",
//	})
//
// NewEngine checks the whole configuration up front and returns a
// *ConfigurationError naming every missing hook.
//
// # Errors
//
// A failed attempt returns a *TransitionError that unwraps to one of
// ErrInvalidTransition, ErrNoAutomaticTransition or
// ErrTransitionConditionsNotMet. A stale write surfaces as
// ErrPersistenceConflict; call ResolveByID to retry from fresh state. Host
// lookup failures are returned joined with ErrLookupFailed and never treated
// as a failed guard.
//
// # Concurrency
//
// At most one attempt per loan should be in flight. The store's revision
// check enforces this; WithLocker additionally serializes attempts per loan
// id so that competing attempts queue instead of failing.
package circulation
