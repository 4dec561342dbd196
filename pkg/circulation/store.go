package circulation

import (
	"context"
	"sync"
	"time"
)

// Store persists loans with optimistic concurrency.
//
// Save writes loan only if the stored revision equals loan.Revision (0 for a
// loan never saved), then increments loan.Revision. A mismatch returns an
// error wrapping ErrPersistenceConflict. Get returns ErrLoanNotFound for
// unknown ids.
type Store interface {
	Get(ctx context.Context, id string) (*Loan, error)
	Save(ctx context.Context, loan *Loan) error
}

// Locker serializes transition attempts per key. The engine locks the loan
// id for every attempt and, when the attempt may hand the loan its item,
// ItemLockKey of that item as well. Lock blocks until the key is held or ctx
// ends; the returned function releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker. Waiters on one key never block other keys.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			k.release(key, l)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, l *keyLock) {
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// TransitionReport summarises one resolution attempt for observers.
type TransitionReport struct {
	LoanID   string
	From     State
	To       State
	Trigger  Trigger
	Err      error
	Duration time.Duration
}

// Observer receives a report after every attempt, successful or not.
type Observer interface {
	ObserveTransition(ctx context.Context, report TransitionReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, report TransitionReport)

func (f ObserverFunc) ObserveTransition(ctx context.Context, report TransitionReport) {
	f(ctx, report)
}
