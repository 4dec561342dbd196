// Package redislock serializes transition attempts on a loan across
// processes.
//
// Locker implements circulation.Locker with SET key token NX PX ttl. Waiters
// poll at the retry interval until the key frees up, the context ends or the
// max wait elapses (ErrLockTimeout). Release runs a script that deletes the
// key only while it still holds the caller's token, so a lock that expired
// and was taken by another process stays intact.
//
//	engine, err := circulation.NewEngine(validators, policies, store,
//		circulation.WithLocker(redislock.New(client, cfg.Options()...)),
//	)
//
// The engine's optimistic revision check remains the correctness backstop;
// the lock only keeps concurrent attempts from racing to a conflict.
package redislock
