package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/logger"
)

var (
	ErrNilClient   = errors.New("redislock: client cannot be nil")
	ErrLockTimeout = errors.New("redislock: timed out waiting for lock")
	ErrUnavailable = errors.New("redislock: redis unavailable")
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a circulation.Locker backed by Redis SET NX PX.
type Locker struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	retry    time.Duration
	maxWait  time.Duration
	log      *slog.Logger
	newToken func() string
}

var _ circulation.Locker = (*Locker)(nil)

// New returns a Locker. It panics if client is nil.
func New(client redis.UniversalClient, opts ...Option) *Locker {
	if client == nil {
		panic(ErrNilClient)
	}
	l := &Locker{
		client:   client,
		prefix:   "circulation:lock:",
		ttl:      30 * time.Second,
		retry:    50 * time.Millisecond,
		maxWait:  10 * time.Second,
		log:      logger.Discard(),
		newToken: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the Redis key guarding the loan id.
func (l *Locker) Key(id string) string {
	return l.prefix + id
}

// Lock blocks until the key is acquired, ctx ends or the max wait elapses.
// The lock expires after the TTL even if never released.
func (l *Locker) Lock(ctx context.Context, id string) (func(), error) {
	key := l.Key(id)
	token := l.newToken()

	if l.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("redislock: acquire %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

func (l *Locker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}
}

func (l *Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	switch {
	case err != nil:
		l.log.Error("failed to release loan lock", slog.String("key", key), logger.Error(err))
	case n == 0:
		l.log.Warn("loan lock expired before release", slog.String("key", key))
	}
}

// Ping checks that locks can be taken right now.
func (l *Locker) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}
