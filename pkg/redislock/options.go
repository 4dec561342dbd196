package redislock

import (
	"log/slog"
	"time"
)

// Option configures a Locker.
type Option func(*Locker)

// WithPrefix sets the key prefix. Default "circulation:lock:".
func WithPrefix(prefix string) Option {
	return func(l *Locker) { l.prefix = prefix }
}

// WithTTL sets how long a lock survives without release. It must exceed the
// longest expected transition attempt.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetryInterval sets the pause between acquisition attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithMaxWait bounds how long Lock waits. Zero waits until ctx ends.
func WithMaxWait(d time.Duration) Option {
	return func(l *Locker) { l.maxWait = d }
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Locker) {
		if log != nil {
			l.log = log
		}
	}
}

// Config maps the locker settings to the environment.
type Config struct {
	Prefix        string        `env:"LOCK_PREFIX" envDefault:"circulation:lock:"`
	TTL           time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	RetryInterval time.Duration `env:"LOCK_RETRY_INTERVAL" envDefault:"50ms"`
	MaxWait       time.Duration `env:"LOCK_MAX_WAIT" envDefault:"10s"`
}

// Options converts the config into Locker options.
func (c Config) Options() []Option {
	return []Option{
		WithPrefix(c.Prefix),
		WithTTL(c.TTL),
		WithRetryInterval(c.RetryInterval),
		WithMaxWait(c.MaxWait),
	}
}
