package sweep

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithStates replaces the swept states.
func WithStates(states ...circulation.State) Option {
	return func(s *Sweeper) { s.states = states }
}

// WithInterval sets the pause between passes.
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithConcurrency bounds how many loans are resolved in parallel.
func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithConflictRetries sets how often a loan is retried after a persistence conflict.
func WithConflictRetries(n int) Option {
	return func(s *Sweeper) {
		if n >= 0 {
			s.retries = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.log = l
		}
	}
}

// Config maps sweeper settings to the environment.
type Config struct {
	Interval        time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	Concurrency     int           `env:"SWEEP_CONCURRENCY" envDefault:"4"`
	ConflictRetries int           `env:"SWEEP_CONFLICT_RETRIES" envDefault:"2"`
}

// Options converts the config into Sweeper options.
func (c Config) Options() []Option {
	return []Option{
		WithInterval(c.Interval),
		WithConcurrency(c.Concurrency),
		WithConflictRetries(c.ConflictRetries),
	}
}
