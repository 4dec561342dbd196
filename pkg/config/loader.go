package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// configCache stores parsed configuration copies keyed by type and prefix.
type configCache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

var (
	globalCache = newCache()

	defaultEnvLoaded sync.Once
)

func newCache() *configCache {
	return &configCache{
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
	}
}

// Option adjusts how a configuration struct is parsed.
type Option func(*loadOptions)

type loadOptions struct {
	prefix string
}

// WithPrefix prepends prefix to every env tag of the struct. It lets several
// services share one struct definition under different namespaces, e.g.
// SWEEP_REDIS_ADDR and API_REDIS_ADDR.
func WithPrefix(prefix string) Option {
	return func(o *loadOptions) { o.prefix = prefix }
}

// Load parses environment variables into v. Each configuration type (and
// prefix) is parsed once per process; later calls are served from cache.
//
// The default .env file in the working directory is loaded on first use if
// present.
//
// Example:
//
//	type PolicyConfig struct {
//		LoanDuration time.Duration `env:"CIRCULATION_LOAN_DURATION" envDefault:"336h"`
//		MaxExtensions int          `env:"CIRCULATION_MAX_EXTENSIONS" envDefault:"2"`
//	}
//
//	var cfg PolicyConfig
//	if err := config.Load(&cfg); err != nil {
//		// Handle error
//	}
func Load[T any](v *T, opts ...Option) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	key := cacheKey[T](o.prefix)

	if globalCache.get(key, v) {
		return nil
	}

	globalCache.mu.Lock()
	once, exists := globalCache.onces[key]
	if !exists {
		once = new(sync.Once)
		globalCache.onces[key] = once
	}
	globalCache.mu.Unlock()

	var err error
	once.Do(func() {
		if parseErr := parse(v, o); parseErr != nil {
			err = parseErr
			// Let a later call retry after the environment has been fixed.
			globalCache.mu.Lock()
			delete(globalCache.onces, key)
			globalCache.mu.Unlock()
			return
		}

		globalCache.mu.Lock()
		globalCache.values[key] = *v
		globalCache.mu.Unlock()
	})

	if err != nil {
		return err
	}

	if globalCache.get(key, v) {
		return nil
	}

	return ErrConfigNotLoaded
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

// ForceReloadConfig parses v again, bypassing and then refreshing the cache.
func ForceReloadConfig[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}
	key := cacheKey[T](o.prefix)

	if err := parse(v, o); err != nil {
		return err
	}

	globalCache.mu.Lock()
	globalCache.values[key] = *v
	once := new(sync.Once)
	once.Do(func() {})
	globalCache.onces[key] = once
	globalCache.mu.Unlock()

	return nil
}

// ResetCache drops every cached configuration.
func ResetCache() {
	globalCache.mu.Lock()
	globalCache.values = make(map[string]any)
	globalCache.onces = make(map[string]*sync.Once)
	globalCache.mu.Unlock()
}

// LoadEnv loads one or more .env files into the process environment. Later
// files override earlier ones. With no arguments the default .env is loaded.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
		return nil
	}
	for _, p := range paths {
		if err := godotenv.Overload(p); err != nil {
			return errors.Join(ErrLoadingEnvFile, fmt.Errorf("%s: %w", p, err))
		}
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics on failure.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("Failed to load env files: %v", err))
	}
}

func (c *configCache) get(key string, dst any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.values[key]
	if !ok {
		return false
	}
	reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(cached))
	return true
}

func parse[T any](v *T, o *loadOptions) error {
	var err error
	if o.prefix != "" {
		err = env.ParseWithOptions(v, env.Options{Prefix: o.prefix})
	} else {
		err = env.Parse(v)
	}
	if err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

func cacheKey[T any](prefix string) string {
	t := reflect.TypeFor[T]()
	return prefix + "|" + t.String()
}
