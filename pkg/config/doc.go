// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - LoadEnv reads one or more .env files into the process environment.
//   - Load parses the environment into any struct annotated with env tags and
//     caches the result per type, so repeated calls are cheap.
//   - WithPrefix namespaces the tags, letting one struct serve several
//     services (SWEEP_, API_).
//   - MustLoad and MustLoadEnv panic on failure for settings a process cannot
//     start without.
//
// # Usage
//
//	type StoreConfig struct {
//	    ConnectionString string `env:"PG_CONN_URL,required"`
//	    MaxOpenConns     int32  `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
//	}
//
//	var cfg StoreConfig
//	if err := config.Load(&cfg, config.WithPrefix("SWEEP_")); err != nil {
//	    log.Fatalf("parsing env: %v", err)
//	}
//
// A failed parse is not cached; fixing the environment and calling Load again
// retries.
//
// # Error Handling
//
//   - ErrParsingConfig: env vars could not be parsed into the struct.
//   - ErrLoadingEnvFile: an explicit .env file could not be read.
//   - ErrNilPointer: nil pointer passed to Load.
//
// # Testing Helpers
//
// ResetCache clears the cache between tests; ForceReloadConfig re-parses a
// single struct after the environment changes.
package config
