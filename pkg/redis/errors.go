package redis

import "errors"

var (
	// ErrFailedToParseRedisConnString wraps REDIS_URL parse failures.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")

	// ErrRedisNotReady means no ping succeeded before the retries ran out.
	ErrRedisNotReady = errors.New("redis did not answer a ping within the retry budget")

	ErrEmptyConnectionURL = errors.New("empty redis connection URL, set REDIS_URL")
)
