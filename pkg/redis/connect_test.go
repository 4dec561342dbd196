package redis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/circulation/pkg/redis"
)

func TestConnect_EmptyURL(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(t.Context(), redis.Config{})
	assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
}

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(t.Context(), redis.Config{ConnectionURL: "http://localhost"})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}
