// Package redis connects to the Redis server that backs the distributed
// per-loan lock.
//
// Connect parses REDIS_URL, then pings with retries until the server answers
// or ConnectTimeout elapses:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	locker := redislock.New(client)
//
// Readiness is probed through redislock.Locker.Ping.
package redis
