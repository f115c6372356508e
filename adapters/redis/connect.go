// Package redis provides Redis-backed implementations of the persistence
// ports: the event store (append-only per-aggregate streams with optimistic
// concurrency), the uniqueness index and the aggregate id allocator.
package redis

import (
	"os"

	redisgo "github.com/redis/go-redis/v9"
)

type closeFunc = func()

type Connector func() (client *redisgo.Client, close closeFunc, err error)

func ConnectURL(redisURL string) Connector {
	return func() (*redisgo.Client, closeFunc, error) {
		opt, err := redisgo.ParseURL(redisURL)
		if err != nil {
			return nil, nil, err
		}
		client := redisgo.NewClient(opt)
		return client, func() { _ = client.Close() }, nil
	}
}

func ConnectAddr(addr, password string, db int) Connector {
	return func() (*redisgo.Client, closeFunc, error) {
		client := redisgo.NewClient(&redisgo.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
		return client, func() { _ = client.Close() }, nil
	}
}

func ConnectDefault() Connector {
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		return ConnectURL(redisURL)
	}
	return ConnectAddr("localhost:6379", "", 0)
}
